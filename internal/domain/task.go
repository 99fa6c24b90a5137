// Package domain provides shared domain types for the maestro task
// orchestration system. These types are used across all internal packages to
// ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
)

// Task is the stateful plan decomposed from a goal. Tasks are created only
// by the planner and track execution progress through an ordered list of
// steps.
//
// Example JSON representation:
//
//	{
//	    "id": "task-20260831-140500",
//	    "goal": "Add input validation to the parser",
//	    "scope": "file",
//	    "status": "executing",
//	    "steps": [...],
//	    "progress": {"percent_complete": 50, "current_step_id": "..."},
//	    "version": 1,
//	    "schema_version": 1
//	}
type Task struct {
	// ID is the unique identifier for the task. Immutable after creation;
	// re-planning preserves it.
	// Format: task-YYYYMMDD-HHMMSS
	ID string `json:"id"`

	// Goal is the free-text goal this task was decomposed from.
	Goal string `json:"goal"`

	// Scope is the inferred blast radius of the goal.
	Scope Scope `json:"scope"`

	// Complexity is the planner's complexity estimate for the goal.
	Complexity ComplexityEstimate `json:"complexity"`

	// Risk is the planner's risk assessment for the goal.
	Risk RiskAssessment `json:"risk"`

	// Steps is the ordered list of execution steps. Step dependencies form
	// a DAG; the orchestrator executes steps in dependency order.
	Steps []Step `json:"steps"`

	// RequiredActions lists the distinct action types the plan needs.
	RequiredActions []ActionType `json:"required_actions,omitempty"`

	// Dependencies lists IDs of tasks that must complete before this one.
	Dependencies []string `json:"dependencies,omitempty"`

	// Status represents the current state in the task lifecycle.
	Status constants.TaskStatus `json:"status"`

	// Priority orders tasks in the pending queue display (1 is highest).
	Priority int `json:"priority"`

	// Progress tracks completion while the task is active.
	Progress Progress `json:"progress"`

	// Transitions is the audit trail of status changes.
	Transitions []Transition `json:"transitions,omitempty"`

	// Version increments on every re-plan of this task.
	Version int `json:"version"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// CompletedAt is when the task reached a terminal state (nil if active).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// SchemaVersion indicates the version of the Task struct schema.
	// This enables forward-compatible schema migrations.
	SchemaVersion int `json:"schema_version"`
}

// Progress tracks how far an active task has advanced.
// PercentComplete is monotonically non-decreasing while the task is active.
type Progress struct {
	// PercentComplete is in [0,100].
	PercentComplete float64 `json:"percent_complete"`

	// CurrentStepID identifies the step currently in flight (empty when
	// no step is executing).
	CurrentStepID string `json:"current_step_id,omitempty"`
}

// Step represents one actionable unit within a task's plan.
// Steps are executed in dependency order and track their own status.
type Step struct {
	// ID is the unique identifier for the step (UUID).
	ID string `json:"id"`

	// Action is the closed action-type variant this step performs.
	Action ActionType `json:"action"`

	// Description is a human-readable summary of the step.
	Description string `json:"description"`

	// EstimatedDuration is the planner's duration estimate.
	EstimatedDuration time.Duration `json:"estimated_duration"`

	// DependsOn lists IDs of steps that must complete first.
	DependsOn []string `json:"depends_on,omitempty"`

	// Status is the current state of this step.
	Status constants.StepStatus `json:"status"`

	// Attempts counts how many times this step has been executed.
	Attempts int `json:"attempts"`

	// Error contains the error message if the step failed.
	Error string `json:"error,omitempty"`

	// StartedAt is when step execution began (nil if not yet started).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when step execution finished (nil if not yet complete).
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Transition records a single status change for audit purposes.
type Transition struct {
	// FromStatus is the status before the transition.
	FromStatus constants.TaskStatus `json:"from_status"`

	// ToStatus is the status after the transition.
	ToStatus constants.TaskStatus `json:"to_status"`

	// Timestamp is when the transition occurred.
	Timestamp time.Time `json:"timestamp"`

	// Reason is an optional explanation for the transition.
	Reason string `json:"reason,omitempty"`
}

// StepByID returns a pointer to the step with the given ID, or nil.
func (t *Task) StepByID(id string) *Step {
	for i := range t.Steps {
		if t.Steps[i].ID == id {
			return &t.Steps[i]
		}
	}
	return nil
}

// CompletedSteps counts steps that finished successfully.
func (t *Task) CompletedSteps() int {
	n := 0
	for i := range t.Steps {
		if t.Steps[i].Status == constants.StepStatusCompleted {
			n++
		}
	}
	return n
}
