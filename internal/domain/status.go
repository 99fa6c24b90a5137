// Package domain provides shared domain types for the maestro task
// orchestration system.
package domain

import "github.com/kestrelworks/maestro/internal/constants"

// Re-export TaskStatus and StepStatus from the constants package.
// This allows consumers to import domain types and status types together,
// providing a unified API for working with maestro domain objects.
type (
	// TaskStatus represents the state of a task in the maestro state machine.
	TaskStatus = constants.TaskStatus

	// StepStatus represents the state of a single step within a task.
	StepStatus = constants.StepStatus
)

// Re-export TaskStatus constants for convenience.
// These mirror the values in internal/constants/status.go.
const (
	// TaskStatusPending indicates a task is queued but not yet started.
	TaskStatusPending = constants.TaskStatusPending

	// TaskStatusPlanning indicates the goal is being decomposed into steps.
	TaskStatusPlanning = constants.TaskStatusPlanning

	// TaskStatusAwaitingApproval indicates execution is blocked on a human
	// decision for a risky step.
	TaskStatusAwaitingApproval = constants.TaskStatusAwaitingApproval

	// TaskStatusExecuting indicates steps are actively being executed.
	TaskStatusExecuting = constants.TaskStatusExecuting

	// TaskStatusPaused indicates execution was suspended by a human.
	TaskStatusPaused = constants.TaskStatusPaused

	// TaskStatusCompleted indicates every step finished successfully.
	TaskStatusCompleted = constants.TaskStatusCompleted

	// TaskStatusFailed indicates a step failed beyond its retry budget.
	TaskStatusFailed = constants.TaskStatusFailed

	// TaskStatusCancelled indicates a human cancelled the task.
	TaskStatusCancelled = constants.TaskStatusCancelled
)

// Re-export StepStatus constants for convenience.
const (
	// StepStatusPending indicates the step has not started yet.
	StepStatusPending = constants.StepStatusPending

	// StepStatusRunning indicates the step is currently executing.
	StepStatusRunning = constants.StepStatusRunning

	// StepStatusCompleted indicates the step finished successfully.
	StepStatusCompleted = constants.StepStatusCompleted

	// StepStatusFailed indicates the step failed after any retries.
	StepStatusFailed = constants.StepStatusFailed

	// StepStatusSkipped indicates the step was abandoned.
	StepStatusSkipped = constants.StepStatusSkipped
)
