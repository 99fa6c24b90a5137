package domain

import (
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
)

// ExecutionHistoryEntry is one append-only record of a step execution or
// intervention, keyed by task and step.
type ExecutionHistoryEntry struct {
	// TaskID is the task the entry belongs to.
	TaskID string `json:"task_id"`

	// StepID is the step the entry records (empty for task-level entries).
	StepID string `json:"step_id,omitempty"`

	// Status is the step status after the recorded event.
	Status constants.StepStatus `json:"status"`

	// DurationMS is the recorded execution duration.
	DurationMS int64 `json:"duration_ms"`

	// Success indicates whether the recorded event succeeded.
	Success bool `json:"success"`

	// Timestamp is when the entry was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Detail carries an optional human-readable note (failure reason,
	// intervention type).
	Detail string `json:"detail,omitempty"`
}

// AgentState is the complete orchestration state for one workspace session.
// It is mutated only through the state store's methods and snapshotted to
// disk so an interrupted run can be resumed or explicitly cancelled.
type AgentState struct {
	// CurrentTask is the task being driven, if any.
	CurrentTask *Task `json:"current_task,omitempty"`

	// Queue holds pending tasks in strict FIFO order.
	Queue []*Task `json:"queue,omitempty"`

	// History is the append-only execution history.
	History []ExecutionHistoryEntry `json:"history,omitempty"`

	// Interventions is the audit trail of human and auto decisions.
	Interventions []Intervention `json:"interventions,omitempty"`

	// TaskStatuses records the last known status of every task seen this
	// session, including terminal ones retained for statistics.
	TaskStatuses map[string]constants.TaskStatus `json:"task_statuses,omitempty"`

	// ProgressMarks records the per-task progress high-water mark used to
	// reject regressing updates.
	ProgressMarks map[string]float64 `json:"progress_marks,omitempty"`

	// SessionStart is when this session began.
	SessionStart time.Time `json:"session_start"`

	// SchemaVersion indicates the version of the AgentState schema.
	SchemaVersion int `json:"schema_version"`
}

// TaskStatistics summarizes session outcomes across all recorded tasks.
type TaskStatistics struct {
	// TotalTasks is the number of tasks recorded this session.
	TotalTasks int `json:"total_tasks"`

	// CompletedTasks is the number that reached completed.
	CompletedTasks int `json:"completed_tasks"`

	// FailedTasks is the number that reached failed.
	FailedTasks int `json:"failed_tasks"`

	// CancelledTasks is the number that reached cancelled.
	CancelledTasks int `json:"cancelled_tasks"`

	// SuccessRate is CompletedTasks / TotalTasks, or 0 when no tasks
	// have been recorded.
	SuccessRate float64 `json:"success_rate"`
}
