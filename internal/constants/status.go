package constants

// TaskStatus represents the state of a task in the maestro state machine.
// Status values use snake_case for JSON serialization compatibility.
type TaskStatus string

// Task status constants define the valid states a task can be in.
// These follow the orchestrator state machine:
//
//	Pending → Planning
//	Planning → Executing, AwaitingApproval, Failed, Cancelled
//	AwaitingApproval → Executing, Cancelled, Failed
//	Executing → AwaitingApproval, Paused, Completed, Failed, Cancelled
//	Paused → Executing, Cancelled
const (
	// TaskStatusPending indicates a task is queued but not yet started.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusPlanning indicates the goal is being decomposed into steps.
	TaskStatusPlanning TaskStatus = "planning"

	// TaskStatusAwaitingApproval indicates execution is blocked on a human
	// decision for a step whose risk exceeds the auto-approval threshold.
	TaskStatusAwaitingApproval TaskStatus = "awaiting_approval"

	// TaskStatusExecuting indicates steps are actively being executed.
	TaskStatusExecuting TaskStatus = "executing"

	// TaskStatusPaused indicates execution was suspended by a human and can
	// resume from the preserved step index.
	TaskStatusPaused TaskStatus = "paused"

	// TaskStatusCompleted indicates every step finished successfully.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed indicates a step failed beyond its retry budget.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusCancelled indicates a human cancelled the task; remaining
	// steps were discarded but history is preserved.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// String returns the string representation of the TaskStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s TaskStatus) String() string {
	return string(s)
}

// StepStatus represents the state of a single step within a task.
type StepStatus string

// Step status constants.
const (
	// StepStatusPending indicates the step has not started yet.
	StepStatusPending StepStatus = "pending"

	// StepStatusRunning indicates the step is currently executing.
	StepStatusRunning StepStatus = "running"

	// StepStatusCompleted indicates the step finished successfully.
	StepStatusCompleted StepStatus = "completed"

	// StepStatusFailed indicates the step failed (after any retries).
	StepStatusFailed StepStatus = "failed"

	// StepStatusSkipped indicates the step was abandoned because the task
	// was cancelled or a prior step failed.
	StepStatusSkipped StepStatus = "skipped"
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	return string(s)
}
