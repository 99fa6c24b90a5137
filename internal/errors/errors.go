// Package errors provides centralized error handling for maestro.
//
// This package defines sentinel errors used for programmatic error
// categorization throughout the application. All error types can be checked
// using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrInvalidGoal indicates an empty or malformed goal string. The
	// planner rejects it before any task state is materialized.
	ErrInvalidGoal = errors.New("invalid goal")

	// ErrInvalidProgress indicates a progress update that is out of range
	// or regresses below the previously stored value for the task.
	ErrInvalidProgress = errors.New("invalid progress update")

	// ErrPermissionDenied indicates a step action disallowed by the
	// execution context constraints. Never retried.
	ErrPermissionDenied = errors.New("operation not permitted")

	// ErrSecurityLevel indicates the workspace security level is too low
	// for the requested operation. Never retried.
	ErrSecurityLevel = errors.New("insufficient security level")

	// ErrStepTimeout indicates a step exceeded its execution time limit.
	// Treated as transient and retried within the retry budget.
	ErrStepTimeout = errors.New("step execution timeout")

	// ErrTransientExecution indicates a transient failure (network-like)
	// during delegated execution. Retried within the retry budget.
	ErrTransientExecution = errors.New("transient execution failure")

	// ErrApprovalTimeout indicates no human responded to an approval
	// request within the approval timeout.
	ErrApprovalTimeout = errors.New("approval request timed out")

	// ErrApprovalDenied indicates a human (or the fail-closed auto-approval
	// policy) denied a gated step.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrInvalidTransition indicates a disallowed task state transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotInterruptible indicates an intervention targeted a task that is
	// already in a terminal state.
	ErrNotInterruptible = errors.New("task is not interruptible")

	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoCurrentTask indicates an operation that requires an active task
	// was invoked while none is set.
	ErrNoCurrentTask = errors.New("no current task")

	// ErrQueueEmpty indicates the pending-task queue has no entries.
	ErrQueueEmpty = errors.New("task queue is empty")

	// ErrUnknownAction indicates a step action type with no registered
	// delegate. Never retried.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrStoreDisposed indicates a state store operation after Dispose.
	ErrStoreDisposed = errors.New("state store disposed")

	// ErrExecutionInProgress indicates a second goal was submitted while
	// the orchestrator is already driving a task.
	ErrExecutionInProgress = errors.New("execution already in progress")

	// ErrNotExecuting indicates pause/cancel was requested while the
	// orchestrator is not in an interruptible phase.
	ErrNotExecuting = errors.New("no execution to interrupt")

	// ErrNotPaused indicates resume was requested without a paused task.
	ErrNotPaused = errors.New("task is not paused")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidOutputFormat indicates an unsupported --output value.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrInvalidWorkspace indicates a workspace name unsafe to use as a
	// directory name.
	ErrInvalidWorkspace = errors.New("invalid workspace name")

	// ErrLockTimeout indicates a file lock could not be acquired within
	// the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrSnapshotCorrupted indicates the persisted AgentState snapshot
	// could not be parsed.
	ErrSnapshotCorrupted = errors.New("state snapshot corrupted")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidPlanner indicates an invalid planner configuration value.
	ErrConfigInvalidPlanner = errors.New("invalid planner configuration")

	// ErrConfigInvalidExecution indicates an invalid execution configuration value.
	ErrConfigInvalidExecution = errors.New("invalid execution configuration")

	// ErrConfigInvalidOversight indicates an invalid oversight configuration value.
	ErrConfigInvalidOversight = errors.New("invalid oversight configuration")
)
