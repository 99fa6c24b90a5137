// Package orchestrator drives the full task lifecycle: planning, gated
// execution, pause/resume, cancellation, and queue processing.
//
// This file implements the task state machine, which enforces valid status
// transitions and maintains an audit trail of all status changes.
//
// Import rules:
//   - CAN import: internal/clock, internal/constants, internal/domain,
//     internal/engine, internal/errors, internal/oversight, internal/planner,
//     internal/state
//   - MUST NOT import: internal/cli
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
)

// ValidTransitions defines all allowed status transitions in the task
// lifecycle. Format: from_status -> []to_statuses
//
// The state machine follows this flow:
//
//	Pending → Planning
//	Planning → AwaitingApproval, Executing, Paused, Failed
//	AwaitingApproval → Executing, Cancelled, Failed
//	Executing → AwaitingApproval, Paused, Completed, Failed, Cancelled
//	Paused → Executing, Planning, Cancelled
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.TaskStatus][]constants.TaskStatus{
	constants.TaskStatusPending: {constants.TaskStatusPlanning},
	constants.TaskStatusPlanning: {
		constants.TaskStatusAwaitingApproval,
		constants.TaskStatusExecuting,
		constants.TaskStatusPaused, // back to paused after a re-plan
		constants.TaskStatusFailed,
	},
	constants.TaskStatusAwaitingApproval: {
		constants.TaskStatusExecuting,
		constants.TaskStatusCancelled,
		constants.TaskStatusFailed,
	},
	constants.TaskStatusExecuting: {
		constants.TaskStatusAwaitingApproval,
		constants.TaskStatusPaused,
		constants.TaskStatusCompleted,
		constants.TaskStatusFailed,
		constants.TaskStatusCancelled,
	},
	constants.TaskStatusPaused: {
		constants.TaskStatusExecuting,
		constants.TaskStatusPlanning, // re-plan with feedback
		constants.TaskStatusCancelled,
	},
}

// terminalStatuses defines states where no further transitions are allowed.
// Terminal states are those NOT present as keys in ValidTransitions.
//
//nolint:gochecknoglobals // Read-only lookup table for terminal state checks
var terminalStatuses = map[constants.TaskStatus]bool{
	constants.TaskStatusCompleted: true,
	constants.TaskStatusFailed:    true,
	constants.TaskStatusCancelled: true,
}

// IsValidTransition checks if a transition from one status to another is
// allowed. Returns false for transitions from terminal states or to the
// same state.
func IsValidTransition(from, to constants.TaskStatus) bool {
	if from == to {
		return false
	}

	validTargets, exists := ValidTransitions[from]
	if !exists {
		return false // Terminal state or unknown state
	}
	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus returns true for states where no further transitions are
// allowed. Terminal states: Completed, Failed, Cancelled.
func IsTerminalStatus(status constants.TaskStatus) bool {
	return terminalStatuses[status]
}

// GetValidTargetStatuses returns all valid target statuses for a given
// status. Returns nil for terminal states or unknown statuses.
func GetValidTargetStatuses(from constants.TaskStatus) []constants.TaskStatus {
	targets, exists := ValidTransitions[from]
	if !exists {
		return nil
	}
	result := make([]constants.TaskStatus, len(targets))
	copy(result, targets)
	return result
}

// Transition validates and applies a status transition to the task.
// It records the transition in the task's history and updates timestamps.
// The caller is responsible for persisting the updated task.
//
// Returns an error if ctx is canceled, task is nil, or the transition is
// invalid (wrapped ErrInvalidTransition).
func Transition(ctx context.Context, task *domain.Task, to constants.TaskStatus, reason string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if task == nil {
		return fmt.Errorf("%w: task is nil", maestroerrors.ErrInvalidTransition)
	}

	from := task.Status
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s",
			maestroerrors.ErrInvalidTransition, from, to)
	}

	now := time.Now().UTC()

	task.Transitions = append(task.Transitions, domain.Transition{
		FromStatus: from,
		ToStatus:   to,
		Timestamp:  now,
		Reason:     reason,
	})

	task.Status = to
	task.UpdatedAt = now

	if IsTerminalStatus(to) {
		task.CompletedAt = &now
	}

	return nil
}
