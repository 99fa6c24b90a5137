package domain

import "time"

// InterventionType is the closed set of human decisions affecting a task.
type InterventionType string

// Intervention type constants.
const (
	// InterventionPause suspends execution at the next checkpoint.
	InterventionPause InterventionType = "pause"

	// InterventionCancel discards remaining steps, preserving history.
	InterventionCancel InterventionType = "cancel"

	// InterventionModify requests a re-plan with feedback.
	InterventionModify InterventionType = "modify"

	// InterventionApprove allows a gated step to proceed.
	InterventionApprove InterventionType = "approve"
)

// String returns the string representation of the InterventionType.
func (i InterventionType) String() string {
	return string(i)
}

// Intervention sources.
const (
	// InterventionSourceUser marks a decision made by a human operator.
	InterventionSourceUser = "user"

	// InterventionSourceAuto marks a timeout-driven policy resolution.
	InterventionSourceAuto = "auto"
)

// Intervention is a recorded human (or auto-resolved) decision affecting a
// task's execution. Every intervention references an existing task and is
// appended to the audit trail.
type Intervention struct {
	// ID is the unique identifier for the intervention (UUID).
	ID string `json:"id"`

	// Type is the decision variant.
	Type InterventionType `json:"type"`

	// Reason explains the decision.
	Reason string `json:"reason,omitempty"`

	// Timestamp is when the decision was recorded.
	Timestamp time.Time `json:"timestamp"`

	// TaskID is the task the decision targets.
	TaskID string `json:"task_id"`

	// Source is "user" for human decisions, "auto" for timeout-driven
	// policy resolutions.
	Source string `json:"source"`
}
