package domain

import (
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
)

// ResourceLimits bounds a single step's delegated execution.
type ResourceLimits struct {
	// MemoryLimitMB is an advisory memory ceiling passed to delegates.
	MemoryLimitMB int `json:"memory_limit_mb"`

	// TimeLimit is the hard wall-clock budget for one execution attempt.
	// Exceeding it yields a timeout result.
	TimeLimit time.Duration `json:"time_limit"`
}

// Constraints restricts which actions a step execution may perform.
type Constraints struct {
	// AllowedOperations is the closed set of permitted action types.
	// Empty means nothing is permitted.
	AllowedOperations []ActionType `json:"allowed_operations"`

	// SecurityLevel gates broad or destructive operations.
	SecurityLevel constants.SecurityLevel `json:"security_level"`
}

// Allows reports whether the action is in the permitted set.
func (c Constraints) Allows(action ActionType) bool {
	for _, a := range c.AllowedOperations {
		if a == action {
			return true
		}
	}
	return false
}

// ExecutionContext carries the resource limits, constraints, and environment
// facts for one step execution. The engine holds no state of its own; the
// orchestrator builds a context per step from configuration.
type ExecutionContext struct {
	// Resources bounds the execution attempt.
	Resources ResourceLimits `json:"resources"`

	// Constraints restricts permitted operations.
	Constraints Constraints `json:"constraints"`

	// Environment holds workspace facts delegates may consult
	// (e.g. "workspace", "untrusted_workspace").
	Environment map[string]string `json:"environment,omitempty"`
}

// ExecutionResult captures the outcome of executing a step, including
// timing metrics recorded regardless of success.
//
// Example JSON representation:
//
//	{
//	    "step_id": "2f0c...",
//	    "success": true,
//	    "output": "analysis finished",
//	    "attempts": 1,
//	    "duration_ms": 1450
//	}
type ExecutionResult struct {
	// StepID identifies which step produced this result.
	StepID string `json:"step_id"`

	// Success indicates whether the step completed without errors.
	Success bool `json:"success"`

	// Output contains any text output from the delegate.
	Output string `json:"output,omitempty"`

	// Error contains the failure message if Success is false.
	Error string `json:"error,omitempty"`

	// Attempts is how many execution attempts were made, including retries.
	Attempts int `json:"attempts"`

	// StartedAt is when the first attempt began.
	StartedAt time.Time `json:"started_at"`

	// DurationMS is the total wall-clock time across attempts.
	DurationMS int64 `json:"duration_ms"`
}
