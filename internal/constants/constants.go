// Package constants provides shared constant values for the maestro
// task orchestration system.
//
// This package follows strict import rules:
//   - CAN import: standard library only
//   - MUST NOT import: any internal packages
package constants

import "time"

// TaskSchemaVersion is the current version of the persisted task schema.
// Incremented when the Task struct changes in a non-backward-compatible way.
const TaskSchemaVersion = 1

// AgentStateSchemaVersion is the current version of the persisted
// AgentState snapshot schema.
const AgentStateSchemaVersion = 1

// Default timeout and retry values.
const (
	// DefaultExecutionTimeout is the maximum duration for a single step's
	// delegated execution.
	DefaultExecutionTimeout = 5 * time.Minute

	// DefaultApprovalTimeout is how long the orchestrator waits for a human
	// decision before applying the auto-approval policy.
	DefaultApprovalTimeout = 10 * time.Minute

	// DefaultMaxRetryAttempts is the retry budget for transient step
	// failures. Permission and validation failures are never retried.
	DefaultMaxRetryAttempts = 2

	// DefaultRetryBackoff is the pause between retry attempts.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultMemoryLimitMB is the advisory memory limit recorded in the
	// execution context for delegated work.
	DefaultMemoryLimitMB = 512
)

// MaxProgressPercent is the upper bound for task progress values.
const MaxProgressPercent = 100.0

// MaxGoalLogLength is the longest goal text emitted into log fields before
// truncation.
const MaxGoalLogLength = 200

// Log rotation settings for the maestro log file.
const (
	// LogMaxSizeMB is the size at which the log file rotates.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 3

	// LogMaxAgeDays is the retention period for rotated files.
	LogMaxAgeDays = 30

	// LogCompress enables gzip compression of rotated files.
	LogCompress = true
)
