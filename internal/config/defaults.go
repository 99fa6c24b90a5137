package config

import (
	"github.com/kestrelworks/maestro/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files and environment variables.
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			// RiskTolerance: "balanced" keeps the default tier thresholds.
			// Conservative environments can shift estimates up a tier.
			RiskTolerance: constants.RiskToleranceBalanced.String(),
		},
		Execution: ExecutionConfig{
			// Timeout: 5 minutes bounds a single delegated attempt.
			Timeout: constants.DefaultExecutionTimeout,

			// MaxRetryAttempts: 2 retries cover transient failures
			// without masking persistent ones.
			MaxRetryAttempts: constants.DefaultMaxRetryAttempts,

			// RetryBackoff: short pause so transient conditions can clear.
			RetryBackoff: constants.DefaultRetryBackoff,

			// AllowedOperations: empty means all action types.
			AllowedOperations: nil,

			// SecurityLevel: "standard" permits creation and modification
			// but refuses destructive operations. Destructive goals need
			// an explicit opt-in to "elevated".
			SecurityLevel: constants.SecurityLevelStandard.String(),

			// MemoryLimitMB: advisory ceiling for delegates.
			MemoryLimitMB: constants.DefaultMemoryLimitMB,
		},
		Oversight: OversightConfig{
			// AutoApprovalLevel: "low" lets low-risk steps proceed while
			// gating everything above.
			AutoApprovalLevel: constants.AutoApprovalLow.String(),

			// ApprovalTimeout: 10 minutes before the fail-closed
			// auto-resolution policy kicks in.
			ApprovalTimeout: constants.DefaultApprovalTimeout,
		},
		State: StateConfig{
			// HomeDir: empty means ~/.maestro.
			HomeDir: "",

			// Workspace: snapshots are keyed per workspace so parallel
			// projects don't share state.
			Workspace: "default",
		},
	}
}
