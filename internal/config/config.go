// Package config provides configuration management for maestro with layered
// precedence.
//
// Configuration sources are loaded in the following order (highest precedence
// first):
//  1. Environment variables (MAESTRO_* prefix)
//  2. Project config (.maestro/config.yaml)
//  3. Global config (~/.maestro/config.yaml)
//  4. Built-in defaults
//
// Each higher level overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import (
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
)

// Config is the root configuration structure for maestro.
type Config struct {
	// Planner contains settings for goal decomposition and estimation.
	Planner PlannerConfig `yaml:"planner" mapstructure:"planner"`

	// Execution contains settings for constrained step execution.
	Execution ExecutionConfig `yaml:"execution" mapstructure:"execution"`

	// Oversight contains settings for human-intervention gating.
	Oversight OversightConfig `yaml:"oversight" mapstructure:"oversight"`

	// State contains settings for state persistence.
	State StateConfig `yaml:"state" mapstructure:"state"`
}

// PlannerConfig contains settings for goal decomposition and estimation.
type PlannerConfig struct {
	// RiskTolerance shifts risk tier thresholds.
	// Valid values: "conservative", "balanced", "aggressive".
	// Default: "balanced"
	RiskTolerance string `yaml:"risk_tolerance" mapstructure:"risk_tolerance"`
}

// ExecutionConfig contains settings for step execution.
type ExecutionConfig struct {
	// Timeout is the wall-clock budget for a single step execution attempt.
	// Default: 5 minutes
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxRetryAttempts is the retry budget for transient step failures.
	// Permission and validation failures are never retried.
	// Default: 2, Valid range: 0-10
	MaxRetryAttempts int `yaml:"max_retry_attempts" mapstructure:"max_retry_attempts"`

	// RetryBackoff is the pause between retry attempts.
	// Default: 2 seconds
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`

	// AllowedOperations lists the step action types the engine may
	// dispatch. Empty means all action types are allowed.
	AllowedOperations []string `yaml:"allowed_operations,omitempty" mapstructure:"allowed_operations"`

	// SecurityLevel gates broad or destructive operations.
	// Valid values: "restricted", "standard", "elevated".
	// Default: "standard"
	SecurityLevel string `yaml:"security_level" mapstructure:"security_level"`

	// MemoryLimitMB is the advisory memory ceiling recorded in each
	// execution context.
	// Default: 512
	MemoryLimitMB int `yaml:"memory_limit_mb" mapstructure:"memory_limit_mb"`
}

// OversightConfig contains settings for human-intervention gating.
type OversightConfig struct {
	// AutoApprovalLevel decides which risk tiers proceed without explicit
	// human confirmation and how approval timeouts resolve.
	// Valid values: "none", "low", "medium", "high".
	// Default: "low"
	AutoApprovalLevel string `yaml:"auto_approval_level" mapstructure:"auto_approval_level"`

	// ApprovalTimeout is how long to wait for a human decision before the
	// auto-approval policy resolves the request.
	// Default: 10 minutes
	ApprovalTimeout time.Duration `yaml:"approval_timeout" mapstructure:"approval_timeout"`
}

// StateConfig contains settings for AgentState persistence.
type StateConfig struct {
	// HomeDir overrides the maestro home directory (default ~/.maestro).
	// Mainly useful for tests and sandboxed runs.
	HomeDir string `yaml:"home_dir,omitempty" mapstructure:"home_dir"`

	// Workspace identifies the workspace whose snapshot this session uses.
	// Default: "default"
	Workspace string `yaml:"workspace" mapstructure:"workspace"`
}

// RiskToleranceValue returns the typed risk tolerance, falling back to
// balanced for unknown values.
func (c *PlannerConfig) RiskToleranceValue() constants.RiskTolerance {
	rt := constants.RiskTolerance(c.RiskTolerance)
	for _, valid := range constants.ValidRiskTolerances {
		if rt == valid {
			return rt
		}
	}
	return constants.RiskToleranceBalanced
}

// AutoApprovalLevelValue returns the typed auto-approval level, falling back
// to none (fail closed) for unknown values.
func (c *OversightConfig) AutoApprovalLevelValue() constants.AutoApprovalLevel {
	lvl := constants.AutoApprovalLevel(c.AutoApprovalLevel)
	for _, valid := range constants.ValidAutoApprovalLevels {
		if lvl == valid {
			return lvl
		}
	}
	return constants.AutoApprovalNone
}

// SecurityLevelValue returns the typed security level, falling back to
// restricted (fail closed) for unknown values.
func (c *ExecutionConfig) SecurityLevelValue() constants.SecurityLevel {
	lvl := constants.SecurityLevel(c.SecurityLevel)
	for _, valid := range constants.ValidSecurityLevels {
		if lvl == valid {
			return lvl
		}
	}
	return constants.SecurityLevelRestricted
}
