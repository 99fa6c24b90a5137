package config

import (
	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - planner.risk_tolerance must be a known tolerance
//   - execution.timeout and retry_backoff must be positive
//   - execution.max_retry_attempts must be between 0 and 10
//   - execution.security_level must be a known level
//   - oversight.auto_approval_level must be a known level
//   - oversight.approval_timeout must be positive
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validatePlannerConfig(&cfg.Planner); err != nil {
		return err
	}
	if err := validateExecutionConfig(&cfg.Execution); err != nil {
		return err
	}
	if err := validateOversightConfig(&cfg.Oversight); err != nil {
		return err
	}

	return nil
}

// validatePlannerConfig checks planner-specific configuration values.
func validatePlannerConfig(cfg *PlannerConfig) error {
	if !isValidRiskTolerance(cfg.RiskTolerance) {
		return errors.Wrapf(errors.ErrConfigInvalidPlanner,
			"planner.risk_tolerance must be one of conservative/balanced/aggressive, got %q",
			cfg.RiskTolerance)
	}
	return nil
}

// validateExecutionConfig checks execution-specific configuration values.
func validateExecutionConfig(cfg *ExecutionConfig) error {
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidExecution,
			"execution.timeout must be positive, got %s", cfg.Timeout)
	}

	if cfg.MaxRetryAttempts < 0 || cfg.MaxRetryAttempts > 10 {
		return errors.Wrapf(errors.ErrConfigInvalidExecution,
			"execution.max_retry_attempts must be between 0 and 10, got %d", cfg.MaxRetryAttempts)
	}

	if cfg.RetryBackoff < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidExecution,
			"execution.retry_backoff must not be negative, got %s", cfg.RetryBackoff)
	}

	if !isValidSecurityLevel(cfg.SecurityLevel) {
		return errors.Wrapf(errors.ErrConfigInvalidExecution,
			"execution.security_level must be one of restricted/standard/elevated, got %q",
			cfg.SecurityLevel)
	}

	return nil
}

// validateOversightConfig checks oversight-specific configuration values.
func validateOversightConfig(cfg *OversightConfig) error {
	if !isValidAutoApprovalLevel(cfg.AutoApprovalLevel) {
		return errors.Wrapf(errors.ErrConfigInvalidOversight,
			"oversight.auto_approval_level must be one of none/low/medium/high, got %q",
			cfg.AutoApprovalLevel)
	}

	if cfg.ApprovalTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidOversight,
			"oversight.approval_timeout must be positive, got %s", cfg.ApprovalTimeout)
	}

	return nil
}

func isValidRiskTolerance(value string) bool {
	for _, valid := range constants.ValidRiskTolerances {
		if value == valid.String() {
			return true
		}
	}
	return false
}

func isValidSecurityLevel(value string) bool {
	for _, valid := range constants.ValidSecurityLevels {
		if value == valid.String() {
			return true
		}
	}
	return false
}

func isValidAutoApprovalLevel(value string) bool {
	for _, valid := range constants.ValidAutoApprovalLevels {
		if value == valid.String() {
			return true
		}
	}
	return false
}
