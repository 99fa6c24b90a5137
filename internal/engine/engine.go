package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelworks/maestro/internal/clock"
	"github.com/kestrelworks/maestro/internal/config"
	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
)

// Config holds the execution policy the engine enforces on every step.
type Config struct {
	// Timeout bounds a single execution attempt.
	Timeout time.Duration

	// MaxRetryAttempts is the number of retries after the first attempt.
	// Only timeouts and transient failures are retried.
	MaxRetryAttempts int

	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration

	// Execution carries the resource limits, operation allowlist, and
	// security level applied to every step.
	Execution domain.ExecutionContext
}

// ConfigFrom builds an engine Config from the application configuration,
// converting the string-typed policy fields into their domain types.
// An empty configured allowlist grants every action type; a non-empty one
// is honored with unrecognized operation names dropped rather than granted.
func ConfigFrom(cfg *config.Config) Config {
	var allowed []domain.ActionType
	if len(cfg.Execution.AllowedOperations) == 0 {
		allowed = append(allowed, domain.AllActionTypes...)
	}
	for _, op := range cfg.Execution.AllowedOperations {
		action := domain.ActionType(op)
		for _, known := range domain.AllActionTypes {
			if action == known {
				allowed = append(allowed, action)
				break
			}
		}
	}

	return Config{
		Timeout:          cfg.Execution.Timeout,
		MaxRetryAttempts: cfg.Execution.MaxRetryAttempts,
		RetryBackoff:     cfg.Execution.RetryBackoff,
		Execution: domain.ExecutionContext{
			Resources: domain.ResourceLimits{
				MemoryLimitMB: cfg.Execution.MemoryLimitMB,
				TimeLimit:     cfg.Execution.Timeout,
			},
			Constraints: domain.Constraints{
				AllowedOperations: allowed,
				SecurityLevel:     cfg.Execution.SecurityLevelValue(),
			},
		},
	}
}

// Engine executes steps through registered delegates while enforcing the
// configured constraints. It is stateless with respect to tasks: callers own
// task persistence and status transitions.
type Engine struct {
	registry *Registry
	cfg      Config
	clock    clock.Clock
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock, used by tests for deterministic
// timing.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine with the given delegate registry and policy.
func New(registry *Registry, cfg Config, logger zerolog.Logger, opts ...Option) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultExecutionTimeout
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}

	e := &Engine{
		registry: registry,
		cfg:      cfg,
		clock:    clock.RealClock{},
		logger:   logger.With().Str("component", "engine").Logger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExecuteStep runs a single step to completion, retrying transient failures
// up to the configured budget. The step's status, attempt count, timing, and
// error fields are updated in place; the returned ExecutionResult summarizes
// the final attempt.
//
// Constraint checks run before any delegate is dispatched: a step whose
// action is not in the allowlist fails with ErrPermissionDenied, and a
// destructive step below elevated security fails with ErrSecurityLevel.
// Neither is ever retried.
func (e *Engine) ExecuteStep(ctx context.Context, task *domain.Task, step *domain.Step) (*domain.ExecutionResult, error) {
	if task == nil || step == nil {
		return nil, maestroerrors.Wrap(maestroerrors.ErrEmptyValue, "execute step")
	}

	if err := e.checkConstraints(step); err != nil {
		e.failStep(step, err)
		return e.buildResult(step, "", err), err
	}

	delegate, err := e.registry.Get(step.Action)
	if err != nil {
		e.failStep(step, err)
		return e.buildResult(step, "", err), err
	}

	started := e.clock.Now()
	step.Status = constants.StepStatusRunning
	step.StartedAt = &started

	var result *domain.ExecutionResult
	for attempt := 1; attempt <= e.cfg.MaxRetryAttempts+1; attempt++ {
		step.Attempts = attempt

		result, err = e.runAttempt(ctx, delegate, task, step)
		if err == nil {
			break
		}

		e.logger.Warn().
			Str("task_id", task.ID).
			Str("step_id", step.ID).
			Str("action", string(step.Action)).
			Int("attempt", attempt).
			Err(err).
			Msg("step attempt failed")

		if !retryable(err) || attempt > e.cfg.MaxRetryAttempts {
			break
		}

		if waitErr := e.waitBackoff(ctx); waitErr != nil {
			err = waitErr
			break
		}
	}

	completed := e.clock.Now()
	step.CompletedAt = &completed

	if err != nil {
		step.Status = constants.StepStatusFailed
		step.Error = err.Error()
		return e.buildResult(step, outputOf(result), err), err
	}

	step.Status = constants.StepStatusCompleted
	step.Error = ""

	e.logger.Info().
		Str("task_id", task.ID).
		Str("step_id", step.ID).
		Str("action", string(step.Action)).
		Int("attempts", step.Attempts).
		Int64("duration_ms", completed.Sub(started).Milliseconds()).
		Msg("step completed")

	return e.buildResult(step, outputOf(result), nil), nil
}

// runAttempt dispatches one delegate call under the per-attempt timeout.
// A deadline hit inside the attempt is reported as ErrStepTimeout so the
// retry loop can distinguish it from a caller cancellation.
func (e *Engine) runAttempt(ctx context.Context, delegate Delegate, task *domain.Task, step *domain.Step) (*domain.ExecutionResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	result, err := delegate.Execute(attemptCtx, task, step)
	if err == nil {
		return result, nil
	}

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return result, maestroerrors.Wrapf(maestroerrors.ErrStepTimeout, "step %s exceeded %s", step.ID, e.cfg.Timeout)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	return result, err
}

// checkConstraints enforces the operation allowlist and the security level
// required for destructive actions.
func (e *Engine) checkConstraints(step *domain.Step) error {
	constraints := e.cfg.Execution.Constraints

	if !constraints.Allows(step.Action) {
		return maestroerrors.Wrapf(maestroerrors.ErrPermissionDenied, "operation %s not in allowlist", step.Action)
	}

	if step.Action.Destructive() && !constraints.SecurityLevel.AtLeast(constants.SecurityLevelElevated) {
		return maestroerrors.Wrapf(maestroerrors.ErrSecurityLevel,
			"destructive operation %s requires elevated security, have %s", step.Action, constraints.SecurityLevel)
	}

	return nil
}

// waitBackoff pauses between attempts, aborting early on cancellation.
func (e *Engine) waitBackoff(ctx context.Context) error {
	if e.cfg.RetryBackoff <= 0 {
		return nil
	}

	timer := time.NewTimer(e.cfg.RetryBackoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// failStep marks a step failed without it ever having run.
func (e *Engine) failStep(step *domain.Step, err error) {
	now := e.clock.Now()
	step.Status = constants.StepStatusFailed
	step.Error = err.Error()
	step.StartedAt = &now
	step.CompletedAt = &now
}

// buildResult assembles the ExecutionResult from the step's recorded timing.
func (e *Engine) buildResult(step *domain.Step, output string, err error) *domain.ExecutionResult {
	result := &domain.ExecutionResult{
		StepID:   step.ID,
		Success:  err == nil,
		Output:   output,
		Attempts: step.Attempts,
	}

	if err != nil {
		result.Error = err.Error()
	}
	if step.StartedAt != nil {
		result.StartedAt = *step.StartedAt
	}
	if step.StartedAt != nil && step.CompletedAt != nil {
		result.DurationMS = step.CompletedAt.Sub(*step.StartedAt).Milliseconds()
	}

	return result
}

// retryable reports whether an execution error is worth another attempt.
// Timeouts and transient failures are; permission, security, and validation
// failures deterministically repeat and are not.
func retryable(err error) bool {
	return errors.Is(err, maestroerrors.ErrStepTimeout) ||
		errors.Is(err, maestroerrors.ErrTransientExecution)
}

// outputOf extracts delegate output from a possibly nil result.
func outputOf(result *domain.ExecutionResult) string {
	if result == nil {
		return ""
	}
	return result.Output
}
