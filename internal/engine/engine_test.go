package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/maestro/internal/config"
	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
)

// mockDelegate implements Delegate for testing.
type mockDelegate struct {
	action    domain.ActionType
	callCount int
	execFunc  func(ctx context.Context, task *domain.Task, step *domain.Step) (*domain.ExecutionResult, error)
}

func (m *mockDelegate) Action() domain.ActionType { return m.action }

func (m *mockDelegate) Execute(ctx context.Context, task *domain.Task, step *domain.Step) (*domain.ExecutionResult, error) {
	m.callCount++
	if m.execFunc != nil {
		return m.execFunc(ctx, task, step)
	}
	return &domain.ExecutionResult{StepID: step.ID, Success: true, Output: "ok"}, nil
}

func permissiveConfig() Config {
	return Config{
		Timeout:          time.Second,
		MaxRetryAttempts: 2,
		RetryBackoff:     time.Millisecond,
		Execution: domain.ExecutionContext{
			Constraints: domain.Constraints{
				AllowedOperations: domain.AllActionTypes,
				SecurityLevel:     constants.SecurityLevelElevated,
			},
		},
	}
}

func testTask() (*domain.Task, *domain.Step) {
	step := &domain.Step{
		ID:          "step-1",
		Action:      domain.ActionEdit,
		Description: "edit the handler",
		Status:      constants.StepStatusPending,
	}
	task := &domain.Task{
		ID:    "task-test",
		Goal:  "edit the handler",
		Steps: []domain.Step{*step},
	}
	return task, step
}

func TestExecuteStep_Success(t *testing.T) {
	delegate := &mockDelegate{action: domain.ActionEdit}
	registry := NewRegistry()
	registry.Register(delegate)

	e := New(registry, permissiveConfig(), zerolog.Nop())
	task, step := testTask()

	result, err := e.ExecuteStep(context.Background(), task, step)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, delegate.callCount)
	assert.Equal(t, constants.StepStatusCompleted, step.Status)
	require.NotNil(t, step.StartedAt)
	require.NotNil(t, step.CompletedAt)
}

func TestExecuteStep_OperationNotAllowed(t *testing.T) {
	registry := NewRegistry()
	delegate := &mockDelegate{action: domain.ActionEdit}
	registry.Register(delegate)

	cfg := permissiveConfig()
	cfg.Execution.Constraints.AllowedOperations = []domain.ActionType{domain.ActionAnalyze}

	e := New(registry, cfg, zerolog.Nop())
	task, step := testTask()

	result, err := e.ExecuteStep(context.Background(), task, step)
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrPermissionDenied)
	assert.False(t, result.Success)
	assert.Equal(t, 0, delegate.callCount, "denied steps never reach the delegate")
	assert.Equal(t, constants.StepStatusFailed, step.Status)
}

func TestExecuteStep_EmptyAllowlistPermitsNothing(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&mockDelegate{action: domain.ActionAnalyze})

	cfg := permissiveConfig()
	cfg.Execution.Constraints.AllowedOperations = nil

	e := New(registry, cfg, zerolog.Nop())
	task, step := testTask()
	step.Action = domain.ActionAnalyze

	_, err := e.ExecuteStep(context.Background(), task, step)
	assert.ErrorIs(t, err, maestroerrors.ErrPermissionDenied)
}

func TestExecuteStep_DestructiveRequiresElevated(t *testing.T) {
	delegate := &mockDelegate{action: domain.ActionDelete}
	registry := NewRegistry()
	registry.Register(delegate)

	cfg := permissiveConfig()
	cfg.Execution.Constraints.SecurityLevel = constants.SecurityLevelStandard

	e := New(registry, cfg, zerolog.Nop())
	task, step := testTask()
	step.Action = domain.ActionDelete

	_, err := e.ExecuteStep(context.Background(), task, step)
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrSecurityLevel)
	assert.Equal(t, 0, delegate.callCount)
}

func TestExecuteStep_UnknownAction(t *testing.T) {
	e := New(NewRegistry(), permissiveConfig(), zerolog.Nop())
	task, step := testTask()

	_, err := e.ExecuteStep(context.Background(), task, step)
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrUnknownAction)
}

func TestExecuteStep_TransientErrorRetried(t *testing.T) {
	delegate := &mockDelegate{action: domain.ActionEdit}
	delegate.execFunc = func(_ context.Context, _ *domain.Task, step *domain.Step) (*domain.ExecutionResult, error) {
		if delegate.callCount < 3 {
			return nil, maestroerrors.Wrap(maestroerrors.ErrTransientExecution, "flaky backend")
		}
		return &domain.ExecutionResult{StepID: step.ID, Success: true, Output: "recovered"}, nil
	}

	registry := NewRegistry()
	registry.Register(delegate)

	e := New(registry, permissiveConfig(), zerolog.Nop())
	task, step := testTask()

	result, err := e.ExecuteStep(context.Background(), task, step)
	require.NoError(t, err)
	assert.Equal(t, 3, delegate.callCount, "two retries after the first failure")
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "recovered", result.Output)
}

func TestExecuteStep_RetryBudgetExhausted(t *testing.T) {
	delegate := &mockDelegate{action: domain.ActionEdit}
	delegate.execFunc = func(_ context.Context, _ *domain.Task, _ *domain.Step) (*domain.ExecutionResult, error) {
		return nil, maestroerrors.Wrap(maestroerrors.ErrTransientExecution, "still flaky")
	}

	registry := NewRegistry()
	registry.Register(delegate)

	e := New(registry, permissiveConfig(), zerolog.Nop())
	task, step := testTask()

	result, err := e.ExecuteStep(context.Background(), task, step)
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrTransientExecution)
	assert.Equal(t, 3, delegate.callCount, "initial attempt plus two retries")
	assert.False(t, result.Success)
	assert.Equal(t, constants.StepStatusFailed, step.Status)
	assert.NotEmpty(t, step.Error)
}

func TestExecuteStep_PermissionErrorNotRetried(t *testing.T) {
	delegate := &mockDelegate{action: domain.ActionEdit}
	delegate.execFunc = func(_ context.Context, _ *domain.Task, _ *domain.Step) (*domain.ExecutionResult, error) {
		return nil, maestroerrors.Wrap(maestroerrors.ErrPermissionDenied, "read-only mount")
	}

	registry := NewRegistry()
	registry.Register(delegate)

	e := New(registry, permissiveConfig(), zerolog.Nop())
	task, step := testTask()

	_, err := e.ExecuteStep(context.Background(), task, step)
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrPermissionDenied)
	assert.Equal(t, 1, delegate.callCount, "deterministic failures get no retry")
}

func TestExecuteStep_TimeoutClassified(t *testing.T) {
	delegate := &mockDelegate{action: domain.ActionEdit}
	delegate.execFunc = func(ctx context.Context, _ *domain.Task, _ *domain.Step) (*domain.ExecutionResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	registry := NewRegistry()
	registry.Register(delegate)

	cfg := permissiveConfig()
	cfg.Timeout = 5 * time.Millisecond
	cfg.MaxRetryAttempts = 1
	cfg.RetryBackoff = 0

	e := New(registry, cfg, zerolog.Nop())
	task, step := testTask()

	_, err := e.ExecuteStep(context.Background(), task, step)
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrStepTimeout)
	assert.Equal(t, 2, delegate.callCount, "timeouts are retried")
}

func TestExecuteStep_CallerCancellationNotRetried(t *testing.T) {
	delegate := &mockDelegate{action: domain.ActionEdit}
	delegate.execFunc = func(ctx context.Context, _ *domain.Task, _ *domain.Step) (*domain.ExecutionResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	registry := NewRegistry()
	registry.Register(delegate)

	e := New(registry, permissiveConfig(), zerolog.Nop())
	task, step := testTask()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExecuteStep(ctx, task, step)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, delegate.callCount)
}

func TestExecuteStep_NilArguments(t *testing.T) {
	e := New(NewRegistry(), permissiveConfig(), zerolog.Nop())

	_, err := e.ExecuteStep(context.Background(), nil, nil)
	assert.ErrorIs(t, err, maestroerrors.ErrEmptyValue)
}

func TestSimulatedDelegate_Execute(t *testing.T) {
	d := NewSimulatedDelegate(domain.ActionCreate, 0)
	task, step := testTask()
	step.Action = domain.ActionCreate

	result, err := d.Execute(context.Background(), task, step)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "create")
	assert.Contains(t, result.Output, task.ID)
}

func TestSimulatedDelegate_Cancellation(t *testing.T) {
	d := NewSimulatedDelegate(domain.ActionCreate, time.Minute)
	task, step := testTask()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Execute(ctx, task, step)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDefaultRegistry_CoversAllActions(t *testing.T) {
	r := DefaultRegistry()
	for _, action := range domain.AllActionTypes {
		assert.True(t, r.Has(action), "missing delegate for %s", action)
	}
	assert.Len(t, r.Actions(), len(domain.AllActionTypes))
}

func TestConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Execution.AllowedOperations = []string{"analyze", "edit", "teleport"}
	cfg.Execution.SecurityLevel = "standard"

	ec := ConfigFrom(cfg)

	assert.Equal(t, cfg.Execution.Timeout, ec.Timeout)
	assert.Equal(t, cfg.Execution.MaxRetryAttempts, ec.MaxRetryAttempts)
	assert.Equal(t, constants.SecurityLevelStandard, ec.Execution.Constraints.SecurityLevel)
	assert.ElementsMatch(t,
		[]domain.ActionType{domain.ActionAnalyze, domain.ActionEdit},
		ec.Execution.Constraints.AllowedOperations,
		"unknown operation names are dropped, not granted")
}

func TestConfigFrom_EmptyAllowlistGrantsAll(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Execution.AllowedOperations = nil

	ec := ConfigFrom(cfg)

	assert.ElementsMatch(t, domain.AllActionTypes, ec.Execution.Constraints.AllowedOperations)
}
