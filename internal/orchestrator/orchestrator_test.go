package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	"github.com/kestrelworks/maestro/internal/engine"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
	"github.com/kestrelworks/maestro/internal/oversight"
	"github.com/kestrelworks/maestro/internal/planner"
	"github.com/kestrelworks/maestro/internal/state"
)

// trackingDelegate counts executions per step and optionally blocks until
// released, so tests can interrupt mid-run.
type trackingDelegate struct {
	action domain.ActionType

	mu      sync.Mutex
	perStep map[string]int
	block   chan struct{}
	started chan string
}

func newTrackingDelegate(action domain.ActionType) *trackingDelegate {
	return &trackingDelegate{
		action:  action,
		perStep: make(map[string]int),
		started: make(chan string, 32),
	}
}

func (d *trackingDelegate) Action() domain.ActionType { return d.action }

func (d *trackingDelegate) Execute(ctx context.Context, _ *domain.Task, step *domain.Step) (*domain.ExecutionResult, error) {
	d.mu.Lock()
	d.perStep[step.ID]++
	block := d.block
	d.mu.Unlock()

	select {
	case d.started <- step.ID:
	default:
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &domain.ExecutionResult{StepID: step.ID, Success: true, Output: "done"}, nil
}

func (d *trackingDelegate) executions(stepID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.perStep[stepID]
}

func (d *trackingDelegate) totalExecutions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.perStep {
		n += c
	}
	return n
}

type fixture struct {
	orch  *Orchestrator
	store *state.Store
	gate  *oversight.Gate
}

// newFixture wires an orchestrator with simulated delegates, a permissive
// engine policy, and the given auto-approval level.
func newFixture(t *testing.T, level constants.AutoApprovalLevel, registry *engine.Registry) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	st := state.NewStore(logger)
	t.Cleanup(st.Dispose)

	gate := oversight.NewGate(oversight.Config{
		AutoApprovalLevel: level,
		ApprovalTimeout:   5 * time.Second,
	}, st, logger)

	if registry == nil {
		registry = engine.DefaultRegistry()
	}

	eng := engine.New(registry, engine.Config{
		Timeout:          5 * time.Second,
		MaxRetryAttempts: 1,
		Execution: domain.ExecutionContext{
			Constraints: domain.Constraints{
				AllowedOperations: domain.AllActionTypes,
				SecurityLevel:     constants.SecurityLevelElevated,
			},
		},
	}, logger)

	p := planner.New(constants.RiskToleranceBalanced, logger)

	return &fixture{
		orch:  New(p, eng, st, gate, logger),
		store: st,
		gate:  gate,
	}
}

func TestExecuteGoal_EndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t, constants.AutoApprovalHigh, nil)

	report, err := f.orch.ExecuteGoal(context.Background(), "Create a simple utility function with documentation")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, constants.TaskStatusCompleted, report.Status)
	assert.Positive(t, report.StepsTotal)
	assert.Equal(t, report.StepsTotal, report.StepsCompleted)
	assert.InDelta(t, 100, report.Progress, 0.001)
	assert.LessOrEqual(t, report.Risk.Rank(), domain.RiskMedium.Rank())

	history := f.store.GetExecutionHistory(report.TaskID)
	assert.Len(t, history, report.StepsTotal, "one history entry per executed step")
	for _, entry := range history {
		assert.True(t, entry.Success)
	}

	stats := f.store.GetTaskStatistics()
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.InDelta(t, 1.0, stats.SuccessRate, 0.001)
}

func TestExecuteGoal_EmptyGoal(t *testing.T) {
	t.Parallel()
	f := newFixture(t, constants.AutoApprovalHigh, nil)

	_, err := f.orch.ExecuteGoal(context.Background(), "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrInvalidGoal)
}

func TestExecuteGoal_SecondCallRejected(t *testing.T) {
	t.Parallel()

	delegate := newTrackingDelegate(domain.ActionAnalyze)
	delegate.block = make(chan struct{})
	registry := engine.DefaultRegistry()
	registry.Register(delegate)

	f := newFixture(t, constants.AutoApprovalHigh, registry)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.orch.ExecuteGoal(context.Background(), "Analyze the config loader")
	}()

	<-delegate.started

	_, err := f.orch.ExecuteGoal(context.Background(), "Analyze something else")
	assert.ErrorIs(t, err, maestroerrors.ErrExecutionInProgress)

	close(delegate.block)
	<-done
}

func TestPauseAndResume(t *testing.T) {
	t.Parallel()

	delegate := newTrackingDelegate(domain.ActionAnalyze)
	delegate.block = make(chan struct{})
	registry := engine.DefaultRegistry()
	registry.Register(delegate)

	f := newFixture(t, constants.AutoApprovalHigh, registry)

	type result struct {
		report *Report
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		report, err := f.orch.ExecuteGoal(context.Background(), "Analyze and document the storage layer")
		resultCh <- result{report, err}
	}()

	// Wait until the first (analyze) step is in flight, then request pause
	// and let the step finish.
	firstStep := <-delegate.started
	require.NoError(t, f.orch.PauseExecution("operator pause"))
	close(delegate.block)

	res := <-resultCh
	require.NoError(t, res.err)
	require.NotNil(t, res.report)
	assert.Equal(t, constants.TaskStatusPaused, res.report.Status)
	assert.Equal(t, 1, delegate.executions(firstStep), "in-flight step finished before pausing")

	task, err := f.store.GetCurrentTask()
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusPaused, task.Status)
	completedBefore := task.CompletedSteps()
	assert.Positive(t, completedBefore)
	assert.Less(t, completedBefore, len(task.Steps), "pause left work remaining")

	// Resume finishes the rest without re-running completed steps.
	report, err := f.orch.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, report.Status)
	assert.Equal(t, 1, delegate.executions(firstStep), "completed steps are not re-executed")

	ivs := f.store.Interventions()
	require.NotEmpty(t, ivs)
	assert.Equal(t, domain.InterventionPause, ivs[0].Type)
	assert.Equal(t, domain.InterventionSourceUser, ivs[0].Source)
}

func TestPauseExecution_NotExecuting(t *testing.T) {
	t.Parallel()
	f := newFixture(t, constants.AutoApprovalHigh, nil)

	err := f.orch.PauseExecution("nothing running")
	assert.ErrorIs(t, err, maestroerrors.ErrNotExecuting)
}

func TestCancelDuringApprovalWait(t *testing.T) {
	t.Parallel()

	// AutoApprovalNone gates every plan, so execution blocks awaiting
	// approval immediately after planning.
	f := newFixture(t, constants.AutoApprovalNone, nil)

	type result struct {
		report *Report
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		report, err := f.orch.ExecuteGoal(context.Background(), "Edit the request handler")
		resultCh <- result{report, err}
	}()

	// Wait for the gate to publish the approval request, then cancel
	// instead of answering.
	<-f.gate.Requests()
	require.NoError(t, f.orch.CancelExecution("changed my mind"))

	res := <-resultCh
	require.Error(t, res.err)
	require.NotNil(t, res.report)
	assert.Equal(t, constants.TaskStatusCancelled, res.report.Status)

	task, err := f.store.GetCurrentTask()
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCancelled, task.Status)
	assert.Equal(t, 0, task.CompletedSteps(), "no step ran without approval")

	stats := f.store.GetTaskStatistics()
	assert.Equal(t, 1, stats.CancelledTasks)
}

func TestPauseDuringApprovalWait(t *testing.T) {
	t.Parallel()

	// AutoApprovalNone blocks the plan in an approval wait; a pause request
	// during that wait must be accepted and take effect once the approval
	// resolves, before the first step runs.
	f := newFixture(t, constants.AutoApprovalNone, nil)

	type result struct {
		report *Report
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		report, err := f.orch.ExecuteGoal(context.Background(), "Edit the request handler")
		resultCh <- result{report, err}
	}()

	req := <-f.gate.Requests()
	require.NoError(t, f.orch.PauseExecution("reviewing the plan first"))
	require.NoError(t, f.gate.SubmitResponse(oversight.ApprovalResponse{
		TaskID:   req.TaskID,
		StepID:   req.StepID,
		Approved: true,
		Reason:   "reviewed",
	}))

	res := <-resultCh
	require.NoError(t, res.err)
	require.NotNil(t, res.report)
	assert.Equal(t, constants.TaskStatusPaused, res.report.Status)

	task, err := f.store.GetCurrentTask()
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusPaused, task.Status)
	assert.Equal(t, 0, task.CompletedSteps(), "pause lands before the first step")

	var sawPause bool
	for _, iv := range f.store.Interventions() {
		if iv.Type == domain.InterventionPause {
			sawPause = true
		}
	}
	assert.True(t, sawPause)

	report, err := f.orch.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, report.Status)
}

func TestApprovalDenialCancelsTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, constants.AutoApprovalNone, nil)

	go func() {
		req := <-f.gate.Requests()
		_ = f.gate.SubmitResponse(oversight.ApprovalResponse{
			TaskID: req.TaskID,
			StepID: req.StepID,
			Reason: "not today",
		})
	}()

	report, err := f.orch.ExecuteGoal(context.Background(), "Edit the request handler")
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrApprovalDenied)
	require.NotNil(t, report)
	assert.Equal(t, constants.TaskStatusCancelled, report.Status)
}

func TestDestructiveStepGated(t *testing.T) {
	t.Parallel()

	// Medium auto-approval: the deletion plan itself is high risk, so the
	// plan gate fires; approve it, then the destructive step gate fires.
	f := newFixture(t, constants.AutoApprovalMedium, nil)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case req := <-f.gate.Requests():
				_ = f.gate.SubmitResponse(oversight.ApprovalResponse{
					TaskID:   req.TaskID,
					StepID:   req.StepID,
					Approved: true,
					Reason:   "reviewed",
				})
			case <-stop:
				return
			}
		}
	}()

	report, err := f.orch.ExecuteGoal(context.Background(), "Delete the deprecated legacy handlers")
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, report.Status)

	task, err := f.store.GetCurrentTask()
	require.NoError(t, err)

	// The audit trail shows the round trips through AwaitingApproval.
	gatedVisits := 0
	for _, tr := range task.Transitions {
		if tr.ToStatus == constants.TaskStatusAwaitingApproval {
			gatedVisits++
		}
	}
	assert.GreaterOrEqual(t, gatedVisits, 2, "plan gate plus destructive step gate")
}

func TestExecuteGoal_StepFailureFailsTask(t *testing.T) {
	t.Parallel()

	registry := engine.DefaultRegistry()
	registry.Register(&failingDelegate{action: domain.ActionEdit})

	f := newFixture(t, constants.AutoApprovalHigh, registry)

	report, err := f.orch.ExecuteGoal(context.Background(), "Edit the request handler")
	require.Error(t, err)
	assert.ErrorIs(t, err, maestroerrors.ErrTransientExecution)
	require.NotNil(t, report)
	assert.Equal(t, constants.TaskStatusFailed, report.Status)
	assert.NotEmpty(t, report.FailureReason)

	history := f.store.GetExecutionHistory(report.TaskID)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.False(t, last.Success)
	assert.NotEmpty(t, last.Detail)

	stats := f.store.GetTaskStatistics()
	assert.Equal(t, 1, stats.FailedTasks)
}

type failingDelegate struct {
	action domain.ActionType
}

func (d *failingDelegate) Action() domain.ActionType { return d.action }

func (d *failingDelegate) Execute(_ context.Context, _ *domain.Task, _ *domain.Step) (*domain.ExecutionResult, error) {
	return nil, maestroerrors.Wrap(maestroerrors.ErrTransientExecution, "backend unavailable")
}

func TestApplyFeedback(t *testing.T) {
	t.Parallel()

	delegate := newTrackingDelegate(domain.ActionAnalyze)
	delegate.block = make(chan struct{})
	registry := engine.DefaultRegistry()
	registry.Register(delegate)

	f := newFixture(t, constants.AutoApprovalHigh, registry)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.orch.ExecuteGoal(context.Background(), "Create a parser for config files")
	}()

	<-delegate.started
	require.NoError(t, f.orch.PauseExecution("pausing to adjust"))
	close(delegate.block)
	<-done

	before, err := f.store.GetCurrentTask()
	require.NoError(t, err)
	require.Equal(t, constants.TaskStatusPaused, before.Status)

	adapted, err := f.orch.ApplyFeedback(context.Background(), "add more validation")
	require.NoError(t, err)
	assert.Equal(t, before.ID, adapted.ID)
	assert.Equal(t, before.Version+1, adapted.Version)
	assert.Equal(t, constants.TaskStatusPaused, adapted.Status, "task stays paused until resumed")

	ivs := f.store.Interventions()
	var sawModify bool
	for _, iv := range ivs {
		if iv.Type == domain.InterventionModify {
			sawModify = true
		}
	}
	assert.True(t, sawModify)
}

func TestQueueProcessing(t *testing.T) {
	t.Parallel()
	f := newFixture(t, constants.AutoApprovalHigh, nil)

	first, err := f.orch.EnqueueGoal("Analyze the request handler")
	require.NoError(t, err)
	second, err := f.orch.EnqueueGoal("Document the storage layer")
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.QueueLength())

	reports, err := f.orch.ProcessQueue(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, first.ID, reports[0].TaskID, "queue drains in FIFO order")
	assert.Equal(t, second.ID, reports[1].TaskID)
	for _, r := range reports {
		assert.Equal(t, constants.TaskStatusCompleted, r.Status)
	}
	assert.Equal(t, 0, f.store.QueueLength())
}

func TestGetExecutionStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t, constants.AutoApprovalHigh, nil)

	status := f.orch.GetExecutionStatus()
	assert.Empty(t, status.TaskID)
	assert.Zero(t, status.QueueLength)

	_, err := f.orch.ExecuteGoal(context.Background(), "Analyze the request handler")
	require.NoError(t, err)

	status = f.orch.GetExecutionStatus()
	assert.NotEmpty(t, status.TaskID)
	assert.Equal(t, constants.TaskStatusCompleted, status.Status)
	assert.InDelta(t, 100, status.Progress, 0.001)
	assert.Equal(t, 1, status.Statistics.CompletedTasks)
}

func TestGetExecutionStatus_DuringExecution(t *testing.T) {
	t.Parallel()

	delegate := newTrackingDelegate(domain.ActionAnalyze)
	delegate.block = make(chan struct{})
	registry := engine.DefaultRegistry()
	registry.Register(delegate)

	f := newFixture(t, constants.AutoApprovalHigh, registry)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.orch.ExecuteGoal(context.Background(), "Analyze the request handler")
	}()

	<-delegate.started

	// Hammer the status view from other goroutines while the run is live.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = f.orch.GetExecutionStatus()
				}
			}
		}()
	}

	status := f.orch.GetExecutionStatus()
	assert.Equal(t, constants.TaskStatusExecuting, status.Status)
	assert.NotEmpty(t, status.TaskID)
	assert.NotEmpty(t, status.CurrentStepID)

	close(delegate.block)
	<-done
	close(stop)
	wg.Wait()

	final := f.orch.GetExecutionStatus()
	assert.Equal(t, constants.TaskStatusCompleted, final.Status)
	assert.InDelta(t, 100, final.Progress, 0.001)
}

func TestSnapshotterCheckpoints(t *testing.T) {
	t.Parallel()

	snaps := &capturingSnapshotter{}
	logger := zerolog.Nop()
	st := state.NewStore(logger)
	t.Cleanup(st.Dispose)

	gate := oversight.NewGate(oversight.Config{
		AutoApprovalLevel: constants.AutoApprovalHigh,
		ApprovalTimeout:   time.Second,
	}, st, logger)

	eng := engine.New(engine.DefaultRegistry(), engine.Config{
		Timeout: time.Second,
		Execution: domain.ExecutionContext{
			Constraints: domain.Constraints{
				AllowedOperations: domain.AllActionTypes,
				SecurityLevel:     constants.SecurityLevelElevated,
			},
		},
	}, logger)

	orch := New(planner.New(constants.RiskToleranceBalanced, logger), eng, st, gate, logger,
		WithSnapshotter(snaps, "testws"))

	report, err := orch.ExecuteGoal(context.Background(), "Analyze the request handler")
	require.NoError(t, err)

	require.NotEmpty(t, snaps.saves, "every step checkpoint persists state")
	last := snaps.last()
	assert.Equal(t, "testws", last.workspace)
	require.NotNil(t, last.state.CurrentTask)
	assert.Equal(t, report.TaskID, last.state.CurrentTask.ID)
	assert.Equal(t, constants.TaskStatusCompleted, last.state.CurrentTask.Status)
}

type capturedSave struct {
	workspace string
	state     domain.AgentState
}

type capturingSnapshotter struct {
	mu    sync.Mutex
	saves []capturedSave
}

func (c *capturingSnapshotter) Save(_ context.Context, workspace string, st domain.AgentState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, capturedSave{workspace: workspace, state: st})
	return nil
}

func (c *capturingSnapshotter) last() capturedSave {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves[len(c.saves)-1]
}
