package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kestrelworks/maestro/internal/clock"
	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	"github.com/kestrelworks/maestro/internal/engine"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
	"github.com/kestrelworks/maestro/internal/logging"
	"github.com/kestrelworks/maestro/internal/oversight"
	"github.com/kestrelworks/maestro/internal/planner"
	"github.com/kestrelworks/maestro/internal/state"
)

// Snapshotter persists agent state at checkpoints. It is satisfied by
// state.SnapshotStore; a nil Snapshotter disables persistence.
type Snapshotter interface {
	Save(ctx context.Context, workspace string, st domain.AgentState) error
}

// ExecutionStatus is a read-only view of the orchestrator's current state,
// safe to render while execution is in flight.
type ExecutionStatus struct {
	// TaskID is the current task, empty when idle.
	TaskID string `json:"task_id,omitempty"`

	// Goal is the current task's goal.
	Goal string `json:"goal,omitempty"`

	// Status is the current task's status.
	Status constants.TaskStatus `json:"status,omitempty"`

	// Progress is the current progress percentage.
	Progress float64 `json:"progress"`

	// CurrentStepID is the step in flight, if any.
	CurrentStepID string `json:"current_step_id,omitempty"`

	// QueueLength is the number of tasks waiting behind the current one.
	QueueLength int `json:"queue_length"`

	// Statistics summarizes session outcomes so far.
	Statistics domain.TaskStatistics `json:"statistics"`
}

// Orchestrator coordinates the planner, engine, oversight gate, and state
// store to drive goals from text to terminal status. One goal executes at a
// time; pause and cancel requests from other goroutines take effect at step
// checkpoints, and cancellation additionally aborts in-flight waits.
type Orchestrator struct {
	planner   *planner.Planner
	engine    *engine.Engine
	store     *state.Store
	gate      *oversight.Gate
	snapshots Snapshotter
	workspace string
	clock     clock.Clock
	logger    zerolog.Logger

	mu         sync.Mutex
	executing  bool
	pauseFlag  bool
	cancelFlag bool
	execCancel context.CancelFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the system clock for deterministic timing.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithSnapshotter enables state persistence for the given workspace.
func WithSnapshotter(s Snapshotter, workspace string) Option {
	return func(o *Orchestrator) {
		o.snapshots = s
		o.workspace = workspace
	}
}

// New creates an Orchestrator wiring the given components together.
func New(p *planner.Planner, e *engine.Engine, st *state.Store, g *oversight.Gate, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		planner: p,
		engine:  e,
		store:   st,
		gate:    g,
		clock:   clock.RealClock{},
		logger:  logger.With().Str("component", "orchestrator").Logger(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Planner exposes the wired planner for plan-only commands that never
// touch execution state.
func (o *Orchestrator) Planner() *planner.Planner {
	return o.planner
}

// ExecuteGoal plans and executes a goal to a terminal status, honoring pause
// and cancel requests at step checkpoints. Only one goal may execute at a
// time; a second call while active returns ErrExecutionInProgress.
//
// A paused run leaves the task in Paused status and returns without error;
// Resume continues it. The returned Report always reflects the task's final
// status for this run, including failures.
func (o *Orchestrator) ExecuteGoal(ctx context.Context, goal string) (*Report, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.setExecCancel(cancel)

	startedAt := o.clock.Now()

	task, err := o.planner.DecomposeGoal(goal)
	if err != nil {
		return nil, maestroerrors.Wrap(err, "failed to plan goal")
	}

	if err := Transition(runCtx, task, constants.TaskStatusPlanning, "goal accepted"); err != nil {
		return nil, err
	}
	if err := o.store.SetCurrentTask(task); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("task_id", task.ID).
		Str("goal", logging.GoalValue(task.Goal)).
		Str("complexity", string(task.Complexity.Level)).
		Str("risk", string(task.Risk.Level)).
		Int("steps", len(task.Steps)).
		Msg("goal planned")

	if err := o.gateTask(runCtx, task); err != nil {
		o.checkpoint(runCtx)
		return buildReport(task, startedAt, o.clock.Now(), err.Error()), err
	}

	return o.runSteps(runCtx, task, startedAt)
}

// Resume continues a paused task from its first unfinished step.
// Returns ErrNotPaused when the current task is not paused.
func (o *Orchestrator) Resume(ctx context.Context) (*Report, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.setExecCancel(cancel)

	task, err := o.store.GetCurrentTask()
	if err != nil {
		return nil, err
	}
	if task.Status != constants.TaskStatusPaused {
		return nil, maestroerrors.Wrapf(maestroerrors.ErrNotPaused, "task %s is %s", task.ID, task.Status)
	}

	if err := Transition(runCtx, task, constants.TaskStatusExecuting, "resumed by operator"); err != nil {
		return nil, err
	}
	if err := o.store.SetTaskStatus(task.ID, task.Status); err != nil {
		return nil, err
	}

	o.logger.Info().Str("task_id", task.ID).Msg("execution resumed")

	return o.runSteps(runCtx, task, o.clock.Now())
}

// PauseExecution requests a pause of the current task. Valid while the task
// is executing or blocked in an approval wait; the in-flight step or
// approval resolves first, then execution stops at the next checkpoint.
// Returns ErrNotExecuting when nothing is executing.
func (o *Orchestrator) PauseExecution(reason string) error {
	view, err := o.currentInterruptible()
	if err != nil {
		return err
	}

	if _, err := o.gate.HandleIntervention(domain.InterventionPause, view.ID, view.Status, reason); err != nil {
		return err
	}

	o.mu.Lock()
	o.pauseFlag = true
	o.mu.Unlock()

	return nil
}

// CancelExecution cancels the current task. Unlike pause, cancellation also
// aborts in-flight steps and pending approval waits. Remaining steps are
// discarded; history is preserved.
//
// When no execution is in flight, a paused task is cancelled directly: its
// terminal transition is applied and checkpointed here instead of at a
// step checkpoint.
func (o *Orchestrator) CancelExecution(reason string) error {
	view, err := o.currentInterruptible()
	if err != nil {
		return err
	}

	if _, err := o.gate.HandleIntervention(domain.InterventionCancel, view.ID, view.Status, reason); err != nil {
		return err
	}

	o.mu.Lock()
	executing := o.executing
	o.cancelFlag = true
	if o.execCancel != nil {
		o.execCancel()
	}
	o.mu.Unlock()

	if !executing {
		// No run goroutine owns the task, so it is safe to transition the
		// shared pointer here.
		task, err := o.store.GetCurrentTask()
		if err != nil {
			return err
		}
		ctx := context.Background()
		o.toTerminal(ctx, task, constants.TaskStatusCancelled, reason)
		o.checkpoint(ctx)
	}

	return nil
}

// ApplyFeedback re-plans the current paused task with operator feedback.
// The adapted plan keeps the task ID, bumps its version, and resets
// progress, so the progress high-water mark is cleared as well.
func (o *Orchestrator) ApplyFeedback(ctx context.Context, feedback string) (*domain.Task, error) {
	task, err := o.store.GetCurrentTask()
	if err != nil {
		return nil, err
	}

	if _, err := o.gate.HandleIntervention(domain.InterventionModify, task.ID, task.Status, feedback); err != nil {
		return nil, err
	}

	if err := Transition(ctx, task, constants.TaskStatusPlanning, "re-planning with feedback"); err != nil {
		return nil, err
	}

	adapted, err := o.planner.AdaptPlan(task, feedback)
	if err != nil {
		return nil, maestroerrors.Wrap(err, "failed to adapt plan")
	}
	adapted.Status = task.Status
	adapted.Transitions = task.Transitions

	if err := o.store.SetCurrentTask(adapted); err != nil {
		return nil, err
	}
	if err := o.store.ResetProgressMark(adapted.ID); err != nil {
		return nil, err
	}

	// Back to paused so the operator decides when to resume.
	if err := Transition(ctx, adapted, constants.TaskStatusPaused, "awaiting resume after re-plan"); err != nil {
		return nil, err
	}
	if err := o.store.SetTaskStatus(adapted.ID, adapted.Status); err != nil {
		return nil, err
	}

	o.checkpoint(ctx)
	return adapted, nil
}

// GetExecutionStatus returns a read-only view of the current state. The
// task fields come from a snapshot taken under the store lock, so it stays
// safe to call while execution is in flight.
func (o *Orchestrator) GetExecutionStatus() ExecutionStatus {
	status := ExecutionStatus{
		QueueLength: o.store.QueueLength(),
		Statistics:  o.store.GetTaskStatistics(),
	}

	view, err := o.store.CurrentTaskView()
	if err != nil {
		return status
	}

	status.TaskID = view.ID
	status.Goal = view.Goal
	status.Status = view.Status
	status.Progress = view.Progress
	status.CurrentStepID = view.CurrentStepID

	return status
}

// EnqueueGoal plans a goal and appends the resulting task to the FIFO
// queue without executing it.
func (o *Orchestrator) EnqueueGoal(goal string) (*domain.Task, error) {
	task, err := o.planner.DecomposeGoal(goal)
	if err != nil {
		return nil, maestroerrors.Wrap(err, "failed to plan goal")
	}
	if err := o.store.AddTaskToQueue(task); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("task_id", task.ID).
		Str("goal", logging.GoalValue(task.Goal)).
		Int("queue_length", o.store.QueueLength()).
		Msg("goal queued")
	return task, nil
}

// ProcessQueue drains the queue in FIFO order, executing each task to a
// terminal status. A paused task stops the drain; failed and cancelled
// tasks do not. Returns the reports in execution order.
func (o *Orchestrator) ProcessQueue(ctx context.Context) ([]*Report, error) {
	var reports []*Report

	for {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		next, err := o.store.GetNextTask()
		if err != nil {
			if errors.Is(err, maestroerrors.ErrQueueEmpty) {
				return reports, nil
			}
			return reports, err
		}

		report, err := o.executeQueued(ctx, next)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil && !isTaskOutcome(err) {
			return reports, err
		}
		if report != nil && report.Status == constants.TaskStatusPaused {
			return reports, nil
		}
	}
}

// executeQueued drives one already-planned task from the queue.
func (o *Orchestrator) executeQueued(ctx context.Context, task *domain.Task) (*Report, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.setExecCancel(cancel)

	startedAt := o.clock.Now()

	if task.Status == constants.TaskStatusPending {
		if err := Transition(runCtx, task, constants.TaskStatusPlanning, "dequeued"); err != nil {
			return nil, err
		}
	}
	if err := o.store.SetCurrentTask(task); err != nil {
		return nil, err
	}

	if err := o.gateTask(runCtx, task); err != nil {
		o.checkpoint(runCtx)
		return buildReport(task, startedAt, o.clock.Now(), err.Error()), err
	}

	return o.runSteps(runCtx, task, startedAt)
}

// isTaskOutcome reports whether an execution error describes the task's own
// terminal outcome rather than an orchestrator failure. Queue processing
// continues past these.
func isTaskOutcome(err error) bool {
	return errors.Is(err, maestroerrors.ErrApprovalDenied) ||
		errors.Is(err, maestroerrors.ErrApprovalTimeout) ||
		errors.Is(err, maestroerrors.ErrStepTimeout) ||
		errors.Is(err, maestroerrors.ErrPermissionDenied) ||
		errors.Is(err, maestroerrors.ErrSecurityLevel) ||
		errors.Is(err, maestroerrors.ErrTransientExecution) ||
		errors.Is(err, maestroerrors.ErrUnknownAction)
}

// begin marks the orchestrator busy.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.executing {
		return maestroerrors.ErrExecutionInProgress
	}

	o.executing = true
	o.pauseFlag = false
	o.cancelFlag = false

	return nil
}

// end marks the orchestrator idle.
func (o *Orchestrator) end() {
	o.mu.Lock()
	o.executing = false
	o.execCancel = nil
	o.mu.Unlock()
}

func (o *Orchestrator) setExecCancel(cancel context.CancelFunc) {
	o.mu.Lock()
	o.execCancel = cancel
	o.mu.Unlock()
}

// currentInterruptible snapshots the current task if execution is active.
func (o *Orchestrator) currentInterruptible() (state.TaskView, error) {
	o.mu.Lock()
	executing := o.executing
	o.mu.Unlock()

	view, err := o.store.CurrentTaskView()
	if err != nil {
		if errors.Is(err, maestroerrors.ErrNoCurrentTask) {
			return state.TaskView{}, maestroerrors.ErrNotExecuting
		}
		return state.TaskView{}, err
	}

	if !executing && view.Status != constants.TaskStatusPaused &&
		view.Status != constants.TaskStatusAwaitingApproval {
		return state.TaskView{}, maestroerrors.Wrapf(maestroerrors.ErrNotExecuting, "task %s is %s", view.ID, view.Status)
	}

	return view, nil
}

// interrupted returns the pending pause/cancel request, if any.
func (o *Orchestrator) interrupted() (pause, cancel bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pauseFlag, o.cancelFlag
}

// checkpoint persists the current state snapshot, logging failures rather
// than interrupting execution.
func (o *Orchestrator) checkpoint(ctx context.Context) {
	if o.snapshots == nil {
		return
	}

	// Persist even when the run context was cancelled.
	saveCtx := context.WithoutCancel(ctx)
	if err := o.snapshots.Save(saveCtx, o.workspace, o.store.Snapshot()); err != nil {
		o.logger.Error().Err(err).Str("workspace", o.workspace).Msg("failed to persist state snapshot")
	}
}

// fail transitions the task to Failed, recording the reason everywhere it
// belongs.
func (o *Orchestrator) fail(ctx context.Context, task *domain.Task, reason string) {
	if err := Transition(ctx, task, constants.TaskStatusFailed, reason); err != nil {
		o.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to record failure transition")
		return
	}
	if err := o.store.SetTaskStatus(task.ID, task.Status); err != nil {
		o.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to record failure status")
	}
	o.checkpoint(ctx)
}

// gateTask requests approval for the whole plan when its assessed risk
// exceeds the auto-approval policy. Denial or timeout cancels the task.
func (o *Orchestrator) gateTask(ctx context.Context, task *domain.Task) error {
	if !o.gate.NeedsApproval(task.Risk.Level) {
		if err := Transition(ctx, task, constants.TaskStatusExecuting, "risk within policy"); err != nil {
			return err
		}
		return o.store.SetTaskStatus(task.ID, task.Status)
	}

	if err := Transition(ctx, task, constants.TaskStatusAwaitingApproval, "plan requires approval"); err != nil {
		return err
	}
	if err := o.store.SetTaskStatus(task.ID, task.Status); err != nil {
		return err
	}
	o.checkpoint(ctx)

	_, err := o.gate.RequestApproval(ctx, oversight.ApprovalRequest{
		TaskID: task.ID,
		Risk:   task.Risk.Level,
		Reason: fmt.Sprintf("plan assessed at %s risk", task.Risk.Level),
	})
	if err != nil {
		o.resolveGateFailure(ctx, task, err)
		return err
	}

	if err := Transition(ctx, task, constants.TaskStatusExecuting, "plan approved"); err != nil {
		return err
	}
	return o.store.SetTaskStatus(task.ID, task.Status)
}

// resolveGateFailure maps an approval failure onto the task's terminal
// status: denial and timeout cancel it, anything else fails it.
func (o *Orchestrator) resolveGateFailure(ctx context.Context, task *domain.Task, err error) {
	statusCtx := context.WithoutCancel(ctx)

	switch {
	case errors.Is(err, maestroerrors.ErrApprovalDenied):
		o.toTerminal(statusCtx, task, constants.TaskStatusCancelled, "approval denied")
	case errors.Is(err, maestroerrors.ErrApprovalTimeout):
		o.toTerminal(statusCtx, task, constants.TaskStatusCancelled, "approval timed out")
	case errors.Is(err, context.Canceled):
		o.toTerminal(statusCtx, task, constants.TaskStatusCancelled, "cancelled while awaiting approval")
	default:
		o.toTerminal(statusCtx, task, constants.TaskStatusFailed, err.Error())
	}
}

// toTerminal applies a terminal transition and records it in the store.
func (o *Orchestrator) toTerminal(ctx context.Context, task *domain.Task, status constants.TaskStatus, reason string) {
	if err := Transition(ctx, task, status, reason); err != nil {
		o.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to apply terminal transition")
		return
	}
	if err := o.store.SetTaskStatus(task.ID, task.Status); err != nil {
		o.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to record terminal status")
	}
}
