package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	"github.com/kestrelworks/maestro/internal/oversight"
)

// runSteps drives the task's steps until completion, pause, cancellation,
// or failure. Steps form a linear dependency chain, so slice order is
// dependency order; already-finished steps are skipped, which is what makes
// Resume continue from the right place.
//
// Pause and cancel are honored at the checkpoint before each step; a
// cancel additionally aborts the in-flight step through the run context.
func (o *Orchestrator) runSteps(ctx context.Context, task *domain.Task, startedAt time.Time) (*Report, error) {
	for i := range task.Steps {
		step := &task.Steps[i]
		if step.Status == constants.StepStatusCompleted || step.Status == constants.StepStatusSkipped {
			continue
		}

		if report, done, err := o.checkInterruption(ctx, task, startedAt); done {
			return report, err
		}

		if err := o.gateStep(ctx, task, step); err != nil {
			report, terminalErr := o.finishGateFailure(ctx, task, startedAt, err)
			return report, terminalErr
		}

		if err := o.store.SetCurrentStep(task.ID, step.ID); err != nil {
			o.logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to record current step")
		}

		result, err := o.engine.ExecuteStep(ctx, task, step)
		o.recordStep(task.ID, step, result)

		if err != nil {
			if ctx.Err() != nil {
				if _, cancelled := o.interrupted(); cancelled {
					o.toTerminal(context.WithoutCancel(ctx), task, constants.TaskStatusCancelled, "cancelled during step "+step.ID)
					o.checkpoint(ctx)
					return buildReport(task, startedAt, o.clock.Now(), "cancelled"), err
				}
				return buildReport(task, startedAt, o.clock.Now(), ctx.Err().Error()), ctx.Err()
			}

			reason := fmt.Sprintf("step %s failed: %s", step.ID, err.Error())
			o.fail(ctx, task, reason)
			return buildReport(task, startedAt, o.clock.Now(), reason), err
		}

		o.advanceProgress(task)
		o.checkpoint(ctx)
	}

	if err := o.store.SetCurrentStep(task.ID, ""); err != nil {
		o.logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to clear current step")
	}
	if err := Transition(ctx, task, constants.TaskStatusCompleted, "all steps finished"); err != nil {
		return buildReport(task, startedAt, o.clock.Now(), err.Error()), err
	}
	if err := o.store.SetTaskStatus(task.ID, task.Status); err != nil {
		return buildReport(task, startedAt, o.clock.Now(), err.Error()), err
	}
	if err := o.store.UpdateTaskProgress(task.ID, constants.MaxProgressPercent); err != nil {
		o.logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to record final progress")
	}
	o.checkpoint(ctx)

	o.logger.Info().
		Str("task_id", task.ID).
		Int("steps", len(task.Steps)).
		Dur("duration", o.clock.Now().Sub(startedAt)).
		Msg("task completed")

	return buildReport(task, startedAt, o.clock.Now(), ""), nil
}

// checkInterruption applies a pending pause or cancel request at a step
// checkpoint. done is true when the run must stop here.
func (o *Orchestrator) checkInterruption(ctx context.Context, task *domain.Task, startedAt time.Time) (*Report, bool, error) {
	pause, cancel := o.interrupted()
	statusCtx := context.WithoutCancel(ctx)

	switch {
	case cancel:
		o.toTerminal(statusCtx, task, constants.TaskStatusCancelled, "cancelled by operator")
		o.checkpoint(ctx)
		return buildReport(task, startedAt, o.clock.Now(), "cancelled"), true, nil

	case pause:
		if err := Transition(statusCtx, task, constants.TaskStatusPaused, "paused by operator"); err != nil {
			return buildReport(task, startedAt, o.clock.Now(), err.Error()), true, err
		}
		if err := o.store.SetTaskStatus(task.ID, task.Status); err != nil {
			return buildReport(task, startedAt, o.clock.Now(), err.Error()), true, err
		}
		o.checkpoint(ctx)
		o.logger.Info().Str("task_id", task.ID).Msg("execution paused")
		return buildReport(task, startedAt, o.clock.Now(), ""), true, nil

	case ctx.Err() != nil:
		o.toTerminal(statusCtx, task, constants.TaskStatusCancelled, "run context cancelled")
		o.checkpoint(ctx)
		return buildReport(task, startedAt, o.clock.Now(), ctx.Err().Error()), true, ctx.Err()
	}

	return nil, false, nil
}

// gateStep requests approval before destructive steps, moving the task
// through AwaitingApproval and back. Non-destructive steps pass untouched;
// destructive ones carry the task's assessed risk into the request.
func (o *Orchestrator) gateStep(ctx context.Context, task *domain.Task, step *domain.Step) error {
	if !step.Action.Destructive() || !o.gate.NeedsApproval(task.Risk.Level) {
		return nil
	}

	if err := Transition(ctx, task, constants.TaskStatusAwaitingApproval, "destructive step "+step.ID); err != nil {
		return err
	}
	if err := o.store.SetTaskStatus(task.ID, task.Status); err != nil {
		return err
	}
	o.checkpoint(ctx)

	_, err := o.gate.RequestApproval(ctx, oversight.ApprovalRequest{
		TaskID: task.ID,
		StepID: step.ID,
		Action: step.Action,
		Risk:   task.Risk.Level,
		Reason: fmt.Sprintf("destructive %s step requires approval", step.Action),
	})
	if err != nil {
		return err
	}

	if err := Transition(ctx, task, constants.TaskStatusExecuting, "step approved"); err != nil {
		return err
	}
	return o.store.SetTaskStatus(task.ID, task.Status)
}

// finishGateFailure resolves a step-gate failure into the task's terminal
// status and report.
func (o *Orchestrator) finishGateFailure(ctx context.Context, task *domain.Task, startedAt time.Time, gateErr error) (*Report, error) {
	o.resolveGateFailure(ctx, task, gateErr)
	o.checkpoint(ctx)

	if errors.Is(gateErr, context.Canceled) {
		if _, cancelled := o.interrupted(); cancelled {
			return buildReport(task, startedAt, o.clock.Now(), "cancelled"), gateErr
		}
	}

	return buildReport(task, startedAt, o.clock.Now(), gateErr.Error()), gateErr
}

// recordStep appends the step outcome to the execution history.
func (o *Orchestrator) recordStep(taskID string, step *domain.Step, result *domain.ExecutionResult) {
	entry := domain.ExecutionHistoryEntry{
		TaskID:    taskID,
		StepID:    step.ID,
		Status:    step.Status,
		Timestamp: o.clock.Now(),
	}

	if result != nil {
		entry.DurationMS = result.DurationMS
		entry.Success = result.Success
		if !result.Success {
			entry.Detail = result.Error
		}
	}

	if err := o.store.RecordExecutionStep(entry); err != nil {
		o.logger.Error().Err(err).Str("task_id", taskID).Str("step_id", step.ID).Msg("failed to record history entry")
	}
}

// advanceProgress recomputes progress from finished steps. The percentage
// only ever grows within a plan version, so the store's monotonic check
// stays satisfied.
func (o *Orchestrator) advanceProgress(task *domain.Task) {
	if len(task.Steps) == 0 {
		return
	}

	percent := float64(task.CompletedSteps()) / float64(len(task.Steps)) * constants.MaxProgressPercent
	if err := o.store.UpdateTaskProgress(task.ID, percent); err != nil {
		o.logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to record progress")
	}
}
