// Package oversight provides the human-intervention gate: approval requests
// for risky steps, pause/cancel/modify handling, and the audit trail of
// every decision.
//
// The gate never changes task status itself. It validates that an
// intervention is allowed for the task's current status, records the
// decision, and leaves the actual transition to the orchestrator.
package oversight

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kestrelworks/maestro/internal/clock"
	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
)

// ApprovalRequest asks a human to allow a risky step before it runs.
type ApprovalRequest struct {
	// TaskID is the task whose step is gated.
	TaskID string

	// StepID is the gated step.
	StepID string

	// Action is the step's action type.
	Action domain.ActionType

	// Risk is the assessed risk level that triggered gating.
	Risk domain.RiskLevel

	// Reason describes why approval is required.
	Reason string
}

// ApprovalResponse is the decision on an approval request.
type ApprovalResponse struct {
	// TaskID identifies the request being answered.
	TaskID string

	// StepID identifies the gated step.
	StepID string

	// Approved indicates whether the step may proceed.
	Approved bool

	// Reason provides context, mandatory for denials.
	Reason string

	// Source is who decided: "user" or "auto".
	Source string
}

// InterventionRecorder is the slice of the state store the gate needs.
type InterventionRecorder interface {
	RecordIntervention(iv domain.Intervention) error
}

// interruptibleStatuses lists, per intervention type, the task statuses the
// intervention may target.
//
//nolint:gochecknoglobals // Read-only lookup table
var interruptibleStatuses = map[domain.InterventionType][]constants.TaskStatus{
	domain.InterventionPause: {
		constants.TaskStatusExecuting,
		constants.TaskStatusAwaitingApproval,
	},
	domain.InterventionCancel: {
		constants.TaskStatusExecuting,
		constants.TaskStatusAwaitingApproval,
		constants.TaskStatusPaused,
	},
	domain.InterventionModify: {
		constants.TaskStatusPaused,
	},
	domain.InterventionApprove: {
		constants.TaskStatusAwaitingApproval,
	},
}

// Config holds the gate's approval policy.
type Config struct {
	// AutoApprovalLevel is the highest risk level resolved without a
	// human. Critical risk is never auto-approved regardless of this
	// setting.
	AutoApprovalLevel constants.AutoApprovalLevel

	// ApprovalTimeout bounds how long a request waits for a human before
	// failing closed.
	ApprovalTimeout time.Duration
}

// Gate mediates human oversight of task execution. It is safe for
// concurrent use: execution goroutines block in RequestApproval while a
// UI or API goroutine answers via SubmitResponse.
type Gate struct {
	cfg       Config
	recorder  InterventionRecorder
	clock     clock.Clock
	logger    zerolog.Logger
	requestCh chan ApprovalRequest

	mu      sync.Mutex
	pending map[string]chan ApprovalResponse
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the system clock for deterministic timestamps.
func WithClock(c clock.Clock) Option {
	return func(g *Gate) {
		g.clock = c
	}
}

// NewGate creates a Gate recording decisions through the given recorder.
func NewGate(cfg Config, recorder InterventionRecorder, logger zerolog.Logger, opts ...Option) *Gate {
	if cfg.ApprovalTimeout <= 0 {
		cfg.ApprovalTimeout = constants.DefaultApprovalTimeout
	}

	g := &Gate{
		cfg:       cfg,
		recorder:  recorder,
		clock:     clock.RealClock{},
		logger:    logger.With().Str("component", "oversight").Logger(),
		requestCh: make(chan ApprovalRequest, 10),
		pending:   make(map[string]chan ApprovalResponse),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Requests returns the channel a UI listens on for approval requests.
// Auto-resolved requests never appear here.
func (g *Gate) Requests() <-chan ApprovalRequest {
	return g.requestCh
}

// NeedsApproval reports whether a step at the given risk level requires a
// human decision under the configured auto-approval policy.
func (g *Gate) NeedsApproval(risk domain.RiskLevel) bool {
	if risk == domain.RiskCritical {
		return true
	}
	return risk.Rank() > maxAutoRiskRank(g.cfg.AutoApprovalLevel)
}

// maxAutoRiskRank maps the auto-approval policy to the highest risk rank it
// resolves without a human. AutoApprovalNone auto-approves nothing, so its
// threshold sits below every real level. Unknown values fail closed the
// same way.
func maxAutoRiskRank(level constants.AutoApprovalLevel) int {
	switch level {
	case constants.AutoApprovalLow:
		return domain.RiskLow.Rank()
	case constants.AutoApprovalMedium:
		return domain.RiskMedium.Rank()
	case constants.AutoApprovalHigh:
		return domain.RiskHigh.Rank()
	case constants.AutoApprovalNone:
	}
	return domain.RiskLow.Rank() - 1
}

// RequestApproval resolves an approval request, blocking until a human
// answers, the timeout elapses, or the context is cancelled. Requests at or
// below the auto-approval level resolve immediately without involving a
// human. Timeouts fail closed: the step is denied and the denial is
// recorded with source "auto".
//
// Returns ErrApprovalDenied when the decision is negative and
// ErrApprovalTimeout when nobody answered in time.
func (g *Gate) RequestApproval(ctx context.Context, req ApprovalRequest) (ApprovalResponse, error) {
	if !g.NeedsApproval(req.Risk) {
		resp := ApprovalResponse{
			TaskID:   req.TaskID,
			StepID:   req.StepID,
			Approved: true,
			Reason:   "risk within auto-approval policy",
			Source:   domain.InterventionSourceAuto,
		}
		g.record(domain.InterventionApprove, req.TaskID, resp.Reason, resp.Source)
		return resp, nil
	}

	key := pendingKey(req.TaskID, req.StepID)
	responseCh := make(chan ApprovalResponse, 1)

	g.mu.Lock()
	g.pending[key] = responseCh
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}()

	select {
	case g.requestCh <- req:
	case <-ctx.Done():
		return ApprovalResponse{}, ctx.Err()
	}

	g.logger.Info().
		Str("task_id", req.TaskID).
		Str("step_id", req.StepID).
		Str("risk", string(req.Risk)).
		Dur("timeout", g.cfg.ApprovalTimeout).
		Msg("awaiting approval")

	timer := time.NewTimer(g.cfg.ApprovalTimeout)
	defer timer.Stop()

	select {
	case resp := <-responseCh:
		resp.Source = domain.InterventionSourceUser
		if resp.Approved {
			g.record(domain.InterventionApprove, req.TaskID, resp.Reason, resp.Source)
			return resp, nil
		}
		g.record(domain.InterventionCancel, req.TaskID, resp.Reason, resp.Source)
		return resp, maestroerrors.Wrapf(maestroerrors.ErrApprovalDenied, "step %s", req.StepID)

	case <-timer.C:
		resp := ApprovalResponse{
			TaskID:   req.TaskID,
			StepID:   req.StepID,
			Approved: false,
			Reason:   "no response within approval timeout",
			Source:   domain.InterventionSourceAuto,
		}
		g.record(domain.InterventionCancel, req.TaskID, resp.Reason, resp.Source)
		return resp, maestroerrors.Wrapf(maestroerrors.ErrApprovalTimeout, "step %s", req.StepID)

	case <-ctx.Done():
		return ApprovalResponse{}, ctx.Err()
	}
}

// SubmitResponse answers a pending approval request.
// Returns ErrTaskNotFound when nothing is waiting for the given task/step.
func (g *Gate) SubmitResponse(resp ApprovalResponse) error {
	g.mu.Lock()
	ch, ok := g.pending[pendingKey(resp.TaskID, resp.StepID)]
	g.mu.Unlock()

	if !ok {
		return maestroerrors.Wrapf(maestroerrors.ErrTaskNotFound, "no pending approval for task %s", resp.TaskID)
	}

	select {
	case ch <- resp:
	default:
		// Response already submitted; drop the duplicate.
	}

	return nil
}

// HandleIntervention validates a human intervention against the task's
// current status and records it. The gate does not apply the resulting
// status change; the orchestrator does, using the returned record. Callers
// pass the task's id and status as values so the gate never reads a task
// the run goroutine is still mutating.
//
// Returns ErrNotInterruptible when the task's status does not admit the
// intervention type.
func (g *Gate) HandleIntervention(typ domain.InterventionType, taskID string, status constants.TaskStatus, reason string) (*domain.Intervention, error) {
	if taskID == "" {
		return nil, maestroerrors.Wrap(maestroerrors.ErrEmptyValue, "handle intervention")
	}

	allowed, ok := interruptibleStatuses[typ]
	if !ok {
		return nil, maestroerrors.Wrapf(maestroerrors.ErrUnknownAction, "intervention %s", typ)
	}

	permitted := false
	for _, s := range allowed {
		if status == s {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, maestroerrors.Wrapf(maestroerrors.ErrNotInterruptible,
			"%s intervention on %s task", typ, status)
	}

	iv := &domain.Intervention{
		ID:        uuid.NewString(),
		Type:      typ,
		Reason:    reason,
		Timestamp: g.clock.Now(),
		TaskID:    taskID,
		Source:    domain.InterventionSourceUser,
	}

	if err := g.recorder.RecordIntervention(*iv); err != nil {
		return nil, maestroerrors.Wrap(err, "failed to record intervention")
	}

	g.logger.Info().
		Str("task_id", taskID).
		Str("type", string(typ)).
		Str("reason", reason).
		Msg("intervention recorded")

	return iv, nil
}

// record appends an audit entry for an approval decision, logging rather
// than failing when the store rejects it.
func (g *Gate) record(typ domain.InterventionType, taskID, reason, source string) {
	iv := domain.Intervention{
		ID:        uuid.NewString(),
		Type:      typ,
		Reason:    reason,
		Timestamp: g.clock.Now(),
		TaskID:    taskID,
		Source:    source,
	}

	if err := g.recorder.RecordIntervention(iv); err != nil {
		g.logger.Error().Err(err).Str("task_id", taskID).Msg("failed to record approval decision")
	}
}

func pendingKey(taskID, stepID string) string {
	return taskID + "/" + stepID
}
