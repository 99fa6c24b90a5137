// Package planner provides goal decomposition and estimation for maestro.
//
// The planner is pure heuristic logic: it turns a free-text goal into a Task
// with ordered steps, a complexity estimate, and a risk assessment. It holds
// no execution state and performs no I/O.
//
// Import rules:
//   - CAN import: internal/clock, internal/constants, internal/domain,
//     internal/errors, internal/logging, std lib
//   - MUST NOT import: internal/engine, internal/state, internal/orchestrator
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kestrelworks/maestro/internal/clock"
	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
	"github.com/kestrelworks/maestro/internal/logging"
)

// Planner decomposes goals into tasks and re-plans them from feedback.
// It is safe for concurrent use: all methods are pure apart from reading
// the injected clock.
type Planner struct {
	tolerance constants.RiskTolerance
	clock     clock.Clock
	logger    zerolog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock sets the clock used for task timestamps and ID generation.
// Defaults to the real system clock.
func WithClock(c clock.Clock) Option {
	return func(p *Planner) {
		p.clock = c
	}
}

// New creates a Planner with the given risk tolerance.
func New(tolerance constants.RiskTolerance, logger zerolog.Logger, opts ...Option) *Planner {
	p := &Planner{
		tolerance: tolerance,
		clock:     clock.RealClock{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DecomposeGoal turns a goal string into a Task with ordered steps, a
// complexity estimate, and a risk assessment.
//
// Empty or whitespace-only goals fail with ErrInvalidGoal before any task
// state is materialized. All other goals produce a task; estimation
// shortfalls degrade to a low-confidence default rather than failing.
//
// The data flow is strictly one-directional: parse goal → Analysis →
// complexity/risk as pure functions of the Analysis → Task assembly.
func (p *Planner) DecomposeGoal(goal string) (*domain.Task, error) {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: goal is empty", maestroerrors.ErrInvalidGoal)
	}

	analysis := analyzeGoal(trimmed)
	complexity := complexityFromAnalysis(analysis)
	risk := riskFromAnalysis(analysis, RiskContext{}, p.tolerance)

	now := p.clock.Now().UTC()
	task := &domain.Task{
		ID:              generateTaskID(now),
		Goal:            trimmed,
		Scope:           analysis.Scope,
		Complexity:      complexity,
		Risk:            risk,
		Steps:           buildSteps(analysis),
		RequiredActions: analysis.Actions,
		Status:          constants.TaskStatusPending,
		Priority:        priorityForComplexity(complexity.Level),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
		SchemaVersion:   constants.TaskSchemaVersion,
	}

	p.logger.Debug().
		Str("task_id", task.ID).
		Str("goal", logging.GoalValue(trimmed)).
		Str("scope", analysis.Scope.String()).
		Int("steps", len(task.Steps)).
		Str("complexity", complexity.Level.String()).
		Str("risk", risk.Level.String()).
		Msg("goal decomposed")

	return task, nil
}

// EstimateComplexity produces a quick complexity estimate for a goal without
// building a task. It performs its own minimal analysis and MUST NOT invoke
// DecomposeGoal: complexity estimation feeding back into decomposition caused
// unbounded recursion in an earlier design, and the one-directional flow here
// is deliberate.
//
// Never fails: an empty goal degrades to the moderate low-confidence default.
func (p *Planner) EstimateComplexity(goal string) domain.ComplexityEstimate {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return defaultComplexityEstimate()
	}
	return complexityFromAnalysis(analyzeGoal(trimmed))
}

// AssessRisks computes a risk assessment from an already-derived analysis
// and workspace context. Exposed separately so callers holding an Analysis
// (e.g. re-planning) can re-assess without re-parsing.
func (p *Planner) AssessRisks(a Analysis, rctx RiskContext) domain.RiskAssessment {
	return riskFromAnalysis(a, rctx, p.tolerance)
}

// Analyze derives the analysis facts for a goal. Exposed for callers that
// need the facts themselves (risk re-assessment, diagnostics).
func (p *Planner) Analyze(goal string) Analysis {
	return analyzeGoal(strings.TrimSpace(goal))
}

// AdaptPlan re-derives a task's steps, complexity, and risk given feedback
// text. The task ID and creation time are preserved, Version increments, and
// UpdatedAt is refreshed. Steps are rebuilt in pending state.
//
// Recognized feedback hints:
//   - "validation" / "test" / "verify": appends an extra validation step
//   - "document": ensures a documentation step is present
//   - "careful" / "risk" / "caution": raises the risk level one tier
func (p *Planner) AdaptPlan(task *domain.Task, feedback string) (*domain.Task, error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task is nil", maestroerrors.ErrEmptyValue)
	}

	analysis := analyzeGoal(task.Goal)
	analysis = applyFeedbackToAnalysis(analysis, feedback)

	adapted := *task
	adapted.Scope = analysis.Scope
	adapted.Complexity = complexityFromAnalysis(analysis)
	adapted.Risk = applyFeedbackToRisk(
		riskFromAnalysis(analysis, RiskContext{}, p.tolerance), feedback)
	adapted.Steps = buildSteps(analysis)
	adapted.RequiredActions = analysis.Actions
	adapted.Version = task.Version + 1
	adapted.UpdatedAt = p.clock.Now().UTC()
	adapted.Progress = domain.Progress{}

	p.logger.Debug().
		Str("task_id", adapted.ID).
		Int("version", adapted.Version).
		Int("steps", len(adapted.Steps)).
		Msg("plan adapted from feedback")

	return &adapted, nil
}

// applyFeedbackToAnalysis folds feedback hints into the analysis before
// steps are rebuilt.
func applyFeedbackToAnalysis(a Analysis, feedback string) Analysis {
	lower := strings.ToLower(feedback)

	if containsAny(lower, "validation", "validate", "test", "verify") {
		a.Actions = appendActionOnce(a.Actions, domain.ActionValidate)
	}
	if containsAny(lower, "document", "documentation", "docs") {
		a.Actions = appendActionOnce(a.Actions, domain.ActionDocument)
	}

	return a
}

// applyFeedbackToRisk raises the risk tier when the feedback asks for more
// caution, attaching a mitigation so the above-low invariant holds.
func applyFeedbackToRisk(risk domain.RiskAssessment, feedback string) domain.RiskAssessment {
	lower := strings.ToLower(feedback)
	if !containsAny(lower, "careful", "caution", "risk") {
		return risk
	}

	raised := raiseRiskLevel(risk.Level)
	if raised == risk.Level {
		return risk
	}

	risk.Level = raised
	risk.Factors = append(risk.Factors, "operator requested extra caution")
	if len(risk.Mitigations) == 0 {
		risk.Mitigations = []string{"require human approval before execution"}
	}
	return risk
}

// raiseRiskLevel bumps the level one tier, capped at critical.
func raiseRiskLevel(level domain.RiskLevel) domain.RiskLevel {
	switch level {
	case domain.RiskLow:
		return domain.RiskMedium
	case domain.RiskMedium:
		return domain.RiskHigh
	case domain.RiskHigh, domain.RiskCritical:
		return domain.RiskCritical
	}
	return level
}

// priorityForComplexity derives a queue priority from the complexity tier.
// Harder tasks surface earlier so operators see them first.
func priorityForComplexity(level domain.ComplexityLevel) int {
	switch level {
	case domain.ComplexityExpert, domain.ComplexityComplex:
		return 2
	case domain.ComplexityTrivial, domain.ComplexitySimple, domain.ComplexityModerate:
		return 3
	}
	return 3
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func appendActionOnce(actions []domain.ActionType, action domain.ActionType) []domain.ActionType {
	for _, a := range actions {
		if a == action {
			return actions
		}
	}
	return append(actions, action)
}

// generateTaskID generates a task ID with format task-YYYYMMDD-HHMMSS-xxxxxxxx.
// The random suffix keeps IDs unique when several tasks are planned within
// the same second.
func generateTaskID(now time.Time) string {
	return fmt.Sprintf("task-%s-%s-%s",
		now.Format("20060102"),
		now.Format("150405"),
		uuid.NewString()[:8])
}
