package planner

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
)

// buildSteps derives the ordered step list for an analysis: a leading
// analyze step, one step per recognized action, and a trailing validate
// step. Each step depends on its predecessor, so the dependency graph is a
// chain and therefore acyclic by construction.
func buildSteps(a Analysis) []domain.Step {
	actions := planActions(a)

	steps := make([]domain.Step, 0, len(actions))
	var prevID string
	for _, action := range actions {
		step := domain.Step{
			ID:                uuid.NewString(),
			Action:            action,
			Description:       describeStep(action, a),
			EstimatedDuration: actionDurations[action],
			Status:            constants.StepStatusPending,
		}
		if prevID != "" {
			step.DependsOn = []string{prevID}
		}
		steps = append(steps, step)
		prevID = step.ID
	}

	return steps
}

// planActions produces the action sequence for the plan: analyze first,
// then the goal's actions, then validate. Duplicate analyze/validate
// bookends from the goal itself are folded into the fixed positions.
func planActions(a Analysis) []domain.ActionType {
	actions := []domain.ActionType{domain.ActionAnalyze}
	validateCount := 0

	for _, action := range a.Actions {
		switch action {
		case domain.ActionAnalyze:
			// Covered by the leading analyze step.
		case domain.ActionValidate:
			validateCount++
		default:
			actions = append(actions, action)
		}
	}

	// The trailing validate step is always present; extra validation
	// requests (e.g. from feedback) add further validation passes.
	if validateCount == 0 {
		validateCount = 1
	}
	for i := 0; i < validateCount; i++ {
		actions = append(actions, domain.ActionValidate)
	}

	return actions
}

// describeStep produces the human-readable step description.
func describeStep(action domain.ActionType, a Analysis) string {
	switch action {
	case domain.ActionAnalyze:
		return fmt.Sprintf("Analyze the goal and affected %s scope", a.Scope)
	case domain.ActionCreate:
		return "Create the new content described by the goal"
	case domain.ActionEdit:
		return "Apply the modifications described by the goal"
	case domain.ActionDelete:
		return "Remove the content described by the goal"
	case domain.ActionRefactor:
		return "Restructure the affected content without changing behavior"
	case domain.ActionDocument:
		return "Document the resulting changes"
	case domain.ActionValidate:
		return "Validate the outcome of the preceding steps"
	}
	return "Execute " + action.String()
}
