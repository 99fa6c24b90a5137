package planner

import (
	"fmt"
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
)

// actionDurations holds the per-action execution time estimates used to
// project total task duration.
//
//nolint:gochecknoglobals // Read-only lookup table
var actionDurations = map[domain.ActionType]time.Duration{
	domain.ActionAnalyze:  2 * time.Minute,
	domain.ActionCreate:   5 * time.Minute,
	domain.ActionEdit:     4 * time.Minute,
	domain.ActionDelete:   1 * time.Minute,
	domain.ActionRefactor: 8 * time.Minute,
	domain.ActionDocument: 3 * time.Minute,
	domain.ActionValidate: 2 * time.Minute,
}

// scopeComplexityWeight maps scope breadth to complexity score points.
//
//nolint:gochecknoglobals // Read-only lookup table
var scopeComplexityWeight = map[domain.Scope]int{
	domain.ScopeFile:         0,
	domain.ScopeProject:      2,
	domain.ScopeArchitecture: 4,
}

// complexityRecommendations maps tiers to suggested handling.
//
//nolint:gochecknoglobals // Read-only lookup table
var complexityRecommendations = map[domain.ComplexityLevel][]string{
	domain.ComplexityTrivial:  {"safe to execute without review"},
	domain.ComplexitySimple:   {"single focused change, spot-check the result"},
	domain.ComplexityModerate: {"review the generated plan before approving"},
	domain.ComplexityComplex: {
		"review the generated plan before approving",
		"consider splitting the goal into smaller goals",
	},
	domain.ComplexityExpert: {
		"architecture-level change, plan a design review",
		"consider splitting the goal into smaller goals",
	},
}

// complexityFromAnalysis computes a ComplexityEstimate as a pure function of
// already-derived facts. It must never re-parse the goal or call back into
// the decomposition entrypoint; complexity is downstream of analysis only.
func complexityFromAnalysis(a Analysis) domain.ComplexityEstimate {
	score := scopeComplexityWeight[a.Scope]

	// Each action beyond the first adds coordination overhead.
	if extra := len(a.Actions) - 1; extra > 0 {
		score += extra
	}
	if a.Destructive {
		score++
	}
	if a.Confidence < 0.5 {
		score++
	}

	level := complexityLevelForScore(score)

	factors := []string{
		fmt.Sprintf("%s scope", a.Scope),
		fmt.Sprintf("%d recognized actions", len(a.Actions)),
	}
	if a.Destructive {
		factors = append(factors, "destructive action")
	}
	if !a.Recognized {
		factors = append(factors, "no action verb recognized")
	}

	return domain.ComplexityEstimate{
		Level:           level,
		Factors:         factors,
		EstimatedTime:   estimateDuration(a.Actions),
		Confidence:      a.Confidence,
		Recommendations: complexityRecommendations[level],
	}
}

// complexityLevelForScore maps a raw score to one of the five tiers.
// Thresholds are calibrated, not specified; tests assert ordering only.
func complexityLevelForScore(score int) domain.ComplexityLevel {
	switch {
	case score <= 0:
		return domain.ComplexityTrivial
	case score <= 1:
		return domain.ComplexitySimple
	case score <= 3:
		return domain.ComplexityModerate
	case score <= 5:
		return domain.ComplexityComplex
	default:
		return domain.ComplexityExpert
	}
}

// estimateDuration sums the per-action estimates plus the fixed analyze and
// validate bookends every plan carries.
func estimateDuration(actions []domain.ActionType) time.Duration {
	total := actionDurations[domain.ActionAnalyze] + actionDurations[domain.ActionValidate]
	for _, action := range actions {
		if action == domain.ActionAnalyze || action == domain.ActionValidate {
			continue
		}
		total += actionDurations[action]
	}
	return total
}

// defaultComplexityEstimate is the degraded estimate used when analysis
// cannot produce anything better. Planning never blocks on estimation
// uncertainty.
func defaultComplexityEstimate() domain.ComplexityEstimate {
	return domain.ComplexityEstimate{
		Level:           domain.ComplexityModerate,
		Factors:         []string{"estimation degraded to default"},
		EstimatedTime:   15 * time.Minute,
		Confidence:      0.2,
		Recommendations: complexityRecommendations[domain.ComplexityModerate],
	}
}

// scopeRiskWeight maps scope breadth to risk score points.
//
//nolint:gochecknoglobals // Read-only lookup table
var scopeRiskWeight = map[domain.Scope]int{
	domain.ScopeFile:         0,
	domain.ScopeProject:      1,
	domain.ScopeArchitecture: 2,
}

// RiskContext carries workspace facts that raise the risk assessment
// independently of the goal text.
type RiskContext struct {
	// SecurityFlags lists workspace conditions such as
	// "untrusted_workspace" or "shared_branch". Each one adds risk.
	SecurityFlags []string
}

// riskFromAnalysis computes a RiskAssessment as a pure function of the
// analysis and workspace context. Risk increases with destructive actions,
// broad scope, low confidence, and workspace security flags. Whenever the
// level is above low, at least one mitigation is attached.
func riskFromAnalysis(a Analysis, rctx RiskContext, tolerance constants.RiskTolerance) domain.RiskAssessment {
	score := scopeRiskWeight[a.Scope]

	var factors, mitigations []string

	if a.Destructive {
		score += 3
		factors = append(factors, "destructive action (delete)")
		mitigations = append(mitigations, "snapshot affected content before destructive steps")
	}
	if a.Scope != domain.ScopeFile {
		factors = append(factors, fmt.Sprintf("broad scope (%s)", a.Scope))
		mitigations = append(mitigations, "stage the change incrementally")
	}
	if a.Confidence < 0.5 {
		score++
		factors = append(factors, "low estimation confidence")
		mitigations = append(mitigations, "restate the goal with more detail")
	}
	for _, flag := range rctx.SecurityFlags {
		score++
		factors = append(factors, "workspace flag: "+flag)
	}

	score += toleranceShift(tolerance)

	level := riskLevelForScore(score)
	if level == domain.RiskLow {
		// Low-risk assessments carry factors for transparency but no
		// mandatory mitigations.
		return domain.RiskAssessment{Level: level, Factors: factors}
	}

	if len(mitigations) == 0 {
		mitigations = append(mitigations, "require human approval before execution")
	}

	return domain.RiskAssessment{
		Level:       level,
		Factors:     factors,
		Mitigations: mitigations,
	}
}

// toleranceShift adjusts the raw score: conservative rounds borderline
// scores up a tier, aggressive rounds them down.
func toleranceShift(tolerance constants.RiskTolerance) int {
	switch tolerance {
	case constants.RiskToleranceConservative:
		return 1
	case constants.RiskToleranceAggressive:
		return -1
	case constants.RiskToleranceBalanced:
		return 0
	}
	return 0
}

// riskLevelForScore maps a raw score to one of the four tiers.
func riskLevelForScore(score int) domain.RiskLevel {
	switch {
	case score <= 0:
		return domain.RiskLow
	case score <= 2:
		return domain.RiskMedium
	case score <= 4:
		return domain.RiskHigh
	default:
		return domain.RiskCritical
	}
}
