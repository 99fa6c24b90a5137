package domain

import "time"

// ComplexityLevel is the five-tier complexity classification for a goal.
type ComplexityLevel string

// Complexity level constants, ordered from simplest to hardest.
const (
	ComplexityTrivial  ComplexityLevel = "trivial"
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
	ComplexityExpert   ComplexityLevel = "expert"
)

// String returns the string representation of the ComplexityLevel.
func (c ComplexityLevel) String() string {
	return string(c)
}

// complexityRank maps complexity levels to a comparable ordering.
//
//nolint:gochecknoglobals // Read-only lookup table
var complexityRank = map[ComplexityLevel]int{
	ComplexityTrivial:  0,
	ComplexitySimple:   1,
	ComplexityModerate: 2,
	ComplexityComplex:  3,
	ComplexityExpert:   4,
}

// Rank returns the position of the level in the five-tier ordering.
func (c ComplexityLevel) Rank() int {
	return complexityRank[c]
}

// AllComplexityLevels lists the five defined complexity levels in order.
//
//nolint:gochecknoglobals // Read-only lookup table
var AllComplexityLevels = []ComplexityLevel{
	ComplexityTrivial,
	ComplexitySimple,
	ComplexityModerate,
	ComplexityComplex,
	ComplexityExpert,
}

// ComplexityEstimate is the planner's assessment of how hard a goal is.
type ComplexityEstimate struct {
	// Level is one of the five defined complexity tiers.
	Level ComplexityLevel `json:"level"`

	// Factors lists the contributing observations (scope, step count,
	// destructive actions, ...).
	Factors []string `json:"factors,omitempty"`

	// EstimatedTime is the projected total execution time.
	EstimatedTime time.Duration `json:"estimated_time"`

	// Confidence is in [0,1]; lower means the goal text gave the planner
	// less to work with.
	Confidence float64 `json:"confidence"`

	// Recommendations are human-readable suggestions for the tier.
	Recommendations []string `json:"recommendations,omitempty"`
}

// RiskLevel is the four-tier risk classification for a goal or step.
type RiskLevel string

// Risk level constants, ordered from safest to most dangerous.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// String returns the string representation of the RiskLevel.
func (r RiskLevel) String() string {
	return string(r)
}

// riskRank maps risk levels to a comparable ordering.
//
//nolint:gochecknoglobals // Read-only lookup table
var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the position of the level in the four-tier ordering.
func (r RiskLevel) Rank() int {
	return riskRank[r]
}

// Exceeds reports whether r is a strictly higher risk tier than other.
func (r RiskLevel) Exceeds(other RiskLevel) bool {
	return riskRank[r] > riskRank[other]
}

// RiskAssessment is the planner's assessment of what could go wrong.
// Whenever Level is above low, Mitigations is non-empty.
type RiskAssessment struct {
	// Level is one of the four defined risk tiers.
	Level RiskLevel `json:"level"`

	// Factors lists the contributing risk observations.
	Factors []string `json:"factors,omitempty"`

	// Mitigations lists suggested countermeasures.
	Mitigations []string `json:"mitigations,omitempty"`
}
