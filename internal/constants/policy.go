package constants

// RiskTolerance controls how aggressively the planner maps raw risk scores
// to risk tiers. Conservative shifts scores up a tier, aggressive shifts
// them down.
type RiskTolerance string

// Risk tolerance constants.
const (
	// RiskToleranceConservative treats borderline scores as the higher tier.
	RiskToleranceConservative RiskTolerance = "conservative"

	// RiskToleranceBalanced uses the default tier thresholds.
	RiskToleranceBalanced RiskTolerance = "balanced"

	// RiskToleranceAggressive treats borderline scores as the lower tier.
	RiskToleranceAggressive RiskTolerance = "aggressive"
)

// String returns the string representation of the RiskTolerance.
func (r RiskTolerance) String() string {
	return string(r)
}

// ValidRiskTolerances lists the accepted risk tolerance values for
// configuration validation.
//
//nolint:gochecknoglobals // Read-only lookup table
var ValidRiskTolerances = []RiskTolerance{
	RiskToleranceConservative,
	RiskToleranceBalanced,
	RiskToleranceAggressive,
}

// AutoApprovalLevel decides which risk tiers proceed without explicit human
// confirmation, and how unanswered approval requests resolve on timeout.
type AutoApprovalLevel string

// Auto-approval level constants.
const (
	// AutoApprovalNone requires human approval for every gated step;
	// unanswered requests are denied.
	AutoApprovalNone AutoApprovalLevel = "none"

	// AutoApprovalLow auto-approves low-risk steps on timeout.
	AutoApprovalLow AutoApprovalLevel = "low"

	// AutoApprovalMedium auto-approves low and medium risk steps on timeout.
	AutoApprovalMedium AutoApprovalLevel = "medium"

	// AutoApprovalHigh auto-approves everything except critical risk on
	// timeout. Critical steps always fail closed.
	AutoApprovalHigh AutoApprovalLevel = "high"
)

// String returns the string representation of the AutoApprovalLevel.
func (a AutoApprovalLevel) String() string {
	return string(a)
}

// ValidAutoApprovalLevels lists the accepted auto-approval values for
// configuration validation.
//
//nolint:gochecknoglobals // Read-only lookup table
var ValidAutoApprovalLevels = []AutoApprovalLevel{
	AutoApprovalNone,
	AutoApprovalLow,
	AutoApprovalMedium,
	AutoApprovalHigh,
}

// SecurityLevel gates which step actions the execution engine will dispatch.
// Broad or destructive operations require an elevated workspace.
type SecurityLevel string

// Security level constants, ordered from most to least restrictive.
const (
	// SecurityLevelRestricted permits read-only analysis operations only.
	SecurityLevelRestricted SecurityLevel = "restricted"

	// SecurityLevelStandard permits creation and modification of content
	// but refuses destructive operations.
	SecurityLevelStandard SecurityLevel = "standard"

	// SecurityLevelElevated permits all operations including deletion.
	SecurityLevelElevated SecurityLevel = "elevated"
)

// String returns the string representation of the SecurityLevel.
func (s SecurityLevel) String() string {
	return string(s)
}

// securityRank maps security levels to a comparable ordering.
//
//nolint:gochecknoglobals // Read-only lookup table
var securityRank = map[SecurityLevel]int{
	SecurityLevelRestricted: 0,
	SecurityLevelStandard:   1,
	SecurityLevelElevated:   2,
}

// AtLeast reports whether s grants at least the privileges of min.
// Unknown levels rank below restricted so malformed input fails closed.
func (s SecurityLevel) AtLeast(minLevel SecurityLevel) bool {
	sr, ok := securityRank[s]
	if !ok {
		return false
	}
	return sr >= securityRank[minLevel]
}

// ValidSecurityLevels lists the accepted security level values for
// configuration validation.
//
//nolint:gochecknoglobals // Read-only lookup table
var ValidSecurityLevels = []SecurityLevel{
	SecurityLevelRestricted,
	SecurityLevelStandard,
	SecurityLevelElevated,
}
