package domain

// ActionType is the closed set of step action variants. The execution engine
// registers one delegate per variant, so new action types are compile-time
// checked additions rather than untyped string matches.
type ActionType string

// Action type constants.
const (
	// ActionAnalyze inspects existing content without modifying anything.
	ActionAnalyze ActionType = "analyze"

	// ActionCreate produces new content via the generation collaborator.
	ActionCreate ActionType = "create"

	// ActionEdit modifies existing content via the mutation collaborator.
	ActionEdit ActionType = "edit"

	// ActionDelete removes existing content. Destructive; requires an
	// elevated security level and raises the risk assessment.
	ActionDelete ActionType = "delete"

	// ActionRefactor restructures existing content without changing
	// behavior.
	ActionRefactor ActionType = "refactor"

	// ActionDocument produces documentation for existing content.
	ActionDocument ActionType = "document"

	// ActionValidate verifies the outcome of earlier steps.
	ActionValidate ActionType = "validate"
)

// String returns the string representation of the ActionType.
func (a ActionType) String() string {
	return string(a)
}

// AllActionTypes lists every action variant. Used for allowed-operation
// defaults and exhaustive delegate registration checks.
//
//nolint:gochecknoglobals // Read-only lookup table
var AllActionTypes = []ActionType{
	ActionAnalyze,
	ActionCreate,
	ActionEdit,
	ActionDelete,
	ActionRefactor,
	ActionDocument,
	ActionValidate,
}

// Destructive reports whether the action can remove existing content.
func (a ActionType) Destructive() bool {
	return a == ActionDelete
}

// Scope is the inferred blast radius of a goal.
type Scope string

// Scope constants, ordered from narrowest to broadest.
const (
	// ScopeFile affects a single file or function.
	ScopeFile Scope = "file"

	// ScopeProject affects multiple files within one project or module.
	ScopeProject Scope = "project"

	// ScopeArchitecture affects system structure across modules.
	ScopeArchitecture Scope = "architecture"
)

// String returns the string representation of the Scope.
func (s Scope) String() string {
	return string(s)
}

// scopeRank maps scopes to a comparable ordering.
//
//nolint:gochecknoglobals // Read-only lookup table
var scopeRank = map[Scope]int{
	ScopeFile:         0,
	ScopeProject:      1,
	ScopeArchitecture: 2,
}

// Broader reports whether s covers more of the workspace than other.
func (s Scope) Broader(other Scope) bool {
	return scopeRank[s] > scopeRank[other]
}
