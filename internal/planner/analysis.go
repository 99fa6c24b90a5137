package planner

import (
	"strings"

	"github.com/kestrelworks/maestro/internal/domain"
)

// Analysis holds the facts derived from a goal string. It is the single
// input to complexity and risk computation: parse goal → Analysis →
// complexity/risk → Task. Derived computations never call back into the
// parsing routine, keeping the data flow strictly acyclic.
type Analysis struct {
	// Goal is the original goal text.
	Goal string

	// Scope is the inferred blast radius.
	Scope domain.Scope

	// Actions is the ordered, deduplicated list of recognized action
	// verbs. Never empty: unrecognized goals default to analyze+edit.
	Actions []domain.ActionType

	// Destructive is true when any recognized action removes content.
	Destructive bool

	// Recognized is false when no action verb matched and the default
	// action set was substituted.
	Recognized bool

	// WordCount is the number of whitespace-separated tokens in the goal.
	WordCount int

	// Confidence is in [0,1]; it drops when the goal is vague, verbless,
	// or rambling.
	Confidence float64
}

// actionKeywords maps recognizable verbs to action types. Checked per token,
// so "deleting" matches via prefix trimming below but "undelete" does not.
//
//nolint:gochecknoglobals // Read-only lookup table
var actionKeywords = []struct {
	keyword string
	action  domain.ActionType
}{
	{"create", domain.ActionCreate},
	{"add", domain.ActionCreate},
	{"implement", domain.ActionCreate},
	{"build", domain.ActionCreate},
	{"write", domain.ActionCreate},
	{"generate", domain.ActionCreate},
	{"edit", domain.ActionEdit},
	{"update", domain.ActionEdit},
	{"modify", domain.ActionEdit},
	{"change", domain.ActionEdit},
	{"fix", domain.ActionEdit},
	{"rename", domain.ActionEdit},
	{"delete", domain.ActionDelete},
	{"remove", domain.ActionDelete},
	{"drop", domain.ActionDelete},
	{"purge", domain.ActionDelete},
	{"clean", domain.ActionDelete},
	{"refactor", domain.ActionRefactor},
	{"restructure", domain.ActionRefactor},
	{"migrate", domain.ActionRefactor},
	{"analyze", domain.ActionAnalyze},
	{"review", domain.ActionAnalyze},
	{"investigate", domain.ActionAnalyze},
	{"inspect", domain.ActionAnalyze},
	{"audit", domain.ActionAnalyze},
	{"document", domain.ActionDocument},
	{"describe", domain.ActionDocument},
	{"validate", domain.ActionValidate},
	{"test", domain.ActionValidate},
	{"verify", domain.ActionValidate},
	{"check", domain.ActionValidate},
}

// architectureKeywords widen the scope to architecture.
//
//nolint:gochecknoglobals // Read-only lookup table
var architectureKeywords = []string{
	"architecture", "redesign", "restructure", "migrate", "migration",
	"system", "platform", "infrastructure", "entire", "everything",
	"all modules", "across the codebase", "whole codebase",
}

// projectKeywords widen the scope to project.
//
//nolint:gochecknoglobals // Read-only lookup table
var projectKeywords = []string{
	"project", "module", "package", "service", "component",
	"across", "multiple files", "all files", "codebase",
}

// analyzeGoal derives an Analysis from the goal text. The caller has already
// rejected empty goals; this function never fails, it only degrades
// confidence.
func analyzeGoal(goal string) Analysis {
	lower := strings.ToLower(goal)
	words := strings.Fields(lower)

	a := Analysis{
		Goal:       goal,
		Scope:      inferScope(lower),
		WordCount:  len(words),
		Confidence: 0.9,
		Recognized: true,
	}

	a.Actions = recognizeActions(words)
	if len(a.Actions) == 0 {
		// No verb recognized: assume the safest useful default, inspect
		// then modify, and lower confidence accordingly.
		a.Actions = []domain.ActionType{domain.ActionAnalyze, domain.ActionEdit}
		a.Recognized = false
		a.Confidence -= 0.3
	}

	for _, action := range a.Actions {
		if action.Destructive() {
			a.Destructive = true
		}
	}

	// Very short goals rarely carry enough intent; very long ones tend to
	// bundle several goals into one.
	if a.WordCount < 4 {
		a.Confidence -= 0.2
	}
	if a.WordCount > 50 {
		a.Confidence -= 0.1
	}
	if a.Scope == domain.ScopeArchitecture {
		a.Confidence -= 0.1
	}

	a.Confidence = clampConfidence(a.Confidence)

	return a
}

// recognizeActions scans tokens in goal order and returns the deduplicated
// action sequence.
func recognizeActions(words []string) []domain.ActionType {
	var actions []domain.ActionType
	seen := make(map[domain.ActionType]bool)

	for _, word := range words {
		token := strings.Trim(word, ".,;:!?()'\"")
		for _, kw := range actionKeywords {
			if !matchesKeyword(token, kw.keyword) {
				continue
			}
			if !seen[kw.action] {
				seen[kw.action] = true
				actions = append(actions, kw.action)
			}
			break
		}
	}

	return actions
}

// matchesKeyword reports whether the token is the keyword or a simple
// inflection of it (creates, creating, created).
func matchesKeyword(token, keyword string) bool {
	if token == keyword {
		return true
	}
	if !strings.HasPrefix(token, keyword) {
		return false
	}
	switch strings.TrimPrefix(token, keyword) {
	case "s", "d", "ed", "ing", "es":
		return true
	}
	return false
}

// inferScope picks the broadest scope whose keywords appear in the goal.
func inferScope(lower string) domain.Scope {
	for _, kw := range architectureKeywords {
		if strings.Contains(lower, kw) {
			return domain.ScopeArchitecture
		}
	}
	for _, kw := range projectKeywords {
		if strings.Contains(lower, kw) {
			return domain.ScopeProject
		}
	}
	return domain.ScopeFile
}

// clampConfidence bounds confidence to [0.1, 1.0]; zero confidence would
// make downstream weighting meaningless.
func clampConfidence(c float64) float64 {
	if c < 0.1 {
		return 0.1
	}
	if c > 1.0 {
		return 1.0
	}
	return c
}
