// Package engine executes individual task steps under the configured
// resource and security constraints.
//
// The engine owns the sandboxing decisions: every step passes the
// allowed-operations check and the security-level check before its delegate
// is dispatched, and each attempt runs under its own timeout. Delegates only
// perform the action; they never decide whether it is permitted.
//
// Import rules:
//   - CAN import: internal/clock, internal/config, internal/constants,
//     internal/domain, internal/errors
//   - MUST NOT import: internal/orchestrator, internal/oversight,
//     internal/state, internal/cli
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
)

// Delegate performs a single action type. Implementations handle one
// concrete action (analyze, create, delete, ...) and return a structured
// result.
//
// All Execute implementations must:
//   - Check ctx.Done() at the start and during long operations
//   - Return an ExecutionResult with output and timing populated
//   - Report failures via the error return, not by panicking
type Delegate interface {
	// Execute runs the step and returns its result.
	// The context carries the per-attempt timeout.
	Execute(ctx context.Context, task *domain.Task, step *domain.Step) (*domain.ExecutionResult, error)

	// Action returns the ActionType this delegate handles.
	Action() domain.ActionType
}

// Registry maps action types to their delegates.
// It is safe for concurrent read access after initialization.
type Registry struct {
	mu        sync.RWMutex
	delegates map[domain.ActionType]Delegate
}

// NewRegistry creates a new empty delegate registry.
func NewRegistry() *Registry {
	return &Registry{
		delegates: make(map[domain.ActionType]Delegate),
	}
}

// Register adds a delegate to the registry, replacing any existing delegate
// for the same action type.
func (r *Registry) Register(d Delegate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delegates[d.Action()] = d
}

// Get retrieves the delegate for an action type.
// Returns ErrUnknownAction if no delegate is registered for it.
func (r *Registry) Get(action domain.ActionType) (Delegate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.delegates[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", maestroerrors.ErrUnknownAction, action)
	}
	return d, nil
}

// Has checks whether a delegate is registered for the given action type.
func (r *Registry) Has(action domain.ActionType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.delegates[action]
	return ok
}

// Actions returns all registered action types.
func (r *Registry) Actions() []domain.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]domain.ActionType, 0, len(r.delegates))
	for a := range r.delegates {
		actions = append(actions, a)
	}
	return actions
}
