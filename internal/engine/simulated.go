package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelworks/maestro/internal/domain"
)

// SimulatedDelegate is the built-in delegate used when no real tool backs an
// action type. It reports what it would have done, after an optional delay
// that makes timeout and cancellation paths observable.
type SimulatedDelegate struct {
	action domain.ActionType
	delay  time.Duration
}

// NewSimulatedDelegate creates a simulated delegate for the given action.
// A zero delay completes immediately.
func NewSimulatedDelegate(action domain.ActionType, delay time.Duration) *SimulatedDelegate {
	return &SimulatedDelegate{action: action, delay: delay}
}

// Action implements Delegate.
func (d *SimulatedDelegate) Action() domain.ActionType {
	return d.action
}

// Execute implements Delegate. It honors context cancellation during the
// simulated work.
func (d *SimulatedDelegate) Execute(ctx context.Context, task *domain.Task, step *domain.Step) (*domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &domain.ExecutionResult{
		StepID:  step.ID,
		Success: true,
		Output:  fmt.Sprintf("[simulated] %s: %s (task %s)", d.action, step.Description, task.ID),
	}, nil
}

// DefaultRegistry returns a registry with a simulated delegate for every
// known action type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, action := range domain.AllActionTypes {
		r.Register(NewSimulatedDelegate(action, 0))
	}
	return r
}

// Ensure SimulatedDelegate implements Delegate.
var _ Delegate = (*SimulatedDelegate)(nil)
