package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelworks/maestro/internal/domain"
	"github.com/kestrelworks/maestro/internal/planner"
)

// GoalEstimate pairs a goal with its complexity estimate for output.
type GoalEstimate struct {
	Goal     string                    `json:"goal"`
	Estimate domain.ComplexityEstimate `json:"estimate"`
}

// AddPlanCommand adds the plan command to the root command.
func AddPlanCommand(parent *cobra.Command, flags *GlobalFlags) {
	var estimateOnly bool

	cmd := &cobra.Command{
		Use:   "plan <goal> [goal...]",
		Short: "Decompose a goal without executing it",
		Long: `Show the step plan, complexity estimate, and risk assessment for a goal.

Nothing is executed and no state is written. With --estimate, only
complexity estimates are produced; multiple goals are estimated
concurrently.

Examples:
  maestro plan "Migrate the storage layer to the new schema"
  maestro plan --estimate "Fix the typo" "Rewrite the auth service"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), flags, args, estimateOnly, os.Stdout)
		},
	}
	cmd.Flags().BoolVar(&estimateOnly, "estimate", false, "estimate complexity only")

	parent.AddCommand(cmd)
}

// runPlan executes the plan command.
func runPlan(ctx context.Context, flags *GlobalFlags, goals []string, estimateOnly bool, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	out := NewOutput(w, flags.Output)

	if estimateOnly {
		estimates, err := estimateGoals(ctx, rt.orch.Planner(), goals)
		if err != nil {
			return err
		}
		return out.Render(estimates, func(w io.Writer) error {
			return writeEstimates(w, estimates)
		})
	}

	tasks := make([]*domain.Task, 0, len(goals))
	for _, goal := range goals {
		task, err := rt.orch.Planner().DecomposeGoal(goal)
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
	}

	return out.Render(tasks, func(w io.Writer) error {
		for i, task := range tasks {
			if i > 0 {
				if _, err := w.Write([]byte("\n")); err != nil {
					return err
				}
			}
			if err := writePlan(w, task); err != nil {
				return err
			}
		}
		return nil
	})
}

// estimateGoals estimates each goal concurrently. Estimation never fails,
// so the group exists for parallelism and context propagation, not error
// collection.
func estimateGoals(ctx context.Context, p *planner.Planner, goals []string) ([]GoalEstimate, error) {
	estimates := make([]GoalEstimate, len(goals))

	g, ctx := errgroup.WithContext(ctx)
	for i, goal := range goals {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			estimates[i] = GoalEstimate{
				Goal:     goal,
				Estimate: p.EstimateComplexity(goal),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return estimates, nil
}
