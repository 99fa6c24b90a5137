package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AddRunCommand adds the run command to the root command.
func AddRunCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Plan and execute a goal",
		Long: `Decompose a free-text goal into a step plan and execute it to completion.

Steps run under the configured constraint policy. When the assessed risk
exceeds the auto-approval level, execution blocks on an interactive
approval prompt; unanswered prompts fail closed after the approval
timeout. Progress is checkpointed to the workspace snapshot after every
step, so an interrupted run can be resumed.

Examples:
  maestro run "Add input validation to the parser"
  maestro run --workspace api "Refactor the retry logic" --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flags, strings.Join(args, " "), os.Stdout)
		},
	}
	parent.AddCommand(cmd)
}

// runRun executes the run command.
func runRun(ctx context.Context, flags *GlobalFlags, goal string, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	promptCtx, stopPrompt := context.WithCancel(ctx)
	defer stopPrompt()
	go answerApprovals(promptCtx, rt.gate, os.Stdin, os.Stderr)

	report, execErr := rt.orch.ExecuteGoal(ctx, goal)
	if report == nil {
		return execErr
	}

	out := NewOutput(w, flags.Output)
	if err := out.Render(report, func(w io.Writer) error {
		return writeReport(w, report)
	}); err != nil {
		return err
	}

	if execErr != nil {
		return fmt.Errorf("execution did not complete: %w", execErr)
	}
	return nil
}
