package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AddResumeCommand adds the resume command to the root command.
func AddResumeCommand(parent *cobra.Command, flags *GlobalFlags) {
	var feedback string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume the workspace's paused task",
		Long: `Continue a paused task from its first unfinished step. Completed steps
are never re-executed.

With --feedback, the plan is first adapted to the feedback text: the task
keeps its ID, its version increments, and execution continues on the
revised steps.

Examples:
  maestro resume
  maestro resume --feedback "also add tests for the edge cases"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResume(cmd.Context(), flags, feedback, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "re-plan with this feedback before resuming")

	parent.AddCommand(cmd)
}

// runResume executes the resume command.
func runResume(ctx context.Context, flags *GlobalFlags, feedback string, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	if feedback = strings.TrimSpace(feedback); feedback != "" {
		adapted, err := rt.orch.ApplyFeedback(ctx, feedback)
		if err != nil {
			return fmt.Errorf("failed to apply feedback: %w", err)
		}
		logger := Logger()
		logger.Info().
			Str("task_id", adapted.ID).
			Int("version", adapted.Version).
			Msg("plan adapted from feedback")
	}

	promptCtx, stopPrompt := context.WithCancel(ctx)
	defer stopPrompt()
	go answerApprovals(promptCtx, rt.gate, os.Stdin, os.Stderr)

	report, execErr := rt.orch.Resume(ctx)
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
