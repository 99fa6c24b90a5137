package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current task and session statistics",
		Long: `Display the workspace's current task, its progress, queue length, and
session outcome statistics.

Examples:
  maestro status
  maestro status --workspace api --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), flags, os.Stdout)
		},
	}
	parent.AddCommand(cmd)
}

// runStatus executes the status command.
func runStatus(ctx context.Context, flags *GlobalFlags, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	status := rt.orch.GetExecutionStatus()

	out := NewOutput(w, flags.Output)
	return out.Render(status, func(w io.Writer) error {
		return writeStatus(w, status)
	})
}
