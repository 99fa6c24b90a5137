package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AddCancelCommand adds the cancel command to the root command.
func AddCancelCommand(parent *cobra.Command, flags *GlobalFlags) {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the workspace's current task",
		Long: `Cancel the current task. Remaining steps are discarded; execution
history and the audit trail are preserved in the workspace snapshot.

Only paused tasks and tasks awaiting approval can be cancelled from the
CLI; a running task is cancelled from the session that started it.

Examples:
  maestro cancel
  maestro cancel --reason "requirements changed"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCancel(cmd.Context(), flags, reason, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "cancelled by operator", "reason recorded with the cancellation")

	parent.AddCommand(cmd)
}

// runCancel executes the cancel command.
func runCancel(ctx context.Context, flags *GlobalFlags, reason string, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by operator"
	}

	view, err := rt.store.CurrentTaskView()
	if err != nil {
		return err
	}

	if err := rt.orch.CancelExecution(reason); err != nil {
		return err
	}

	fmt.Fprintf(w, "Cancelled %s.\n", view.ID)
	return nil
}
