package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/maestro/internal/domain"
)

// AddHistoryCommand adds the history command to the root command.
func AddHistoryCommand(parent *cobra.Command, flags *GlobalFlags) {
	var taskID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show execution history for the workspace",
		Long: `List recorded step executions for the workspace session, newest last.

By default all entries are shown; --task filters to one task.

Examples:
  maestro history
  maestro history --task task-20250114-120000 --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.Context(), flags, taskID, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "filter history to one task ID")

	parent.AddCommand(cmd)
}

// runHistory executes the history command.
func runHistory(ctx context.Context, flags *GlobalFlags, taskID string, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	var entries []domain.ExecutionHistoryEntry
	if taskID != "" {
		entries = rt.store.GetExecutionHistory(taskID)
	} else {
		entries = rt.store.Snapshot().History
	}

	out := NewOutput(w, flags.Output)
	return out.Render(entries, func(w io.Writer) error {
		return writeHistory(w, entries)
	})
}
