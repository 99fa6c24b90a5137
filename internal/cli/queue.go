package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AddQueueCommand adds the queue command group to the root command.
func AddQueueCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the pending task queue",
		Long: `Queue goals for later execution and process them in FIFO order.

Examples:
  maestro queue add "Document the storage layer"
  maestro queue list
  maestro queue run`,
	}

	cmd.AddCommand(newQueueAddCmd(flags))
	cmd.AddCommand(newQueueListCmd(flags))
	cmd.AddCommand(newQueueRunCmd(flags))

	parent.AddCommand(cmd)
}

func newQueueAddCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <goal>",
		Short: "Plan a goal and append it to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueAdd(cmd.Context(), flags, strings.Join(args, " "), os.Stdout)
		},
	}
}

func newQueueListCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued tasks in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQueueList(cmd.Context(), flags, os.Stdout)
		},
	}
}

func newQueueRunCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute queued tasks in FIFO order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQueueRun(cmd.Context(), flags, os.Stdout)
		},
	}
}

// runQueueAdd plans the goal, queues it, and persists the snapshot.
func runQueueAdd(ctx context.Context, flags *GlobalFlags, goal string, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	task, err := rt.orch.EnqueueGoal(goal)
	if err != nil {
		return err
	}

	if err := rt.snapshots.Save(ctx, rt.workspace, rt.store.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}

	out := NewOutput(w, flags.Output)
	return out.Render(task, func(w io.Writer) error {
		fmt.Fprintf(w, "Queued %s at position %d.\n", task.ID, rt.store.QueueLength())
		return nil
	})
}

// runQueueList renders the queued tasks.
func runQueueList(ctx context.Context, flags *GlobalFlags, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	tasks := rt.store.QueuedTasks()

	out := NewOutput(w, flags.Output)
	return out.Render(tasks, func(w io.Writer) error {
		return writeQueue(w, tasks)
	})
}

// runQueueRun drains the queue, answering approval prompts interactively.
func runQueueRun(ctx context.Context, flags *GlobalFlags, w io.Writer) error {
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}

	promptCtx, stopPrompt := context.WithCancel(ctx)
	defer stopPrompt()
	go answerApprovals(promptCtx, rt.gate, os.Stdin, os.Stderr)

	reports, runErr := rt.orch.ProcessQueue(ctx)

	out := NewOutput(w, flags.Output)
	if err := out.Render(reports, func(w io.Writer) error {
		if len(reports) == 0 {
			fmt.Fprintln(w, "Queue is empty.")
			return nil
		}
		for i, report := range reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := writeReport(w, report); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return runErr
}
