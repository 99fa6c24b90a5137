package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kestrelworks/maestro/internal/domain"
	"github.com/kestrelworks/maestro/internal/orchestrator"
)

// Output renders command results in the selected format. Text rendering is
// per-result; JSON and YAML marshal the result value directly.
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates an Output writing to w in the given format.
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Render writes v in the configured format. The text function is invoked
// for human-readable output; structured formats ignore it.
func (o *Output) Render(v any, text func(io.Writer) error) error {
	switch o.format {
	case OutputJSON:
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(o.w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	default:
		return text(o.w)
	}
}

// writeReport renders an execution report as aligned text.
func writeReport(w io.Writer, report *orchestrator.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Task:\t%s\n", report.TaskID)
	fmt.Fprintf(tw, "Goal:\t%s\n", report.Goal)
	fmt.Fprintf(tw, "Status:\t%s\n", report.Status)
	fmt.Fprintf(tw, "Steps:\t%d/%d completed\n", report.StepsCompleted, report.StepsTotal)
	fmt.Fprintf(tw, "Progress:\t%.0f%%\n", report.Progress)
	fmt.Fprintf(tw, "Complexity:\t%s\n", report.Complexity)
	fmt.Fprintf(tw, "Risk:\t%s\n", report.Risk)
	fmt.Fprintf(tw, "Duration:\t%s\n", report.Duration.Round(time.Millisecond))
	if report.FailureReason != "" {
		fmt.Fprintf(tw, "Failure:\t%s\n", report.FailureReason)
	}
	return tw.Flush()
}

// writePlan renders a planned task with its step list.
func writePlan(w io.Writer, task *domain.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Task:\t%s\n", task.ID)
	fmt.Fprintf(tw, "Goal:\t%s\n", task.Goal)
	fmt.Fprintf(tw, "Scope:\t%s\n", task.Scope)
	fmt.Fprintf(tw, "Complexity:\t%s (%.0f%% confidence)\n", task.Complexity.Level, task.Complexity.Confidence*100)
	fmt.Fprintf(tw, "Risk:\t%s\n", task.Risk.Level)
	if len(task.Risk.Factors) > 0 {
		fmt.Fprintf(tw, "Risk factors:\t%s\n", strings.Join(task.Risk.Factors, "; "))
	}
	if len(task.Risk.Mitigations) > 0 {
		fmt.Fprintf(tw, "Mitigations:\t%s\n", strings.Join(task.Risk.Mitigations, "; "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nSteps (%d):\n", len(task.Steps))
	stepTW := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, step := range task.Steps {
		fmt.Fprintf(stepTW, "  %d.\t[%s]\t%s\n", i+1, step.Action, step.Description)
	}
	return stepTW.Flush()
}

// writeStatus renders the orchestrator status view.
func writeStatus(w io.Writer, status orchestrator.ExecutionStatus) error {
	if status.TaskID == "" {
		fmt.Fprintln(w, "No current task.")
		return writeStatistics(w, status.Statistics)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Task:\t%s\n", status.TaskID)
	fmt.Fprintf(tw, "Goal:\t%s\n", status.Goal)
	fmt.Fprintf(tw, "Status:\t%s\n", status.Status)
	fmt.Fprintf(tw, "Progress:\t%.0f%%\n", status.Progress)
	if status.CurrentStepID != "" {
		fmt.Fprintf(tw, "Current step:\t%s\n", status.CurrentStepID)
	}
	fmt.Fprintf(tw, "Queued:\t%d\n", status.QueueLength)
	if err := tw.Flush(); err != nil {
		return err
	}
	return writeStatistics(w, status.Statistics)
}

// writeStatistics renders session outcome counts.
func writeStatistics(w io.Writer, stats domain.TaskStatistics) error {
	if stats.TotalTasks == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nSession: %d tasks, %d completed, %d failed, %d cancelled (%.0f%% success)\n",
		stats.TotalTasks, stats.CompletedTasks, stats.FailedTasks, stats.CancelledTasks, stats.SuccessRate*100)
	return nil
}

// writeHistory renders execution history entries as a table.
func writeHistory(w io.Writer, entries []domain.ExecutionHistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No execution history.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTASK\tSTEP\tSTATUS\tDURATION\tDETAIL")
	for _, entry := range entries {
		outcome := "ok"
		if !entry.Success {
			outcome = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\t%s\n",
			entry.Timestamp.Format(time.TimeOnly),
			entry.TaskID,
			entry.StepID,
			outcome,
			entry.DurationMS,
			entry.Detail,
		)
	}
	return tw.Flush()
}

// writeQueue renders queued tasks as a table.
func writeQueue(w io.Writer, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tTASK\tRISK\tSTEPS\tGOAL")
	for i, task := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, task.ID, task.Risk.Level, len(task.Steps), task.Goal)
	}
	return tw.Flush()
}

// writeEstimates renders per-goal complexity estimates as a table.
func writeEstimates(w io.Writer, estimates []GoalEstimate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPLEXITY\tCONFIDENCE\tDURATION\tGOAL")
	for _, est := range estimates {
		fmt.Fprintf(tw, "%s\t%.0f%%\t%s\t%s\n",
			est.Estimate.Level,
			est.Estimate.Confidence*100,
			est.Estimate.EstimatedTime.Round(time.Second),
			est.Goal,
		)
	}
	return tw.Flush()
}
