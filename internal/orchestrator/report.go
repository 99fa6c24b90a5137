package orchestrator

import (
	"time"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
)

// Report summarizes one execution run for presentation to the operator.
type Report struct {
	// TaskID is the executed task.
	TaskID string `json:"task_id"`

	// Goal is the original goal text.
	Goal string `json:"goal"`

	// Status is the task's status when the run ended.
	Status constants.TaskStatus `json:"status"`

	// StepsTotal is the number of planned steps.
	StepsTotal int `json:"steps_total"`

	// StepsCompleted is the number of steps that finished successfully.
	StepsCompleted int `json:"steps_completed"`

	// Progress is the final progress percentage.
	Progress float64 `json:"progress"`

	// Risk is the assessed risk level of the task.
	Risk domain.RiskLevel `json:"risk"`

	// Complexity is the assessed complexity level of the task.
	Complexity domain.ComplexityLevel `json:"complexity"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	// FailureReason carries the terminal error for failed runs.
	FailureReason string `json:"failure_reason,omitempty"`
}

// buildReport assembles a Report from the task's final state.
func buildReport(task *domain.Task, startedAt time.Time, now time.Time, failure string) *Report {
	return &Report{
		TaskID:         task.ID,
		Goal:           task.Goal,
		Status:         task.Status,
		StepsTotal:     len(task.Steps),
		StepsCompleted: task.CompletedSteps(),
		Progress:       task.Progress.PercentComplete,
		Risk:           task.Risk.Level,
		Complexity:     task.Complexity.Level,
		StartedAt:      startedAt,
		Duration:       now.Sub(startedAt),
		FailureReason:  failure,
	}
}
