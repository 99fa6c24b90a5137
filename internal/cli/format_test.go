package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	"github.com/kestrelworks/maestro/internal/orchestrator"
)

func sampleReport() *orchestrator.Report {
	return &orchestrator.Report{
		TaskID:         "task-20250114-120000",
		Goal:           "Add input validation to the parser",
		Status:         constants.TaskStatusCompleted,
		StepsTotal:     4,
		StepsCompleted: 4,
		Progress:       100,
		Risk:           domain.RiskLow,
		Complexity:     domain.ComplexityModerate,
		Duration:       1500 * time.Millisecond,
	}
}

func TestOutputRender_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewOutput(&buf, OutputJSON)

	report := sampleReport()
	require.NoError(t, out.Render(report, func(io.Writer) error {
		t.Fatal("text renderer must not run for json output")
		return nil
	}))

	var decoded orchestrator.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.TaskID, decoded.TaskID)
	assert.Equal(t, report.Status, decoded.Status)
}

func TestOutputRender_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewOutput(&buf, OutputYAML)

	require.NoError(t, out.Render(map[string]string{"goal": "fix the bug"}, func(io.Writer) error {
		t.Fatal("text renderer must not run for yaml output")
		return nil
	}))

	var decoded map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "fix the bug", decoded["goal"])
}

func TestOutputRender_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewOutput(&buf, OutputText)

	require.NoError(t, out.Render(nil, func(w io.Writer) error {
		_, err := w.Write([]byte("rendered"))
		return err
	}))
	assert.Equal(t, "rendered", buf.String())
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport()))

	got := buf.String()
	assert.Contains(t, got, "task-20250114-120000")
	assert.Contains(t, got, "4/4 completed")
	assert.Contains(t, got, "100%")
	assert.NotContains(t, got, "Failure:", "no failure line for a clean run")
}

func TestWriteReport_Failure(t *testing.T) {
	t.Parallel()

	report := sampleReport()
	report.Status = constants.TaskStatusFailed
	report.StepsCompleted = 2
	report.FailureReason = "step step-3 failed: transient execution failure"

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report))
	assert.Contains(t, buf.String(), "Failure:")
	assert.Contains(t, buf.String(), "step-3")
}

func TestWriteHistory_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, nil))
	assert.Contains(t, buf.String(), "No execution history.")
}

func TestWriteHistory(t *testing.T) {
	t.Parallel()

	entries := []domain.ExecutionHistoryEntry{
		{
			TaskID:     "task-1",
			StepID:     "step-1",
			Success:    true,
			DurationMS: 42,
			Timestamp:  time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC),
		},
		{
			TaskID:     "task-1",
			StepID:     "step-2",
			Success:    false,
			Detail:     "backend unavailable",
			DurationMS: 7,
			Timestamp:  time.Date(2025, 1, 14, 12, 0, 1, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, entries))

	got := buf.String()
	assert.Contains(t, got, "step-1")
	assert.Contains(t, got, "ok")
	assert.Contains(t, got, "failed")
	assert.Contains(t, got, "backend unavailable")
}

func TestWriteQueue_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeQueue(&buf, nil))
	assert.Contains(t, buf.String(), "Queue is empty.")
}

func TestWriteStatus_NoTask(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, orchestrator.ExecutionStatus{}))
	assert.Contains(t, buf.String(), "No current task.")
}

func TestWriteStatus_WithTask(t *testing.T) {
	t.Parallel()

	status := orchestrator.ExecutionStatus{
		TaskID:        "task-1",
		Goal:          "document the parser",
		Status:        constants.TaskStatusExecuting,
		Progress:      50,
		CurrentStepID: "step-2",
		QueueLength:   1,
		Statistics: domain.TaskStatistics{
			TotalTasks:     2,
			CompletedTasks: 1,
			SuccessRate:    0.5,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, status))

	got := buf.String()
	assert.Contains(t, got, "task-1")
	assert.Contains(t, got, "step-2")
	assert.Contains(t, got, "50%")
	assert.Contains(t, got, "50% success")
}
