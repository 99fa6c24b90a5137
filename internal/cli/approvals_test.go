package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	"github.com/kestrelworks/maestro/internal/oversight"
	"github.com/kestrelworks/maestro/internal/state"
)

func promptGate(t *testing.T) *oversight.Gate {
	t.Helper()
	store := state.NewStore(zerolog.Nop())
	t.Cleanup(store.Dispose)
	return oversight.NewGate(oversight.Config{
		AutoApprovalLevel: constants.AutoApprovalNone,
		ApprovalTimeout:   5 * time.Second,
	}, store, zerolog.Nop())
}

func TestAnswerApprovals_Approve(t *testing.T) {
	t.Parallel()

	gate := promptGate(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	go answerApprovals(ctx, gate, strings.NewReader("y\n"), &out)

	resp, err := gate.RequestApproval(ctx, oversight.ApprovalRequest{
		TaskID: "task-1",
		StepID: "step-1",
		Action: domain.ActionDelete,
		Risk:   domain.RiskHigh,
		Reason: "destructive delete step requires approval",
	})
	require.NoError(t, err)
	assert.True(t, resp.Approved)
	assert.Contains(t, out.String(), "Approval required")
	assert.Contains(t, out.String(), "step-1")
}

func TestAnswerApprovals_DeniesByDefault(t *testing.T) {
	t.Parallel()

	gate := promptGate(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	go answerApprovals(ctx, gate, strings.NewReader("\n"), &out)

	_, err := gate.RequestApproval(ctx, oversight.ApprovalRequest{
		TaskID: "task-1",
		StepID: "step-1",
		Risk:   domain.RiskHigh,
	})
	require.Error(t, err)
}

func TestPromptDecision_Answers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "yes", input: "y\n", expected: true},
		{name: "yes word", input: "yes\n", expected: true},
		{name: "uppercase", input: "Y\n", expected: true},
		{name: "no", input: "n\n", expected: false},
		{name: "empty line denies", input: "\n", expected: false},
		{name: "eof denies", input: "", expected: false},
		{name: "garbage denies", input: "sure why not\n", expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			reader := bufio.NewReader(strings.NewReader(tc.input))
			got := promptDecision(reader, &out, oversight.ApprovalRequest{Risk: domain.RiskMedium})
			assert.Equal(t, tc.expected, got)
		})
	}
}
