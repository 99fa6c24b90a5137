package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kestrelworks/maestro/internal/oversight"
)

// answerApprovals services the gate's approval requests interactively until
// ctx is cancelled. Each request is printed to out and the decision read
// from in; an unreadable answer denies, matching the gate's fail-closed
// posture. Intended to run as a goroutine beside an executing command.
func answerApprovals(ctx context.Context, gate *oversight.Gate, in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-gate.Requests():
			approved := promptDecision(reader, out, req)
			reason := "approved at prompt"
			if !approved {
				reason = "denied at prompt"
			}
			_ = gate.SubmitResponse(oversight.ApprovalResponse{
				TaskID:   req.TaskID,
				StepID:   req.StepID,
				Approved: approved,
				Reason:   reason,
			})
		}
	}
}

// promptDecision prints one approval request and reads a y/N answer.
func promptDecision(reader *bufio.Reader, out io.Writer, req oversight.ApprovalRequest) bool {
	fmt.Fprintf(out, "\nApproval required (%s risk)\n", req.Risk)
	if req.StepID != "" {
		fmt.Fprintf(out, "  Step:   %s (%s)\n", req.StepID, req.Action)
	}
	fmt.Fprintf(out, "  Reason: %s\n", req.Reason)
	fmt.Fprint(out, "Proceed? [y/N]: ")

	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
