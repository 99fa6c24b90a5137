package cli

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelworks/maestro/internal/errors"
)

func TestIsValidOutputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format   string
		expected bool
	}{
		{format: OutputText, expected: true},
		{format: OutputJSON, expected: true},
		{format: OutputYAML, expected: true},
		{format: "xml", expected: false},
		{format: "", expected: false},
		{format: "TEXT", expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, IsValidOutputFormat(tc.format))
		})
	}
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: ExitSuccess},
		{name: "invalid output format", err: errors.ErrInvalidOutputFormat, expected: ExitInvalidInput},
		{name: "invalid goal", err: errors.ErrInvalidGoal, expected: ExitInvalidInput},
		{name: "invalid workspace", err: errors.ErrInvalidWorkspace, expected: ExitInvalidInput},
		{name: "cobra unknown flag", err: stderrors.New(`unknown flag: --frobnicate`), expected: ExitInvalidInput},
		{name: "cobra unknown command", err: stderrors.New(`unknown command "frob" for "maestro"`), expected: ExitInvalidInput},
		{name: "general error", err: stderrors.New("disk exploded"), expected: ExitError},
		{name: "task outcome error", err: errors.ErrApprovalDenied, expected: ExitError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, ExitCodeForError(tc.err))
		})
	}
}
