package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		info     BuildInfo
		expected string
	}{
		{
			name:     "full info",
			info:     BuildInfo{Version: "1.2.3", Commit: "abc1234", Date: "2025-01-14"},
			expected: "1.2.3 (commit: abc1234, built: 2025-01-14)",
		},
		{
			name:     "empty info falls back to dev",
			info:     BuildInfo{},
			expected: "dev (commit: none, built: unknown)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, formatVersion(tc.info))
		})
	}
}

func TestRootCmd_Help(t *testing.T) {
	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	got := out.String()
	for _, sub := range []string{"run", "plan", "status", "history", "queue", "resume", "cancel"} {
		assert.Contains(t, got, sub)
	}
}

func TestRootCmd_InvalidOutputFormat(t *testing.T) {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"status", "--output", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestRootCmd_VerboseQuietExclusive(t *testing.T) {
	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"status", "--verbose", "--quiet"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}
