// Package logging provides helpers that keep log output safe to persist:
// credential-like content is redacted and oversized goal text is truncated
// before it reaches a log field or the log file on disk.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue replaces credential-like content in log output.
const RedactedValue = "[REDACTED]"

// secretPatterns match credential formats that show up in goal text when
// operators paste commands or config fragments into a goal.
var secretPatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Compiled once, read-only
	// Vendor API keys of the sk-/ghp-style prefix families
	regexp.MustCompile(`\bsk-[a-zA-Z0-9_-]{16,}`),
	regexp.MustCompile(`\bgh[pousr]_[a-zA-Z0-9]{20,}`),

	// key=value assignments naming a secret
	regexp.MustCompile(`(?i)(api[_-]?key|secret|password|passwd|credential|token)\s*[:=]\s*["']?[^\s"']{8,}["']?`),

	// Bearer and Authorization header values
	regexp.MustCompile(`(?i)(bearer|authorization)\s*:?\s+[a-zA-Z0-9._+/=-]{20,}`),

	// PEM private key preambles
	regexp.MustCompile(`-----BEGIN[A-Z ]*PRIVATE KEY-----`),
}

// secretFieldNames are field names whose values are always redacted,
// regardless of content. Matching is case-insensitive substring.
var secretFieldNames = []string{ //nolint:gochecknoglobals // Read-only lookup table
	"api_key",
	"apikey",
	"password",
	"passwd",
	"secret",
	"credential",
	"token",
	"private_key",
	"authorization",
	"bearer",
}

// ContainsSecret reports whether s matches any known credential pattern.
func ContainsSecret(s string) bool {
	for _, pattern := range secretPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// Redact replaces credential-like substrings with RedactedValue.
func Redact(s string) string {
	for _, pattern := range secretPatterns {
		s = pattern.ReplaceAllString(s, RedactedValue)
	}
	return s
}

// IsSecretFieldName reports whether a field name indicates a secret value.
func IsSecretFieldName(name string) bool {
	lower := strings.ToLower(name)
	for _, candidate := range secretFieldNames {
		if strings.Contains(lower, candidate) {
			return true
		}
	}
	return false
}

// SafeValue returns the value to log for a named field: fully redacted when
// the field name indicates a secret, pattern-redacted otherwise.
func SafeValue(name, value string) string {
	if IsSecretFieldName(name) {
		return RedactedValue
	}
	return Redact(value)
}

// SecretFlagHook is a zerolog hook that flags events whose message carries
// credential-like content. Hooks cannot rewrite the message, so actual
// redaction happens at call sites via SafeValue and GoalValue; the flag
// makes the residue findable in log audits.
type SecretFlagHook struct{}

// Run implements zerolog.Hook.
func (SecretFlagHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSecret(msg) {
		e.Bool("unredacted_secret", true)
	}
}

// FilteringWriter redacts credential patterns from everything written
// through it. Wrapping the log file writer guarantees secrets never reach
// disk even when a call site forgot SafeValue.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w with pattern redaction.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. The returned length is the original input
// length so callers never see a short write from redaction shrinking the
// payload.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write([]byte(Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
