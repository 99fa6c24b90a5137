package logging

import (
	"strings"

	"github.com/kestrelworks/maestro/internal/constants"
)

// TruncateGoal shortens goal text to the logging limit, appending an
// ellipsis when anything was cut. Truncation is rune-safe so multibyte
// goals never split mid-character.
func TruncateGoal(goal string) string {
	runes := []rune(goal)
	if len(runes) <= constants.MaxGoalLogLength {
		return goal
	}
	return string(runes[:constants.MaxGoalLogLength]) + "..."
}

// GoalValue returns goal text safe for a log field: credential patterns
// redacted, then truncated to the logging limit. Redaction runs first so
// truncation can never split a secret into an unmatchable fragment.
func GoalValue(goal string) string {
	return TruncateGoal(Redact(strings.TrimSpace(goal)))
}
