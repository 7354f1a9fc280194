package league

import (
	"fmt"
	"strings"
)

// ConfigurationError reports malformed or inconsistent tournament input.
// It is always fatal to a batch.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DataError reports a team the strength provider knows nothing about.
type DataError struct {
	Team string
	// Suggestions are known team ids that look like Team.
	Suggestions []string
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("no strength value for team %q", e.Team)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}
