package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pbaille/frames/internal/timefmt"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if msg := checkLayout(c.DateFormat); msg != "" {
		errs = append(errs, ValidationError{"date_format", c.DateFormat, msg})
	}
	if msg := checkLayout(c.TimeFormat); msg != "" {
		errs = append(errs, ValidationError{"time_format", c.TimeFormat, msg})
	}
	if err := timefmt.ValidateDurationFormat(c.DurationFormat); err != nil {
		errs = append(errs, ValidationError{"duration_format", c.DurationFormat, err.Error()})
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		errs = append(errs, ValidationError{"timezone", c.Timezone, "must be an IANA timezone name"})
	}
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, ValidationError{"database", c.Database, "must not be empty"})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			"logging.level", c.Logging.Level,
			"must be one of " + strings.Join(ValidLogLevels(), ", "),
		})
	}

	return errs
}

// layoutProbe has a distinct value in every field a layout can print
var layoutProbe = time.Date(2019, time.May, 4, 13, 7, 9, 0, time.UTC)

// checkLayout rejects layouts without any Go reference tokens, such as "g:i",
// which would print themselves verbatim for every instant.
func checkLayout(layout string) string {
	if strings.TrimSpace(layout) == "" {
		return "must not be empty"
	}
	if layoutProbe.Format(layout) == layout {
		return `must be a Go time layout, e.g. "January 2, 2006" or "3:04 pm"`
	}
	return ""
}
