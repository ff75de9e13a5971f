// Package timefmt formats instants and durations for display.
//
// Instants are stored in UTC and converted to the configured location before
// formatting. Durations are rendered from a small %-token template so every
// report format shows the same value for the same frame.
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// Default patterns used when no settings override them
const (
	DefaultDateLayout     = "January 2, 2006"
	DefaultTimeLayout     = "3:04 pm"
	DefaultDurationFormat = "%h:%I"
)

// Formatter holds the display settings for dates, times and durations
type Formatter struct {
	Location       *time.Location
	DateLayout     string
	TimeLayout     string
	DurationFormat string
}

// New returns a Formatter using the default patterns for the given location
func New(loc *time.Location) Formatter {
	return Formatter{
		Location:       loc,
		DateLayout:     DefaultDateLayout,
		TimeLayout:     DefaultTimeLayout,
		DurationFormat: DefaultDurationFormat,
	}
}

func (f Formatter) local(t time.Time) time.Time {
	if f.Location == nil {
		return t.UTC()
	}
	return t.In(f.Location)
}

// Date formats the calendar date of t in the display location
func (f Formatter) Date(t time.Time) string {
	return f.local(t).Format(f.DateLayout)
}

// Time formats the time of day of t in the display location
func (f Formatter) Time(t time.Time) string {
	return f.local(t).Format(f.TimeLayout)
}

// DateTime joins Date and Time with a single space
func (f Formatter) DateTime(t time.Time) string {
	return f.Date(t) + " " + f.Time(t)
}

// Duration formats d with the DurationFormat template.
func (f Formatter) Duration(d time.Duration) string {
	return FormatDuration(d, f.DurationFormat)
}

// FormatDuration expands a duration template. Supported tokens:
//
//	%h  total hours
//	%H  total hours, at least two digits
//	%i  minutes past the hour
//	%I  minutes past the hour, two digits
//	%s  seconds past the minute
//	%S  seconds past the minute, two digits
//	%%  a literal percent sign
//
// Hours are never folded into days. Unknown tokens are copied through unchanged.
func FormatDuration(d time.Duration, pattern string) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var sb strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i == len(pattern)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch pattern[i] {
		case 'h':
			fmt.Fprintf(&sb, "%d", hours)
		case 'H':
			fmt.Fprintf(&sb, "%02d", hours)
		case 'i':
			fmt.Fprintf(&sb, "%d", minutes)
		case 'I':
			fmt.Fprintf(&sb, "%02d", minutes)
		case 's':
			fmt.Fprintf(&sb, "%d", seconds)
		case 'S':
			fmt.Fprintf(&sb, "%02d", seconds)
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(pattern[i])
		}
	}
	return sb.String()
}

// ValidateDurationFormat reports the first unsupported token in pattern
func ValidateDurationFormat(pattern string) error {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' {
			continue
		}
		if i == len(pattern)-1 {
			return fmt.Errorf("dangling %% at end of %q", pattern)
		}
		i++
		if !strings.ContainsRune("hHiIsS%", rune(pattern[i])) {
			return fmt.Errorf("unsupported token %%%c in %q", pattern[i], pattern)
		}
	}
	return nil
}
