package timefmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var instantLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

var natural = newNaturalParser()

func newNaturalParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04pm",
	"3:04 pm",
	"3pm",
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC. Reports compare
// stored UTC instants by date, so bounds are kept on the same calendar.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseInstant parses a user supplied instant in loc. Full dates, dates with a
// time of day, a bare time of day (taken on now's date in loc) and relative
// phrases such as "2 hours ago" are accepted. "now" returns now unchanged.
func ParseInstant(s string, loc *time.Location, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	if strings.EqualFold(s, "now") {
		return now, nil
	}

	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}

	local := now.In(loc)
	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation(layout, strings.ToLower(s), loc); err == nil {
			day := time.Date(local.Year(), local.Month(), local.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, loc)
			return day.UTC(), nil
		}
	}

	if t, ok := parseNatural(s, local); ok {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time %q: expected e.g. \"2019-05-01 22:34\", \"14:30\" or \"2 hours ago\"", s)
}

// ParseInterval parses intervals such as "3h 12m", "45m" or "1h30m"
func ParseInterval(s string) (time.Duration, error) {
	compact := strings.Join(strings.Fields(s), "")
	d, err := time.ParseDuration(compact)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: expected e.g. \"3h 12m\"", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid interval %q: must not be negative", s)
	}
	return d, nil
}

// parseNatural accepts a phrase only when one rule match covers all of it
func parseNatural(s string, base time.Time) (time.Time, bool) {
	r, err := natural.Parse(s, base)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	if r.Index != 0 || len(strings.TrimSpace(r.Text)) != len(s) {
		return time.Time{}, false
	}
	return r.Time, true
}
