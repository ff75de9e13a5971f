// Package report aggregates closed frames over a date range and renders them as
// CSV, JSON or a terminal table.
//
// A report is configured with a Builder, resolved against the frame store once by
// Create, and can then be rendered any number of times:
//
//	r, err := report.Build(store, formatter).
//		From(from).
//		To(to).
//		ForProject("blog").
//		Create()
//	if err != nil {
//		return err
//	}
//	return r.Render(os.Stdout, report.FormatCSV)
package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pbaille/frames/internal/domain"
	"github.com/pbaille/frames/internal/timefmt"
)

var (
	// ErrMissingRange is returned when Create is called without both bounds
	ErrMissingRange = errors.New("report requires both a from and a to date")
	// ErrInvalidRange is returned when the to date is before the from date
	ErrInvalidRange = errors.New("report to date is before from date")
)

// FrameQuerier is the part of the frame store a report reads from
type FrameQuerier interface {
	QueryFrames(filter domain.FrameFilter) ([]domain.Frame, error)
}

// Builder accumulates report criteria
type Builder struct {
	store    FrameQuerier
	format   timefmt.Formatter
	from     time.Time
	to       time.Time
	projects []string
	tags     []string
}

// Build returns a fresh Builder reading from store and formatting with f
func Build(store FrameQuerier, f timefmt.Formatter) *Builder {
	return &Builder{store: store, format: f}
}

// From sets the inclusive start date
func (b *Builder) From(t time.Time) *Builder {
	b.from = t
	return b
}

// To sets the inclusive end date
func (b *Builder) To(t time.Time) *Builder {
	b.to = t
	return b
}

// ForProject limits the report to frames of any of the named projects
func (b *Builder) ForProject(names ...string) *Builder {
	b.projects = append(b.projects, nonEmpty(names)...)
	return b
}

// ForTag limits the report to frames carrying any of the named tags
func (b *Builder) ForTag(names ...string) *Builder {
	b.tags = append(b.tags, nonEmpty(names)...)
	return b
}

func nonEmpty(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Create queries the store and computes totals. Nothing is returned on failure.
func (b *Builder) Create() (*Report, error) {
	if b.from.IsZero() || b.to.IsZero() {
		return nil, ErrMissingRange
	}
	from, to := b.from.UTC().Format(time.DateOnly), b.to.UTC().Format(time.DateOnly)
	if to < from {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, from, to)
	}

	frames, err := b.store.QueryFrames(domain.FrameFilter{
		From:       b.from,
		To:         b.to,
		Projects:   slices.Clone(b.projects),
		Tags:       slices.Clone(b.tags),
		OnlyClosed: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query report frames: %w", err)
	}

	closed := make([]domain.Frame, 0, len(frames))
	for _, f := range frames {
		if !f.Active() {
			closed = append(closed, f)
		}
	}
	slices.SortStableFunc(closed, func(a, b domain.Frame) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return &Report{
		From:   b.from,
		To:     b.to,
		Frames: closed,
		Totals: computeTotals(closed),
		format: b.format,
	}, nil
}

// Report is the resolved result of a Builder. It is read-only.
type Report struct {
	From   time.Time
	To     time.Time
	Frames []domain.Frame
	Totals Totals
	format timefmt.Formatter
}

// Totals aggregates every frame in a report. Velocity is nil when no time elapsed.
type Totals struct {
	Elapsed  time.Duration
	Estimate time.Duration
	Velocity *float64
}

// Row is the display projection of one frame
type Row struct {
	Project  string
	Tags     string
	Notes    string
	Date     string
	Start    string
	End      string
	Elapsed  string
	Estimate string
	Velocity *float64
}

func computeTotals(frames []domain.Frame) Totals {
	var t Totals
	for _, f := range frames {
		t.Elapsed += f.Elapsed(*f.StoppedAt)
		t.Estimate += f.Estimate
	}
	if v, err := domain.Ratio(t.Estimate, t.Elapsed, 2); err == nil {
		t.Velocity = &v
	}
	return t
}

// Rows projects each frame for display in the report's timezone and formats
func (r *Report) Rows() []Row {
	rows := make([]Row, 0, len(r.Frames))
	for _, f := range r.Frames {
		rows = append(rows, r.row(f))
	}
	return rows
}

func (r *Report) row(f domain.Frame) Row {
	stop := *f.StoppedAt
	row := Row{
		Project:  f.Project.Name,
		Tags:     joinTags(f),
		Notes:    f.Notes,
		Date:     r.format.Date(f.StartedAt),
		Start:    r.format.Time(f.StartedAt),
		End:      r.format.Time(stop),
		Elapsed:  r.format.Duration(f.Elapsed(stop)),
		Estimate: r.format.Duration(f.Estimate),
	}
	if v, err := f.Velocity(stop); err == nil {
		row.Velocity = &v
	}
	return row
}

func joinTags(f domain.Frame) string {
	names := f.TagNames()
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// FormattedTotals returns the totals' durations formatted like row durations
func (r *Report) FormattedTotals() (elapsed, estimate string) {
	return r.format.Duration(r.Totals.Elapsed), r.format.Duration(r.Totals.Estimate)
}

// DateRange returns the report bounds formatted as date-times in the display timezone
func (r *Report) DateRange() (from, to string) {
	return r.format.DateTime(r.From), r.format.DateTime(r.To)
}
