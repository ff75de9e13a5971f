package domain

import (
	"errors"
	"math/big"
	"time"
)

var (
	// ErrUndefinedVelocity is returned when a velocity is requested for zero elapsed time
	ErrUndefinedVelocity = errors.New("velocity undefined for zero elapsed time")
	// ErrFrameActive is returned when a project already has a running frame
	ErrFrameActive = errors.New("project already has an active frame")
	// ErrFrameStopped is returned when stopping a frame that is already closed
	ErrFrameStopped = errors.New("frame is already stopped")
	// ErrStopBeforeStart is returned when a stop instant precedes the start instant
	ErrStopBeforeStart = errors.New("stop time is before start time")
	// ErrFrameNotFound is returned when no frame matches a lookup
	ErrFrameNotFound = errors.New("frame not found")
	// ErrNegativeEstimate is returned when an estimate below zero is given
	ErrNegativeEstimate = errors.New("estimate must not be negative")
)

// Project groups frames under a unique name
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is a label attached to any number of frames
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Frame is one tracked interval of work. StoppedAt is nil while the frame is active.
type Frame struct {
	ID        string        `json:"id"`
	Project   Project       `json:"project"`
	StartedAt time.Time     `json:"started_at"`
	StoppedAt *time.Time    `json:"stopped_at,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	Estimate  time.Duration `json:"estimate"`
	Tags      []Tag         `json:"tags,omitempty"`
}

// Active reports whether the frame is still running
func (f Frame) Active() bool {
	return f.StoppedAt == nil
}

// Elapsed returns the time between start and stop, using now for active frames.
// The result is never negative.
func (f Frame) Elapsed(now time.Time) time.Duration {
	end := now
	if f.StoppedAt != nil {
		end = *f.StoppedAt
	}
	d := end.Sub(f.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Velocity is the ratio of estimate to elapsed time rounded to one decimal place.
func (f Frame) Velocity(now time.Time) (float64, error) {
	return Ratio(f.Estimate, f.Elapsed(now), 1)
}

// TagNames returns the names of the frame's tags in their stored order
func (f Frame) TagNames() []string {
	names := make([]string, len(f.Tags))
	for i, t := range f.Tags {
		names[i] = t.Name
	}
	return names
}

// Ratio divides estimate by elapsed at microsecond resolution and rounds half away
// from zero to the given number of decimal places. Rounding is done on the integer
// microsecond counts so decimal midpoints such as 1.005 round up.
func Ratio(estimate, elapsed time.Duration, places int) (float64, error) {
	num, den := big.NewInt(estimate.Microseconds()), big.NewInt(elapsed.Microseconds())
	if den.Sign() == 0 {
		return 0, ErrUndefinedVelocity
	}
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
	num.Mul(num, scale)

	// round(n/d) = (2n + d) / 2d, mirrored for negatives
	neg := num.Sign() < 0
	num.Abs(num)
	q := new(big.Int).Add(new(big.Int).Lsh(num, 1), den)
	q.Quo(q, new(big.Int).Lsh(den, 1))
	if neg {
		q.Neg(q)
	}

	v, _ := new(big.Rat).SetFrac(q, scale).Float64()
	return v, nil
}

// FrameFilter selects frames by calendar date range, project and tag.
// From and To are compared by their UTC date component only.
type FrameFilter struct {
	From       time.Time
	To         time.Time
	Projects   []string
	Tags       []string
	OnlyClosed bool
	OnlyActive bool
}
