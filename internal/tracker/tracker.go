// Package tracker implements the frame lifecycle: starting, stopping, restarting
// and backfilling frames, and attaching tags, notes and estimates to them.
package tracker

import (
	"fmt"
	"time"

	"github.com/pbaille/frames/internal/domain"
	"github.com/pbaille/frames/internal/logging"
)

// Repository is the persistence the tracker needs. Every call is expected to
// write through immediately.
type Repository interface {
	FindOrCreateProject(name string) (*domain.Project, error)
	FindOrCreateTag(name string) (*domain.Tag, error)
	CreateFrame(f *domain.Frame) error
	UpdateFrame(f *domain.Frame) error
	DeleteFrame(id string) error
	LinkFrameTag(frameID, tagID string) error
	FrameTags(frameID string) ([]domain.Tag, error)
	ActiveFrames(project string) ([]domain.Frame, error)
	LatestClosedFrame() (*domain.Frame, error)
}

// Tracker runs lifecycle operations against a Repository
type Tracker struct {
	repo   Repository
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces time.Now as the source of the current instant
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger used for lifecycle events
func WithLogger(l *logging.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates a Tracker
func New(repo Repository, opts ...Option) *Tracker {
	t := &Tracker{
		repo:   repo,
		logger: logging.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now returns the tracker's current instant in UTC
func (t *Tracker) Now() time.Time {
	return t.now().UTC()
}

func (t *Tracker) instantOr(at *time.Time) time.Time {
	if at != nil {
		return at.UTC()
	}
	return t.Now()
}

// FrameDetails are attached to a frame as it is created
type FrameDetails struct {
	Tags     []string
	Notes    string
	Estimate time.Duration
}

// Start opens a new frame for the named project, creating the project if needed.
// A project can only have one active frame at a time.
func (t *Tracker) Start(project string, startedAt *time.Time) (*domain.Frame, error) {
	return t.StartWith(project, startedAt, FrameDetails{})
}

// StartWith opens a new frame carrying the given tags, notes and estimate. If any
// of them cannot be stored the frame is removed again.
func (t *Tracker) StartWith(project string, startedAt *time.Time, d FrameDetails) (*domain.Frame, error) {
	if d.Estimate < 0 {
		return nil, fmt.Errorf("start %s: %w", project, domain.ErrNegativeEstimate)
	}
	p, err := t.repo.FindOrCreateProject(project)
	if err != nil {
		return nil, err
	}
	tags, err := t.resolveTags(d.Tags)
	if err != nil {
		return nil, err
	}

	active, err := t.repo.ActiveFrames(p.Name)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, fmt.Errorf("start %s: %w (frame %s)", p.Name, domain.ErrFrameActive, active[0].ID)
	}

	f := &domain.Frame{
		Project:   *p,
		StartedAt: t.instantOr(startedAt),
		Notes:     d.Notes,
		Estimate:  d.Estimate,
	}
	if err := t.create(f, tags); err != nil {
		return nil, err
	}

	t.logger.Info("frame started", "frame_id", f.ID, "project", p.Name, "started_at", f.StartedAt)
	return f, nil
}

func (t *Tracker) resolveTags(names []string) ([]domain.Tag, error) {
	var tags []domain.Tag
	for _, name := range names {
		if name == "" || hasTag(tags, name) {
			continue
		}
		tag, err := t.repo.FindOrCreateTag(name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// create inserts f and links tags, deleting f if a link fails
func (t *Tracker) create(f *domain.Frame, tags []domain.Tag) error {
	if err := t.repo.CreateFrame(f); err != nil {
		return err
	}

	for _, tag := range tags {
		if err := t.repo.LinkFrameTag(f.ID, tag.ID); err != nil {
			if derr := t.repo.DeleteFrame(f.ID); derr != nil {
				t.logger.Error("remove partially created frame", "frame_id", f.ID, "error", derr.Error())
			}
			return err
		}
	}
	f.Tags = tags
	return nil
}

// Stop closes an active frame at stoppedAt, or now when nil.
func (t *Tracker) Stop(f *domain.Frame, stoppedAt *time.Time) error {
	if !f.Active() {
		return fmt.Errorf("stop frame %s: %w", f.ID, domain.ErrFrameStopped)
	}
	at := t.instantOr(stoppedAt)
	if at.Before(f.StartedAt) {
		return fmt.Errorf("stop frame %s: %w", f.ID, domain.ErrStopBeforeStart)
	}

	f.StoppedAt = &at
	if err := t.repo.UpdateFrame(f); err != nil {
		f.StoppedAt = nil
		return err
	}

	t.logger.Info("frame stopped", "frame_id", f.ID, "project", f.Project.Name, "elapsed", f.Elapsed(at).String())
	return nil
}

// Restart opens a new frame with the project and tags of f. The original frame
// is left untouched.
func (t *Tracker) Restart(f *domain.Frame, startedAt *time.Time) (*domain.Frame, error) {
	tags, err := t.repo.FrameTags(f.ID)
	if err != nil {
		return nil, err
	}

	restarted, err := t.StartWith(f.Project.Name, startedAt, FrameDetails{Tags: domain.Frame{Tags: tags}.TagNames()})
	if err != nil {
		return nil, err
	}

	t.logger.Debug("frame restarted", "from_frame_id", f.ID, "frame_id", restarted.ID)
	return restarted, nil
}

// Add records a closed frame for past work
func (t *Tracker) Add(project string, start, stop time.Time) (*domain.Frame, error) {
	return t.AddWith(project, start, stop, FrameDetails{})
}

// AddWith records a closed frame carrying the given tags, notes and estimate
func (t *Tracker) AddWith(project string, start, stop time.Time, d FrameDetails) (*domain.Frame, error) {
	if stop.Before(start) {
		return nil, fmt.Errorf("add frame for %s: %w", project, domain.ErrStopBeforeStart)
	}
	if d.Estimate < 0 {
		return nil, fmt.Errorf("add frame for %s: %w", project, domain.ErrNegativeEstimate)
	}

	p, err := t.repo.FindOrCreateProject(project)
	if err != nil {
		return nil, err
	}
	tags, err := t.resolveTags(d.Tags)
	if err != nil {
		return nil, err
	}

	start, stop = start.UTC(), stop.UTC()
	f := &domain.Frame{
		Project:   *p,
		StartedAt: start,
		StoppedAt: &stop,
		Notes:     d.Notes,
		Estimate:  d.Estimate,
	}
	if err := t.create(f, tags); err != nil {
		return nil, err
	}

	t.logger.Info("frame added", "frame_id", f.ID, "project", p.Name, "started_at", start, "stopped_at", stop)
	return f, nil
}

// AddTags finds or creates each named tag and links it to f. Tags already on the
// frame are skipped.
func (t *Tracker) AddTags(f *domain.Frame, names ...string) error {
	for _, name := range names {
		if name == "" || hasTag(f.Tags, name) {
			continue
		}
		tag, err := t.repo.FindOrCreateTag(name)
		if err != nil {
			return err
		}
		if err := t.repo.LinkFrameTag(f.ID, tag.ID); err != nil {
			return err
		}
		f.Tags = append(f.Tags, *tag)
	}
	return nil
}

func hasTag(tags []domain.Tag, name string) bool {
	for _, tag := range tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

// AddNotes replaces the frame's notes
func (t *Tracker) AddNotes(f *domain.Frame, notes string) error {
	previous := f.Notes
	f.Notes = notes
	if err := t.repo.UpdateFrame(f); err != nil {
		f.Notes = previous
		return err
	}
	return nil
}

// SetEstimate replaces the frame's estimate
func (t *Tracker) SetEstimate(f *domain.Frame, estimate time.Duration) error {
	if estimate < 0 {
		return fmt.Errorf("estimate frame %s: %w", f.ID, domain.ErrNegativeEstimate)
	}
	previous := f.Estimate
	f.Estimate = estimate
	if err := t.repo.UpdateFrame(f); err != nil {
		f.Estimate = previous
		return err
	}
	return nil
}

// Active returns all running frames, most recent first
func (t *Tracker) Active() ([]domain.Frame, error) {
	return t.repo.ActiveFrames("")
}

// LatestClosed returns the most recently stopped frame
func (t *Tracker) LatestClosed() (*domain.Frame, error) {
	return t.repo.LatestClosedFrame()
}
