package tracker

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/pbaille/frames/internal/domain"
)

// memRepo is an in-memory Repository for tests
type memRepo struct {
	projects map[string]*domain.Project
	tags     map[string]*domain.Tag
	frames   map[string]*domain.Frame
	links    map[string][]string
	seq      int
	failOn   string
}

func newMemRepo() *memRepo {
	return &memRepo{
		projects: map[string]*domain.Project{},
		tags:     map[string]*domain.Tag{},
		frames:   map[string]*domain.Frame{},
		links:    map[string][]string{},
	}
}

var errBoom = errors.New("boom")

func (r *memRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *memRepo) FindOrCreateProject(name string) (*domain.Project, error) {
	if r.failOn == "project" {
		return nil, errBoom
	}
	if p, ok := r.projects[name]; ok {
		return p, nil
	}
	p := &domain.Project{ID: r.nextID("p"), Name: name}
	r.projects[name] = p
	return p, nil
}

func (r *memRepo) FindOrCreateTag(name string) (*domain.Tag, error) {
	if t, ok := r.tags[name]; ok {
		return t, nil
	}
	t := &domain.Tag{ID: r.nextID("t"), Name: name}
	r.tags[name] = t
	return t, nil
}

func (r *memRepo) CreateFrame(f *domain.Frame) error {
	if r.failOn == "create" {
		return errBoom
	}
	if f.ID == "" {
		f.ID = r.nextID("f")
	}
	stored := *f
	r.frames[f.ID] = &stored
	return nil
}

func (r *memRepo) UpdateFrame(f *domain.Frame) error {
	if r.failOn == "update" {
		return errBoom
	}
	if _, ok := r.frames[f.ID]; !ok {
		return domain.ErrFrameNotFound
	}
	stored := *f
	r.frames[f.ID] = &stored
	return nil
}

func (r *memRepo) DeleteFrame(id string) error {
	if _, ok := r.frames[id]; !ok {
		return domain.ErrFrameNotFound
	}
	delete(r.frames, id)
	delete(r.links, id)
	return nil
}

func (r *memRepo) LinkFrameTag(frameID, tagID string) error {
	if r.failOn == "link" {
		return errBoom
	}
	if slices.Contains(r.links[frameID], tagID) {
		return nil
	}
	r.links[frameID] = append(r.links[frameID], tagID)
	return nil
}

func (r *memRepo) FrameTags(frameID string) ([]domain.Tag, error) {
	var tags []domain.Tag
	for _, id := range r.links[frameID] {
		for _, t := range r.tags {
			if t.ID == id {
				tags = append(tags, *t)
			}
		}
	}
	return tags, nil
}

func (r *memRepo) ActiveFrames(project string) ([]domain.Frame, error) {
	var out []domain.Frame
	for _, f := range r.frames {
		if f.Active() && (project == "" || f.Project.Name == project) {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *memRepo) LatestClosedFrame() (*domain.Frame, error) {
	var latest *domain.Frame
	for _, f := range r.frames {
		if f.Active() {
			continue
		}
		if latest == nil || f.StoppedAt.After(*latest.StoppedAt) {
			latest = f
		}
	}
	if latest == nil {
		return nil, domain.ErrFrameNotFound
	}
	return latest, nil
}

var epoch = time.Date(2019, 5, 4, 16, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr(t time.Time) *time.Time { return &t }

func TestStartUsesClockAndCreatesProject(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo, WithClock(fixedClock(epoch)))

	f, err := tr.Start("blog", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !f.StartedAt.Equal(epoch) {
		t.Errorf("StartedAt = %v, want %v", f.StartedAt, epoch)
	}
	if !f.Active() {
		t.Error("started frame should be active")
	}
	if _, ok := repo.projects["blog"]; !ok {
		t.Error("project was not created")
	}
	if _, ok := repo.frames[f.ID]; !ok {
		t.Error("frame was not persisted")
	}
}

func TestStartRejectsSecondActiveFrame(t *testing.T) {
	tr := New(newMemRepo(), WithClock(fixedClock(epoch)))

	if _, err := tr.Start("blog", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := tr.Start("blog", nil); !errors.Is(err, domain.ErrFrameActive) {
		t.Fatalf("second Start() error = %v, want ErrFrameActive", err)
	}
	if _, err := tr.Start("other", nil); err != nil {
		t.Fatalf("Start() on another project error = %v", err)
	}
}

func TestStop(t *testing.T) {
	tests := []struct {
		name    string
		at      *time.Time
		wantErr error
		wantEnd time.Time
	}{
		{"now", nil, nil, epoch.Add(time.Hour)},
		{"explicit", ptr(epoch.Add(30 * time.Minute)), nil, epoch.Add(30 * time.Minute)},
		{"equal to start", ptr(epoch), nil, epoch},
		{"before start", ptr(epoch.Add(-time.Minute)), domain.ErrStopBeforeStart, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			tr := New(repo, WithClock(fixedClock(epoch.Add(time.Hour))))
			f, err := tr.Start("blog", ptr(epoch))
			if err != nil {
				t.Fatal(err)
			}

			err = tr.Stop(f, tt.at)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Stop() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if !repo.frames[f.ID].Active() {
					t.Error("failed stop must not close the frame")
				}
				return
			}
			if got := *repo.frames[f.ID].StoppedAt; !got.Equal(tt.wantEnd) {
				t.Errorf("StoppedAt = %v, want %v", got, tt.wantEnd)
			}
		})
	}
}

func TestStopTwiceIsRejected(t *testing.T) {
	tr := New(newMemRepo(), WithClock(fixedClock(epoch)))
	f, _ := tr.Add("blog", epoch.Add(-time.Hour), epoch)

	if err := tr.Stop(f, nil); !errors.Is(err, domain.ErrFrameStopped) {
		t.Fatalf("Stop() on closed frame error = %v, want ErrFrameStopped", err)
	}
}

func TestStopRollsBackOnStoreFailure(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo, WithClock(fixedClock(epoch)))
	f, _ := tr.Start("blog", ptr(epoch.Add(-time.Hour)))

	repo.failOn = "update"
	if err := tr.Stop(f, nil); !errors.Is(err, errBoom) {
		t.Fatalf("Stop() error = %v, want store error", err)
	}
	if !f.Active() {
		t.Error("frame should remain active after a failed write")
	}
}

func TestRestartCopiesProjectAndTags(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo, WithClock(fixedClock(epoch.Add(2*time.Hour))))

	original, err := tr.Add("blog", epoch, epoch.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.AddTags(original, "writing", "theme"); err != nil {
		t.Fatal(err)
	}
	before := *repo.frames[original.ID]

	restarted, err := tr.Restart(original, nil)
	if err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	if restarted.ID == original.ID {
		t.Error("restart must create a new frame")
	}
	if restarted.Project.Name != "blog" {
		t.Errorf("Project = %q, want blog", restarted.Project.Name)
	}
	if !restarted.Active() || !restarted.StartedAt.Equal(epoch.Add(2*time.Hour)) {
		t.Errorf("restarted frame = %+v", restarted)
	}

	got, _ := repo.FrameTags(restarted.ID)
	want, _ := repo.FrameTags(original.ID)
	if len(got) != 2 || len(got) != len(want) {
		t.Errorf("restarted tags = %v, want %v", got, want)
	}

	after := repo.frames[original.ID]
	if !after.StartedAt.Equal(before.StartedAt) || !after.StoppedAt.Equal(*before.StoppedAt) {
		t.Error("restart mutated the original frame")
	}
}

func TestAdd(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo)

	f, err := tr.Add("blog", epoch, epoch.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if f.Active() {
		t.Fatal("added frame should be closed")
	}
	if got := f.Elapsed(time.Now()); got != 90*time.Minute {
		t.Errorf("Elapsed = %v, want 1h30m", got)
	}

	if _, err := tr.Add("blog", epoch, epoch.Add(-time.Second)); !errors.Is(err, domain.ErrStopBeforeStart) {
		t.Errorf("Add() with stop < start error = %v", err)
	}
	if len(repo.frames) != 1 {
		t.Errorf("rejected add wrote a frame: %d frames", len(repo.frames))
	}
}

func TestAddTagsIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo)
	f, _ := tr.Add("blog", epoch, epoch.Add(time.Hour))

	if err := tr.AddTags(f, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddTags(f, "a", ""); err != nil {
		t.Fatal(err)
	}

	if len(f.Tags) != 2 {
		t.Errorf("frame tags = %v, want 2", f.Tags)
	}
	if len(repo.links[f.ID]) != 2 {
		t.Errorf("links = %v, want 2", repo.links[f.ID])
	}
	if len(repo.tags) != 2 {
		t.Errorf("tags created = %d, want 2", len(repo.tags))
	}
}

func TestAddNotesAndEstimate(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo)
	f, _ := tr.Add("blog", epoch, epoch.Add(time.Hour))

	if err := tr.AddNotes(f, "first"); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddNotes(f, "second"); err != nil {
		t.Fatal(err)
	}
	if got := repo.frames[f.ID].Notes; got != "second" {
		t.Errorf("Notes = %q, want second", got)
	}

	if err := tr.SetEstimate(f, 30*time.Minute); err != nil {
		t.Fatal(err)
	}
	if got := repo.frames[f.ID].Estimate; got != 30*time.Minute {
		t.Errorf("Estimate = %v", got)
	}
	if err := tr.SetEstimate(f, -time.Minute); !errors.Is(err, domain.ErrNegativeEstimate) {
		t.Errorf("SetEstimate(-1m) error = %v", err)
	}
}

func TestStartPropagatesStoreFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failOn = "project"
	if _, err := New(repo).Start("blog", nil); !errors.Is(err, errBoom) {
		t.Fatalf("Start() error = %v, want store error", err)
	}
}

func TestLatestClosed(t *testing.T) {
	tr := New(newMemRepo())
	if _, err := tr.LatestClosed(); !errors.Is(err, domain.ErrFrameNotFound) {
		t.Fatalf("LatestClosed() on empty repo error = %v", err)
	}

	tr.Add("a", epoch, epoch.Add(time.Hour))
	second, _ := tr.Add("b", epoch, epoch.Add(2*time.Hour))

	got, err := tr.LatestClosed()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second.ID {
		t.Errorf("LatestClosed() = %s, want %s", got.ID, second.ID)
	}
}

func TestStartWithDetails(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo, WithClock(fixedClock(epoch)))

	f, err := tr.StartWith("blog", nil, FrameDetails{
		Tags:     []string{"writing", "theme", "writing"},
		Notes:    "new theme",
		Estimate: 45 * time.Minute,
	})
	if err != nil {
		t.Fatalf("StartWith() error = %v", err)
	}

	stored := repo.frames[f.ID]
	if stored.Notes != "new theme" || stored.Estimate != 45*time.Minute {
		t.Errorf("stored frame = %+v", stored)
	}
	if names := f.TagNames(); !slices.Equal(names, []string{"writing", "theme"}) {
		t.Errorf("tags = %v", names)
	}
}

func TestStartWithLeavesNothingBehindOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		failOn  string
		details FrameDetails
		wantErr error
	}{
		{"negative estimate", "", FrameDetails{Estimate: -time.Minute}, domain.ErrNegativeEstimate},
		{"tag link fails", "link", FrameDetails{Tags: []string{"writing"}}, errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			repo.failOn = tt.failOn
			tr := New(repo, WithClock(fixedClock(epoch)))

			if _, err := tr.StartWith("blog", nil, tt.details); !errors.Is(err, tt.wantErr) {
				t.Fatalf("StartWith() error = %v, want %v", err, tt.wantErr)
			}
			if len(repo.frames) != 0 {
				t.Errorf("frames left behind: %v", repo.frames)
			}

			repo.failOn = ""
			if _, err := tr.Start("blog", nil); err != nil {
				t.Errorf("Start() after failure error = %v", err)
			}
		})
	}
}

func TestAddWithDetails(t *testing.T) {
	repo := newMemRepo()
	tr := New(repo, WithClock(fixedClock(epoch)))

	f, err := tr.AddWith("blog", epoch, epoch.Add(time.Hour), FrameDetails{Tags: []string{"writing"}, Notes: "draft"})
	if err != nil {
		t.Fatalf("AddWith() error = %v", err)
	}
	if f.Active() || f.Notes != "draft" || len(f.Tags) != 1 {
		t.Errorf("frame = %+v", f)
	}
	if tags, _ := repo.FrameTags(f.ID); len(tags) != 1 || tags[0].Name != "writing" {
		t.Errorf("linked tags = %v", tags)
	}
}
