package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pbaille/frames/internal/domain"
)

//go:embed schema.sql
var schema string

// Instants are stored as UTC text so that SQLite's date() truncates in UTC.
const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

const frameColumns = `f.id, f.started_at, f.stopped_at, f.notes, f.estimate_seconds,
	p.id, p.name, p.created_at`

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// FindOrCreateProject finds a project by name or creates it
func (s *Store) FindOrCreateProject(name string) (*domain.Project, error) {
	var p domain.Project
	err := s.db.QueryRow(
		"SELECT id, name, created_at FROM projects WHERE name = ?",
		name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)

	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find project: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Second)

	_, err = s.db.Exec(
		"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
		id, name, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	return &domain.Project{ID: id, Name: name, CreatedAt: now}, nil
}

// FindOrCreateTag finds a tag by name or creates it
func (s *Store) FindOrCreateTag(name string) (*domain.Tag, error) {
	var tag domain.Tag
	err := s.db.QueryRow(
		"SELECT id, name, created_at FROM tags WHERE name = ?",
		name,
	).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)

	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find tag: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Second)

	_, err = s.db.Exec(
		"INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)",
		id, name, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	return &domain.Tag{ID: id, Name: name, CreatedAt: now}, nil
}

// ListProjects returns all projects ordered by name
func (s *Store) ListProjects() ([]domain.Project, error) {
	rows, err := s.db.Query("SELECT id, name, created_at FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// ListTags returns all tags ordered by name
func (s *Store) ListTags() ([]domain.Tag, error) {
	rows, err := s.db.Query("SELECT id, name, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}

	return tags, rows.Err()
}

// CreateFrame inserts a frame, assigning a new ID when it has none.
// The frame's project must already exist and may hold only one active frame.
func (s *Store) CreateFrame(f *domain.Frame) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.StartedAt = f.StartedAt.UTC().Truncate(time.Second)
	if f.StoppedAt != nil {
		stopped := f.StoppedAt.UTC().Truncate(time.Second)
		f.StoppedAt = &stopped
	}

	_, err := s.db.Exec(
		`INSERT INTO frames (id, project_id, started_at, stopped_at, notes, estimate_seconds)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.Project.ID, formatTime(f.StartedAt), nullableTime(f.StoppedAt),
		f.Notes, int64(f.Estimate/time.Second),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("insert frame: %w", domain.ErrFrameActive)
		}
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

// UpdateFrame persists the mutable columns of an existing frame
func (s *Store) UpdateFrame(f *domain.Frame) error {
	if f.StoppedAt != nil {
		stopped := f.StoppedAt.UTC().Truncate(time.Second)
		f.StoppedAt = &stopped
	}

	res, err := s.db.Exec(
		`UPDATE frames SET started_at = ?, stopped_at = ?, notes = ?, estimate_seconds = ?
		 WHERE id = ?`,
		formatTime(f.StartedAt), nullableTime(f.StoppedAt), f.Notes,
		int64(f.Estimate/time.Second), f.ID,
	)
	if err != nil {
		return fmt.Errorf("update frame: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update frame %s: %w", f.ID, domain.ErrFrameNotFound)
	}
	return nil
}

// DeleteFrame removes a frame and its tag links
func (s *Store) DeleteFrame(id string) error {
	res, err := s.db.Exec("DELETE FROM frames WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete frame: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete frame %s: %w", id, domain.ErrFrameNotFound)
	}
	return nil
}

// LinkFrameTag associates a tag with a frame. Linking twice is a no-op.
func (s *Store) LinkFrameTag(frameID, tagID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO frame_tag (frame_id, tag_id) VALUES (?, ?)",
		frameID, tagID,
	)
	if err != nil {
		return fmt.Errorf("link frame tag: %w", err)
	}
	return nil
}

// FrameTags returns all tags for a frame ordered by name
func (s *Store) FrameTags(frameID string) ([]domain.Tag, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.created_at
		FROM tags t
		JOIN frame_tag ft ON t.id = ft.tag_id
		WHERE ft.frame_id = ?
		ORDER BY t.name
	`, frameID)
	if err != nil {
		return nil, fmt.Errorf("get frame tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}

	return tags, rows.Err()
}

// GetFrame retrieves a frame by ID with its project and tags
func (s *Store) GetFrame(id string) (*domain.Frame, error) {
	frames, err := s.queryFrames(
		"SELECT "+frameColumns+" FROM frames f JOIN projects p ON p.id = f.project_id WHERE f.id = ?",
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("get frame %s: %w", id, domain.ErrFrameNotFound)
	}
	return &frames[0], nil
}

// FindFrame retrieves the most recent frame whose ID starts with prefix
func (s *Store) FindFrame(prefix string) (*domain.Frame, error) {
	frames, err := s.queryFrames(
		"SELECT "+frameColumns+` FROM frames f JOIN projects p ON p.id = f.project_id
		 WHERE f.id LIKE ? ORDER BY f.started_at DESC LIMIT 1`,
		stripWildcards(prefix)+"%",
	)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("find frame %s: %w", prefix, domain.ErrFrameNotFound)
	}
	return &frames[0], nil
}

// ActiveFrames returns running frames, most recent first.
// An empty project name matches every project.
func (s *Store) ActiveFrames(project string) ([]domain.Frame, error) {
	query := "SELECT " + frameColumns + ` FROM frames f JOIN projects p ON p.id = f.project_id
		WHERE f.stopped_at IS NULL`
	var args []any
	if project != "" {
		query += " AND p.name = ?"
		args = append(args, project)
	}
	query += " ORDER BY f.started_at DESC"
	return s.queryFrames(query, args...)
}

// LatestClosedFrame returns the most recently stopped frame
func (s *Store) LatestClosedFrame() (*domain.Frame, error) {
	frames, err := s.RecentFrames(1)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("latest closed frame: %w", domain.ErrFrameNotFound)
	}
	return &frames[0], nil
}

// RecentFrames returns closed frames ordered by stop time, newest first
func (s *Store) RecentFrames(limit int) ([]domain.Frame, error) {
	return s.queryFrames(
		"SELECT "+frameColumns+` FROM frames f JOIN projects p ON p.id = f.project_id
		 WHERE f.stopped_at IS NOT NULL ORDER BY f.stopped_at DESC LIMIT ?`,
		limit,
	)
}

// QueryFrames returns the frames matching filter ordered by start time.
//
// Closed-frame scopes select frames whose start date is on or after From and whose stop
// date is on or before To. Active scopes compare the start date against both bounds.
// Dates are the UTC calendar dates of the stored instants and of the bounds.
func (s *Store) QueryFrames(filter domain.FrameFilter) ([]domain.Frame, error) {
	var (
		where []string
		args  []any
	)

	if !filter.From.IsZero() {
		where = append(where, "date(f.started_at) >= ?")
		args = append(args, filter.From.UTC().Format(dateLayout))
	}

	switch {
	case filter.OnlyActive:
		where = append(where, "f.stopped_at IS NULL")
		if !filter.To.IsZero() {
			where = append(where, "date(f.started_at) <= ?")
			args = append(args, filter.To.UTC().Format(dateLayout))
		}
	case filter.OnlyClosed:
		where = append(where, "f.stopped_at IS NOT NULL")
		if !filter.To.IsZero() {
			where = append(where, "date(f.stopped_at) <= ?")
			args = append(args, filter.To.UTC().Format(dateLayout))
		}
	default:
		if !filter.To.IsZero() {
			where = append(where, "date(COALESCE(f.stopped_at, f.started_at)) <= ?")
			args = append(args, filter.To.UTC().Format(dateLayout))
		}
	}

	if len(filter.Projects) > 0 {
		where = append(where, "p.name IN ("+placeholders(len(filter.Projects))+")")
		for _, name := range filter.Projects {
			args = append(args, name)
		}
	}

	if len(filter.Tags) > 0 {
		where = append(where, `EXISTS (
			SELECT 1 FROM frame_tag ft JOIN tags t ON t.id = ft.tag_id
			WHERE ft.frame_id = f.id AND t.name IN (`+placeholders(len(filter.Tags))+`))`)
		for _, name := range filter.Tags {
			args = append(args, name)
		}
	}

	query := "SELECT " + frameColumns + " FROM frames f JOIN projects p ON p.id = f.project_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.started_at ASC, f.id ASC"

	return s.queryFrames(query, args...)
}

// queryFrames runs a frame select and attaches tags once the cursor is closed
func (s *Store) queryFrames(query string, args ...any) ([]domain.Frame, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}

	var frames []domain.Frame
	for rows.Next() {
		var (
			f        domain.Frame
			stopped  sql.NullTime
			estimate int64
		)
		if err := rows.Scan(
			&f.ID, &f.StartedAt, &stopped, &f.Notes, &estimate,
			&f.Project.ID, &f.Project.Name, &f.Project.CreatedAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if stopped.Valid {
			t := stopped.Time.UTC()
			f.StoppedAt = &t
		}
		f.StartedAt = f.StartedAt.UTC()
		f.Estimate = time.Duration(estimate) * time.Second
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	rows.Close()

	for i := range frames {
		tags, err := s.FrameTags(frames[i].ID)
		if err != nil {
			return nil, err
		}
		frames[i].Tags = tags
	}

	return frames, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stripWildcards(s string) string {
	r := strings.NewReplacer("%", "", "_", "")
	return r.Replace(s)
}
