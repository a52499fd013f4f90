// Package storage persists scenes and the editor event log.
//
// Scenes are stored as canonical text keyed by frame and scene id, next to
// their BLAKE3 fingerprint, so that saving an unchanged scene is a no-op.
// The SQL is shared by the postgres and sqlite backends; each backend
// supplies a Dialect.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AaronLay10/FrameScene/internal/canonical"
	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

// ErrNotFound is returned when a scene does not exist for the frame.
var ErrNotFound = errors.New("scene not found")

// Summary describes a stored scene without its document.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SceneStore is the persistence backend for one frame's scenes.
type SceneStore interface {
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, sceneID string) (*scene.Scene, error)
	// Put stores s and reports whether anything changed.
	Put(ctx context.Context, s *scene.Scene) (Summary, bool, error)
	Delete(ctx context.Context, sceneID string) error
	Close() error
}

// Dialect holds what differs between SQL backends.
type Dialect struct {
	Name string
	// EventsTable creates the events table and its indexes.
	EventsTable string
	// Numbered rewrites $N placeholders for the backend.
	Numbered func(query string) string
}

const scenesTable = `
	CREATE TABLE IF NOT EXISTS scenes (
		frame_id    TEXT NOT NULL,
		scene_id    TEXT NOT NULL,
		name        TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		document    TEXT NOT NULL,
		is_default  BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at  BIGINT NOT NULL,
		PRIMARY KEY (frame_id, scene_id)
	);
`

// EventRow is an event read back from the log.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	FrameID   string                 `json:"frame_id"`
}

// Store is a SQL-backed SceneStore. It also implements events.Sink, so
// the event log can live in the same database.
type Store struct {
	db      *sql.DB
	frameID string
	dialect Dialect
	now     func() time.Time

	mu sync.Mutex
}

// NewStore creates the tables if needed and returns a store scoped to
// frameID. The store owns db.
func NewStore(db *sql.DB, frameID string, d Dialect) (*Store, error) {
	if frameID == "" {
		return nil, errors.New("frame id required")
	}
	if d.Numbered == nil {
		d.Numbered = func(q string) string { return q }
	}
	if _, err := db.Exec(scenesTable); err != nil {
		return nil, fmt.Errorf("failed to create scenes table: %w", err)
	}
	if _, err := db.Exec(d.EventsTable); err != nil {
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}
	return &Store{db: db, frameID: frameID, dialect: d, now: time.Now}, nil
}

// DollarToQuestion rewrites $N placeholders as ?N.
func DollarToQuestion(query string) string {
	return strings.ReplaceAll(query, "$", "?")
}

// FrameID returns the frame the store is scoped to.
func (s *Store) FrameID() string { return s.frameID }

// Dialect returns the backend name.
func (s *Store) Dialect() string { return s.dialect.Name }

func (s *Store) q(query string) string {
	return s.dialect.Numbered(query)
}

// List returns the frame's scenes ordered by name, then id.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT scene_id, name, fingerprint, updated_at
		FROM scenes
		WHERE frame_id = $1
		ORDER BY name, scene_id
	`), s.frameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var updated int64
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Fingerprint, &updated); err != nil {
			return nil, err
		}
		sum.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads one scene.
func (s *Store) Get(ctx context.Context, sceneID string) (*scene.Scene, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT document FROM scenes WHERE frame_id = $1 AND scene_id = $2
	`), s.frameID, sceneID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sceneID)
	}
	if err != nil {
		return nil, err
	}
	sc, err := canonical.FromText(doc)
	if err != nil {
		return nil, fmt.Errorf("stored scene %s is corrupt: %w", sceneID, err)
	}
	return sc, nil
}

// Put writes sc unless the stored copy has the same fingerprint. Scenes
// failing the structural check are refused, as is a default scene while
// another scene of the frame is the default.
func (s *Store) Put(ctx context.Context, sc *scene.Scene) (Summary, bool, error) {
	if sc == nil || sc.ID == "" {
		return Summary{}, false, errors.New("scene id required")
	}
	if err := sc.Check(); err != nil {
		return Summary{}, false, err
	}
	text, err := canonical.Text(sc)
	if err != nil {
		return Summary{}, false, err
	}
	fp, err := canonical.Fingerprint(sc)
	if err != nil {
		return Summary{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, false, err
	}
	defer tx.Rollback()

	var current string
	var updated int64
	err = tx.QueryRowContext(ctx, s.q(`
		SELECT fingerprint, updated_at FROM scenes WHERE frame_id = $1 AND scene_id = $2
	`), s.frameID, sc.ID).Scan(&current, &updated)
	switch {
	case err == nil && current == fp:
		return Summary{ID: sc.ID, Name: sc.Name, Fingerprint: fp, UpdatedAt: time.UnixMilli(updated).UTC()}, false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return Summary{}, false, err
	}

	if sc.IsDefault {
		var other string
		err := tx.QueryRowContext(ctx, s.q(`
			SELECT scene_id FROM scenes
			WHERE frame_id = $1 AND scene_id <> $2 AND is_default = $3
			LIMIT 1
		`), s.frameID, sc.ID, true).Scan(&other)
		switch {
		case err == nil:
			return Summary{}, false, &scene.StructuralError{
				Kind:    scene.ViolationDuplicateDefault,
				SceneID: sc.ID,
				Msg:     fmt.Sprintf("scene %q is already the default of frame %s", other, s.frameID),
			}
		case !errors.Is(err, sql.ErrNoRows):
			return Summary{}, false, err
		}
	}

	now := s.now().UTC()
	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO scenes (frame_id, scene_id, name, fingerprint, document, is_default, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (frame_id, scene_id) DO UPDATE SET
			name = excluded.name,
			fingerprint = excluded.fingerprint,
			document = excluded.document,
			is_default = excluded.is_default,
			updated_at = excluded.updated_at
	`), s.frameID, sc.ID, sc.Name, fp, text, sc.IsDefault, now.UnixMilli())
	if err != nil {
		return Summary{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, false, err
	}
	return Summary{ID: sc.ID, Name: sc.Name, Fingerprint: fp, UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC()}, true, nil
}

// Delete removes a scene. Deleting a missing scene returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, sceneID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM scenes WHERE frame_id = $1 AND scene_id = $2
	`), s.frameID, sceneID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sceneID)
	}
	return nil
}

// Append inserts an event into the log.
func (s *Store) Append(e events.Event) error {
	var fields sql.NullString
	if e.Fields != nil {
		b, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		fields = sql.NullString{String: string(b), Valid: true}
	}
	msg := sql.NullString{String: e.Message, Valid: e.Message != ""}

	ts := e.Time()
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.Exec(s.q(`
		INSERT INTO events (ts, level, event, msg, fields, frame_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`), ts.UnixMilli(), e.Level, e.Name, msg, fields, s.frameID)
	return err
}

// Events returns the last limit events of the frame, newest first.
func (s *Store) Events(ctx context.Context, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT event_id, ts, level, event, msg, fields, frame_id
		FROM events
		WHERE frame_id = $1
		ORDER BY ts DESC, event_id DESC
		LIMIT $2
	`), s.frameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		var ts int64
		var msg, fields sql.NullString
		if err := rows.Scan(&e.EventID, &ts, &e.Level, &e.Event, &msg, &fields, &e.FrameID); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		if msg.Valid {
			e.Message = &msg.String
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
