// Package posedb persists captured pose sessions in SQLite so they can be
// re-processed, re-scaled and replayed without re-running the pose model.
package posedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/posetrace/internal/monitoring"
	"github.com/banshee-data/posetrace/internal/pose"
	"github.com/banshee-data/posetrace/internal/pose/scale"
	"github.com/banshee-data/posetrace/internal/timeutil"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

const (
	kindWorld = "world"
	kindImage = "image"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Session describes one stored capture.
type Session struct {
	ID            string    `json:"session_id"`
	Source        string    `json:"source"`
	FPS           float64   `json:"fps"`
	FrameCount    int       `json:"frame_count"`
	ScaleEstimate *float64  `json:"scale_estimate,omitempty"`
	ScaleSamples  int       `json:"scale_samples"`
	ScaleOverride *float64  `json:"scale_override,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store is a SQLite-backed session store.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for creation timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open opens the database at path and brings its schema up to date.
func Open(path string, opts ...Option) (*Store, error) {
	s, err := OpenUnmigrated(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenUnmigrated opens the database without touching its schema, for
// migration tooling.
func OpenUnmigrated(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	// SQLite pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}

	s := &Store{db: db, clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCapture stores a capture and its scale summary under a new session
// id. est may be nil when no scale could be estimated.
func (s *Store) SaveCapture(ctx context.Context, source string, c pose.Capture, est *scale.Summary) (string, error) {
	id := uuid.New().String()

	var estimate sql.NullFloat64
	samples := 0
	if est != nil {
		estimate = sql.NullFloat64{Float64: est.Scale, Valid: true}
		samples = est.Samples
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pose_sessions (
			session_id, source, fps, frame_count, scale_estimate, scale_samples, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, source, c.FPS, c.FrameCount(), estimate, samples, s.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pose_landmarks (session_id, kind, frame, joint, x, y, z, visibility)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare landmark insert: %w", err)
	}
	defer stmt.Close()

	stored := 0
	for _, seq := range []struct {
		kind string
		seq  pose.Sequence
	}{{kindWorld, c.Landmarks3D}, {kindImage, c.Landmarks2D}} {
		for f, frame := range seq.seq {
			for j, joint := range frame {
				if !joint.Detected {
					continue
				}
				l := joint.Landmark
				if _, err := stmt.ExecContext(ctx, id, seq.kind, f, j, l.X, l.Y, l.Z, l.Visibility); err != nil {
					return "", fmt.Errorf("insert landmark %s[%d][%d]: %w", seq.kind, f, j, err)
				}
				stored++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}
	monitoring.Logf("saved session %s: %d frames, %d landmarks", id, c.FrameCount(), stored)
	return id, nil
}

// LoadCapture rebuilds the capture stored under id.
func (s *Store) LoadCapture(ctx context.Context, id string) (pose.Capture, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return pose.Capture{}, err
	}

	world := emptySequence(sess.FrameCount)
	image := emptySequence(sess.FrameCount)

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, frame, joint, x, y, z, visibility
		FROM pose_landmarks
		WHERE session_id = ?
		ORDER BY kind, frame, joint`, id)
	if err != nil {
		return pose.Capture{}, fmt.Errorf("query landmarks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind     string
			frame, j int
			l        pose.Landmark
		)
		if err := rows.Scan(&kind, &frame, &j, &l.X, &l.Y, &l.Z, &l.Visibility); err != nil {
			return pose.Capture{}, fmt.Errorf("scan landmark: %w", err)
		}
		seq := world
		if kind == kindImage {
			seq = image
		}
		if frame < 0 || frame >= len(seq) || j < 0 {
			return pose.Capture{}, fmt.Errorf("landmark %s[%d][%d] outside session %s", kind, frame, j, id)
		}
		if j >= len(seq[frame]) {
			grown := make(pose.Frame, j+1)
			copy(grown, seq[frame])
			seq[frame] = grown
		}
		seq[frame][j] = pose.Detect(l)
	}
	if err := rows.Err(); err != nil {
		return pose.Capture{}, fmt.Errorf("read landmarks: %w", err)
	}

	return pose.NewCapture(world, image, sess.FPS), nil
}

func emptySequence(frames int) pose.Sequence {
	seq := make(pose.Sequence, frames)
	for i := range seq {
		seq[i] = make(pose.Frame, pose.NumJoints)
	}
	return seq
}

const sessionColumns = `session_id, source, fps, frame_count, scale_estimate, scale_samples, scale_override, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		sess      Session
		estimate  sql.NullFloat64
		override  sql.NullFloat64
		createdNs int64
	)
	if err := row.Scan(&sess.ID, &sess.Source, &sess.FPS, &sess.FrameCount,
		&estimate, &sess.ScaleSamples, &override, &createdNs); err != nil {
		return nil, err
	}
	if estimate.Valid {
		sess.ScaleEstimate = &estimate.Float64
	}
	if override.Valid {
		sess.ScaleOverride = &override.Float64
	}
	sess.CreatedAt = time.Unix(0, createdNs).UTC()
	return &sess, nil
}

// GetSession returns the metadata of one session.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM pose_sessions WHERE session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM pose_sessions ORDER BY created_at DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SetScaleOverride stores a user scale for the session; nil clears it.
func (s *Store) SetScaleOverride(ctx context.Context, id string, v *float64) error {
	var override sql.NullFloat64
	if v != nil {
		override = sql.NullFloat64{Float64: *v, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE pose_sessions SET scale_override = ? WHERE session_id = ?`, override, id)
	if err != nil {
		return fmt.Errorf("update scale override: %w", err)
	}
	return expectOneRow(res, id)
}

// DeleteSession removes a session and its landmarks.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pose_landmarks WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete landmarks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM pose_sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := expectOneRow(res, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	monitoring.Logf("deleted session %s", id)
	return nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return nil
}
