package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pbriand/verifai/internal/model"
)

// Ensure SQLiteStore implements both store interfaces at compile time.
var (
	_ CheckpointStore = (*SQLiteStore)(nil)
	_ FeedbackStore   = (*SQLiteStore)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	session_id TEXT NOT NULL,
	step       INTEGER NOT NULL,
	state      TEXT NOT NULL,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (session_id, step)
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id);

CREATE TABLE IF NOT EXISTS feedback (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	rating     INTEGER NOT NULL,
	comment    TEXT NOT NULL DEFAULT '',
	corrected  TEXT NOT NULL DEFAULT '',
	flagged    INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id);
`

// SQLiteStore persists checkpoints and feedback in a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// SQLiteOption configures the store.
type SQLiteOption func(*SQLiteStore)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		s.logger = logger
	}
}

// OpenSQLite opens (creating if necessary) the database at path and
// applies the schema.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save appends a checkpoint row.
func (s *SQLiteStore) Save(ctx context.Context, cp model.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, step, state, payload, updated_at) VALUES (?, ?, ?, ?, ?)`,
		cp.SessionID, cp.Step, string(cp.State), string(payload), cp.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint for a session.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM checkpoints WHERE session_id = ? ORDER BY step DESC LIMIT 1`, sessionID)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return decodeCheckpoint(payload)
}

// CASUpdate appends cp inside a transaction, failing with ErrConflict if
// another writer advanced the session past expectedStep.
func (s *SQLiteStore) CASUpdate(ctx context.Context, cp model.Checkpoint, expectedStep uint64) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current sql.NullInt64
	row := tx.QueryRowContext(ctx,
		`SELECT MAX(step) FROM checkpoints WHERE session_id = ?`, cp.SessionID)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read current step: %w", err)
	}
	if !current.Valid {
		return ErrNotFound
	}
	if uint64(current.Int64) != expectedStep {
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, step, state, payload, updated_at) VALUES (?, ?, ?, ?, ?)`,
		cp.SessionID, cp.Step, string(cp.State), string(payload), cp.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return tx.Commit()
}

// History returns all checkpoints for a session ordered by step.
func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]model.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM checkpoints WHERE session_id = ? ORDER BY step ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []model.Checkpoint
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp, err := decodeCheckpoint(payload)
		if err != nil {
			return nil, err
		}
		history = append(history, *cp)
	}
	return history, rows.Err()
}

// List returns the latest checkpoint of every session.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.payload FROM checkpoints c
		JOIN (SELECT session_id, MAX(step) AS step FROM checkpoints GROUP BY session_id) latest
		  ON c.session_id = latest.session_id AND c.step = latest.step
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var latest []model.Checkpoint
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp, err := decodeCheckpoint(payload)
		if err != nil {
			return nil, err
		}
		latest = append(latest, *cp)
	}
	return latest, rows.Err()
}

// Append validates and stores a feedback record.
func (s *SQLiteStore) Append(ctx context.Context, rec model.FeedbackRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (session_id, rating, comment, corrected, flagged, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Rating, rec.Comment, string(rec.Corrected), boolToInt(rec.Flagged),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ForSession returns all feedback for a session, oldest first.
func (s *SQLiteStore) ForSession(ctx context.Context, sessionID string) ([]model.FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, rating, comment, corrected, flagged, created_at
		 FROM feedback WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var records []model.FeedbackRecord
	for rows.Next() {
		var rec model.FeedbackRecord
		var corrected, createdAt string
		var flagged int
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Rating, &rec.Comment, &corrected, &flagged, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		rec.Corrected = model.Label(corrected)
		rec.Flagged = flagged != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// StatsForSession aggregates ratings and flags for a session.
func (s *SQLiteStore) StatsForSession(ctx context.Context, sessionID string) (*model.FeedbackStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0), COALESCE(SUM(flagged), 0)
		 FROM feedback WHERE session_id = ?`, sessionID)

	stats := &model.FeedbackStats{SessionID: sessionID}
	if err := row.Scan(&stats.Count, &stats.AverageRating, &stats.FlaggedCount); err != nil {
		return nil, fmt.Errorf("aggregate feedback: %w", err)
	}
	return stats, nil
}

func decodeCheckpoint(payload string) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

// isDuplicateKey checks if a SQLite error is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
