// Package store persists verification checkpoints and reviewer feedback.
package store

import (
	"context"
	"errors"

	"github.com/pbriand/verifai/internal/model"
)

// ErrNotFound is returned when no checkpoint or feedback exists for a key.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a compare-and-swap update loses the race:
// the stored step no longer matches what the caller observed.
var ErrConflict = errors.New("checkpoint step conflict")

// CheckpointStore persists the full checkpoint history of each session.
// Every state transition appends a new (session_id, step) row; Load returns
// the row with the highest step.
type CheckpointStore interface {
	// Save appends a checkpoint. Saving a (session, step) pair that
	// already exists returns ErrConflict.
	Save(ctx context.Context, cp model.Checkpoint) error

	// Load returns the latest checkpoint for a session, or ErrNotFound.
	Load(ctx context.Context, sessionID string) (*model.Checkpoint, error)

	// CASUpdate appends cp only if the session's current highest step
	// equals expectedStep. A mismatch returns ErrConflict.
	CASUpdate(ctx context.Context, cp model.Checkpoint, expectedStep uint64) error

	// History returns every checkpoint for a session ordered by step.
	History(ctx context.Context, sessionID string) ([]model.Checkpoint, error)

	// List returns the latest checkpoint of every known session.
	List(ctx context.Context) ([]model.Checkpoint, error)

	Close() error
}

// FeedbackStore persists reviewer feedback tied to completed sessions.
type FeedbackStore interface {
	// Append validates and stores a feedback record.
	Append(ctx context.Context, rec model.FeedbackRecord) error

	// ForSession returns all feedback for a session, oldest first.
	ForSession(ctx context.Context, sessionID string) ([]model.FeedbackRecord, error)

	// StatsForSession aggregates ratings and flags for a session.
	StatsForSession(ctx context.Context, sessionID string) (*model.FeedbackStats, error)

	Close() error
}
