package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pbriand/verifai/internal/model"
)

var (
	_ CheckpointStore = (*MemoryStore)(nil)
	_ FeedbackStore   = (*MemoryStore)(nil)
)

// MemoryStore is an in-memory implementation of both stores, used for
// tests and ephemeral runs.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string][]model.Checkpoint
	feedback    map[string][]model.FeedbackRecord
	nextID      int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: make(map[string][]model.Checkpoint),
		feedback:    make(map[string][]model.FeedbackRecord),
	}
}

// Save appends a checkpoint.
func (s *MemoryStore) Save(_ context.Context, cp model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.checkpoints[cp.SessionID] {
		if existing.Step == cp.Step {
			return ErrConflict
		}
	}
	s.checkpoints[cp.SessionID] = append(s.checkpoints[cp.SessionID], cp)
	return nil
}

// Load returns the latest checkpoint for a session.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (*model.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.checkpoints[sessionID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	latest := history[0]
	for _, cp := range history[1:] {
		if cp.Step > latest.Step {
			latest = cp
		}
	}
	out := latest
	return &out, nil
}

// CASUpdate appends cp only if the current highest step matches.
func (s *MemoryStore) CASUpdate(_ context.Context, cp model.Checkpoint, expectedStep uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.checkpoints[cp.SessionID]
	if len(history) == 0 {
		return ErrNotFound
	}
	var max uint64
	for _, existing := range history {
		if existing.Step > max {
			max = existing.Step
		}
	}
	if max != expectedStep {
		return ErrConflict
	}
	s.checkpoints[cp.SessionID] = append(history, cp)
	return nil
}

// History returns all checkpoints for a session ordered by step.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]model.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := append([]model.Checkpoint(nil), s.checkpoints[sessionID]...)
	sort.Slice(history, func(i, j int) bool { return history[i].Step < history[j].Step })
	return history, nil
}

// List returns the latest checkpoint of every session.
func (s *MemoryStore) List(ctx context.Context) ([]model.Checkpoint, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.checkpoints))
	for id := range s.checkpoints {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	latest := make([]model.Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		latest = append(latest, *cp)
	}
	return latest, nil
}

// Append validates and stores a feedback record.
func (s *MemoryStore) Append(_ context.Context, rec model.FeedbackRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.feedback[rec.SessionID] = append(s.feedback[rec.SessionID], rec)
	return nil
}

// ForSession returns all feedback for a session, oldest first.
func (s *MemoryStore) ForSession(_ context.Context, sessionID string) ([]model.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.FeedbackRecord(nil), s.feedback[sessionID]...), nil
}

// StatsForSession aggregates ratings and flags for a session.
func (s *MemoryStore) StatsForSession(_ context.Context, sessionID string) (*model.FeedbackStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &model.FeedbackStats{SessionID: sessionID}
	records := s.feedback[sessionID]
	if len(records) == 0 {
		return stats, nil
	}
	var sum int
	for _, rec := range records {
		sum += rec.Rating
		if rec.Flagged {
			stats.FlaggedCount++
		}
	}
	stats.Count = len(records)
	stats.AverageRating = float64(sum) / float64(len(records))
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
