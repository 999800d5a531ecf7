package model

import "time"

// State identifies where a workflow instance is in its pipeline.
type State string

const (
	StateCreated         State = "CREATED"
	StateSearching       State = "SEARCHING"
	StateSearched        State = "SEARCHED"
	StateScoring         State = "SCORING"
	StateScored          State = "SCORED"
	StateAnalyzing       State = "ANALYZING"
	StateAnalyzed        State = "ANALYZED"
	StateVerdictComputed State = "VERDICT_COMPUTED"
	StateAwaitingReview  State = "AWAITING_REVIEW"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Failure describes why an instance reached FAILED: the error taxonomy kind
// and the last state that completed successfully. Raw provider errors are
// kept out of user-facing snapshots.
type Failure struct {
	Kind      string `json:"kind"`
	LastState State  `json:"last_state"`
	Message   string `json:"message,omitempty"`
}

// Checkpoint is a durable snapshot of a workflow instance at a specific
// state, keyed by session ID and step counter. It must round-trip losslessly
// through JSON: everything needed to resume the remaining transitions lives
// here, never only in memory.
type Checkpoint struct {
	SessionID string `json:"session_id"`
	Step      uint64 `json:"step"`
	State     State  `json:"state"`

	Claim   Claim          `json:"claim"`
	Sources []SourceRecord `json:"sources,omitempty"`
	Answer  string         `json:"answer,omitempty"` // Search provider's synthetic answer, if any

	Verdict         *Verdict `json:"verdict,omitempty"`
	OriginalVerdict *Verdict `json:"original_verdict,omitempty"` // Pre-revision verdict kept for audit

	HITL       bool     `json:"hitl"`
	MaxSources int      `json:"max_sources"`
	Failure    *Failure `json:"failure,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
