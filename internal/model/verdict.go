package model

import "time"

// Label is the discrete outcome of a verification.
type Label string

const (
	LabelVerified          Label = "VERIFIED"
	LabelPartiallyVerified Label = "PARTIALLY_VERIFIED"
	LabelInsufficientData  Label = "INSUFFICIENT_DATA"
	LabelUnverified        Label = "UNVERIFIED"
)

// Verdict is the engine's final output: a label, a numeric confidence, and
// the sources that contributed. Created once by the verdict calculator and
// never mutated; a human revision produces a new Verdict.
type Verdict struct {
	Label      Label `json:"label"`
	Confidence int   `json:"confidence"` // 0..100

	Sources            []SourceRecord `json:"sources"`
	InstitutionalCount int            `json:"institutional_count"`
	AvgTrust           float64        `json:"avg_trust"`

	// Set only on verdicts produced by a human revision.
	Revised      bool      `json:"revised,omitempty"`
	ReviewerNote string    `json:"reviewer_note,omitempty"`
	ComputedAt   time.Time `json:"computed_at"`
}

// Revise returns a new Verdict carrying the reviewer's label and confidence,
// with the contributing sources preserved.
func (v Verdict) Revise(label Label, confidence int, note string, at time.Time) Verdict {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	rv := v
	rv.Label = label
	rv.Confidence = confidence
	rv.Revised = true
	rv.ReviewerNote = note
	rv.ComputedAt = at
	return rv
}
