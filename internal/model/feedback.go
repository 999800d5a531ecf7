package model

import (
	"fmt"
	"strings"
	"time"
)

// Feedback rating bounds (inclusive).
const (
	MinRating = 1
	MaxRating = 5
)

// FeedbackRecord is a post-verdict human rating for a session. Append-only;
// consumed for offline quality tracking, never by the engine itself.
type FeedbackRecord struct {
	ID        int64     `json:"id,omitempty"`
	SessionID string    `json:"session_id"`
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment,omitempty"`
	Corrected Label     `json:"corrected_verdict,omitempty"` // Reviewer's label when it diverges
	Flagged   bool      `json:"flagged"`                     // Corrected label diverges from the verdict given
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks rating bounds and trims the comment.
func (f *FeedbackRecord) Validate() error {
	if f.SessionID == "" {
		return fmt.Errorf("feedback requires a session id")
	}
	if f.Rating < MinRating || f.Rating > MaxRating {
		return fmt.Errorf("rating %d out of range [%d,%d]", f.Rating, MinRating, MaxRating)
	}
	f.Comment = strings.Join(strings.Fields(f.Comment), " ")
	if len(f.Comment) > 1000 {
		f.Comment = f.Comment[:1000]
	}
	return nil
}

// FeedbackStats aggregates feedback for a session.
type FeedbackStats struct {
	SessionID     string  `json:"session_id"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
	FlaggedCount  int     `json:"flagged_count"`
}
