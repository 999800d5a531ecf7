package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbriand/verifai/internal/model"
)

var (
	feedbackRating    int
	feedbackComment   string
	feedbackCorrected string
)

// feedbackCmd represents the feedback command
var feedbackCmd = &cobra.Command{
	Use:   "feedback <session>",
	Short: "Rate a finished verification",
	Long: `Feedback records a 1..5 rating for a session's verdict, with an
optional comment and an optional corrected label when the reviewer
disagrees with the engine. Feedback is append-only and never feeds back
into the verdict.

Example:
  verifai feedback 6f1c... --rating 4
  verifai feedback 6f1c... --rating 1 --corrected UNVERIFIED --comment "sources are press releases"`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

// feedbackStatsCmd shows aggregated feedback
var feedbackStatsCmd = &cobra.Command{
	Use:   "stats <session>",
	Short: "Show aggregated feedback for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackStats,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackStatsCmd)

	feedbackCmd.Flags().IntVar(&feedbackRating, "rating", 0, "rating 1..5 (required)")
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "free-text comment")
	feedbackCmd.Flags().StringVar(&feedbackCorrected, "corrected", "", "label the reviewer believes is correct")
	_ = feedbackCmd.MarkFlagRequired("rating")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	var corrected model.Label
	if feedbackCorrected != "" {
		label, err := parseLabel(feedbackCorrected)
		if err != nil {
			return err
		}
		corrected = label
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newStoreApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The session must exist and carry a verdict before feedback applies.
	cp, err := a.engine.GetStatus(ctx, sessionID)
	if err != nil {
		return err
	}
	if cp.Verdict == nil {
		return fmt.Errorf("session %s has no verdict to rate (state %s)", sessionID, cp.State)
	}

	rec := model.FeedbackRecord{
		SessionID: sessionID,
		Rating:    feedbackRating,
		Comment:   feedbackComment,
		Corrected: corrected,
		Flagged:   corrected != "" && corrected != cp.Verdict.Label,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}

	fmt.Printf("Feedback recorded for %s (rating %d/5)\n", sessionID, feedbackRating)
	if rec.Flagged {
		fmt.Printf("Flagged: reviewer label %s diverges from verdict %s\n", corrected, cp.Verdict.Label)
	}
	return nil
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newStoreApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := a.store.StatsForSession(ctx, args[0])
	if err != nil {
		return fmt.Errorf("aggregate feedback: %w", err)
	}

	fmt.Printf("Session:  %s\n", stats.SessionID)
	fmt.Printf("Ratings:  %d\n", stats.Count)
	if stats.Count > 0 {
		fmt.Printf("Average:  %.1f/5\n", stats.AverageRating)
	}
	fmt.Printf("Flagged:  %d\n", stats.FlaggedCount)
	return nil
}
