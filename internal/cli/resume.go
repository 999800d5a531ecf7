package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbriand/verifai/internal/engine"
	"github.com/pbriand/verifai/internal/model"
)

var (
	resumeApprove    bool
	resumeLabel      string
	resumeConfidence int
	resumeNote       string
)

// resumeCmd represents the resume command
var resumeCmd = &cobra.Command{
	Use:   "resume <session>",
	Short: "Finalize a session paused for human review",
	Long: `Resume finalizes a session that verify --review left in
AWAITING_REVIEW. Approve keeps the computed verdict unchanged; supplying
--label/--confidence records a revision and preserves the original
verdict for audit.

Example:
  verifai resume 6f1c... --approve
  verifai resume 6f1c... --label UNVERIFIED --confidence 10 --note "source is satire"`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().BoolVar(&resumeApprove, "approve", false, "approve the computed verdict unchanged")
	resumeCmd.Flags().StringVar(&resumeLabel, "label", "", "revised verdict label (VERIFIED, PARTIALLY_VERIFIED, INSUFFICIENT_DATA, UNVERIFIED)")
	resumeCmd.Flags().IntVar(&resumeConfidence, "confidence", -1, "revised confidence 0..100")
	resumeCmd.Flags().StringVar(&resumeNote, "note", "", "reviewer note recorded with a revision")
}

func runResume(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	decision := engine.ReviewDecision{Approve: resumeApprove}
	if !resumeApprove {
		label, err := parseLabel(resumeLabel)
		if err != nil {
			return err
		}
		if resumeConfidence < 0 || resumeConfidence > 100 {
			return fmt.Errorf("a revision requires --confidence in 0..100")
		}
		decision.Label = label
		decision.Confidence = resumeConfidence
		decision.Note = resumeNote
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

	v, err := a.engine.Resume(ctx, sessionID, decision)
	if err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}

	fmt.Printf("Session %s completed\n", sessionID)
	fmt.Printf("Verdict: %s (confidence %d/100)\n", v.Label, v.Confidence)
	if v.Revised {
		fmt.Printf("Revised by reviewer")
		if v.ReviewerNote != "" {
			fmt.Printf(": %s", v.ReviewerNote)
		}
		fmt.Println()
	}
	return nil
}

func parseLabel(s string) (model.Label, error) {
	switch model.Label(s) {
	case model.LabelVerified, model.LabelPartiallyVerified,
		model.LabelInsufficientData, model.LabelUnverified:
		return model.Label(s), nil
	case "":
		return "", fmt.Errorf("either --approve or --label is required")
	default:
		return "", fmt.Errorf("unknown label %q", s)
	}
}
