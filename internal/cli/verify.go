package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbriand/verifai/internal/engine"
	"github.com/pbriand/verifai/internal/model"
)

var (
	verifyHITL       bool
	verifyMaxSources int
	verifyTimeout    time.Duration
	verifyJSON       bool
	verifyNoCache    bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Verify a factual claim and print its verdict",
	Long: `Verify runs one claim through the full pipeline:
- Retrieve candidate sources from the search provider
- Score each source's domain against the credibility table
- Ask the analysis model for each source's stance toward the claim
- Aggregate into a verdict label and confidence

With --review the workflow pauses in AWAITING_REVIEW instead of
finalizing; finish it later with 'verifai resume <session>'.

Example:
  verifai verify "La France a 67 millions d'habitants"
  verifai verify --review --max-sources 5 "The Eiffel Tower is 330 meters tall"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyHITL, "review", false, "pause for human review before finalizing")
	verifyCmd.Flags().IntVar(&verifyMaxSources, "max-sources", 0, "max sources to keep (0 = config default)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 3*time.Minute, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the full checkpoint as JSON")
	verifyCmd.Flags().BoolVar(&verifyNoCache, "no-cache", false, "disable the claim cache (force fresh search)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	claim := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if verifyNoCache {
		cfg.Cache.Enabled = false
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", claim)
		fmt.Fprintf(os.Stderr, "Review: %v\n\n", verifyHITL)
	}

	cp, err := a.engine.Verify(ctx, claim, engine.Options{
		HITL:       verifyHITL,
		MaxSources: verifyMaxSources,
	})
	if err != nil {
		if cp != nil && cp.Failure != nil {
			fmt.Fprintf(os.Stderr, "Session %s failed in %s\n", cp.SessionID, cp.Failure.LastState)
		}
		return fmt.Errorf("verification failed: %w", err)
	}

	if verifyJSON {
		return printJSON(cp)
	}
	printCheckpoint(cp)
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printCheckpoint(cp *model.Checkpoint) {
	fmt.Printf("Session:  %s\n", cp.SessionID)
	fmt.Printf("State:    %s\n", cp.State)
	fmt.Printf("Claim:    %s\n", cp.Claim.Text)

	if cp.Verdict != nil {
		fmt.Printf("Verdict:  %s (confidence %d/100)\n", cp.Verdict.Label, cp.Verdict.Confidence)
		if cp.Verdict.Revised {
			fmt.Printf("Revised:  yes (%s)\n", cp.Verdict.ReviewerNote)
		}
	}
	if cp.Failure != nil {
		fmt.Printf("Failure:  %s after %s\n", cp.Failure.Kind, cp.Failure.LastState)
	}

	if len(cp.Sources) > 0 {
		fmt.Printf("\nSources (%d):\n", len(cp.Sources))
		for _, src := range cp.Sources {
			fmt.Printf("  [%s w=%.2f %s] %s\n", src.Tier, src.Weight, src.Stance, src.URL)
		}
	}
	if cp.Answer != "" {
		fmt.Printf("\nSearch answer: %s\n", cp.Answer)
	}

	if cp.State == model.StateAwaitingReview {
		fmt.Printf("\nAwaiting review. Finalize with:\n")
		fmt.Printf("  verifai resume %s --approve\n", cp.SessionID)
		fmt.Printf("  verifai resume %s --label PARTIALLY_VERIFIED --confidence 60 --note \"...\"\n", cp.SessionID)
	}
}
