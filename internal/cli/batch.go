package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbriand/verifai/internal/engine"
	"github.com/pbriand/verifai/internal/worker"
)

var (
	batchConcurrency int
	batchTimeout     time.Duration
	batchJSON        bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many claims from a file concurrently",
	Long: `Batch reads claims from a file (one per line, # comments and blank
lines skipped, duplicates collapsed) and verifies them concurrently under
a bounded worker pool. The shared rate limiter still spaces provider
calls across workers.

Example:
  verifai batch claims.txt --workers 5`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "workers", 0, "concurrent verifications (0 = config default)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 15*time.Minute, "overall batch timeout")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print results as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	workers := batchConcurrency
	if workers <= 0 {
		workers = cfg.Engine.Workers
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Batch file: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "Workers: %d\n\n", workers)
	}

	batch := worker.NewBatchVerifier(a.engine, workers)
	results, err := batch.VerifyFile(ctx, args[0], engine.Options{})
	if err != nil {
		return err
	}

	if batchJSON {
		return printJSON(results)
	}

	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Printf("FAILED  %-40q %v\n", truncate(r.Claim, 38), r.Error)
			continue
		}
		fmt.Printf("%-20s %3d/100  %q\n",
			r.Checkpoint.Verdict.Label, r.Checkpoint.Verdict.Confidence, truncate(r.Claim, 60))
	}
	fmt.Printf("\n%d claims, %d failed\n", len(results), failed)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
