package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [session]",
	Short: "Show a session's state, or list all sessions",
	Long: `Status prints the latest checkpoint of one session, or a one-line
summary of every known session when no session is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

// cancelCmd represents the cancel command
var cancelCmd = &cobra.Command{
	Use:   "cancel <session>",
	Short: "Cancel a pending session",
	Long: `Cancel aborts a session. A session paused in AWAITING_REVIEW gets a
terminal FAILED checkpoint and can no longer be resumed.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print checkpoints as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		cp, err := a.engine.GetStatus(ctx, args[0])
		if err != nil {
			return err
		}
		if statusJSON {
			return printJSON(cp)
		}
		printCheckpoint(cp)
		return nil
	}

	sessions, err := a.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	if statusJSON {
		return printJSON(sessions)
	}

	for _, cp := range sessions {
		verdict := "-"
		if cp.Verdict != nil {
			verdict = fmt.Sprintf("%s/%d", cp.Verdict.Label, cp.Verdict.Confidence)
		}
		claim := cp.Claim.Text
		if len(claim) > 60 {
			claim = claim[:57] + "..."
		}
		fmt.Printf("%s  %-16s  %-24s  %s\n", cp.SessionID, cp.State, verdict, claim)
	}
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
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

	if err := a.engine.Cancel(ctx, args[0]); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	fmt.Printf("Session %s cancelled\n", args[0])
	return nil
}
