package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gatecheck/internal/git"
	"github.com/ShayCichocki/gatecheck/internal/notes"
	"github.com/ShayCichocki/gatecheck/internal/state"
)

var (
	cleanForce  bool
	cleanLedger bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stored validation results",
	Long: `Remove all gatecheck data stored in git notes.

This deletes cached command results and validation history under the
reserved refs/notes/gatecheck namespace. Nothing outside that namespace
is touched. The working copy itself is never modified.

With --ledger, also purges run ledger entries older than 30 days.

Examples:
  gatecheck clean            # Interactive clean with confirmation
  gatecheck clean --force    # Skip confirmation prompt
  gatecheck clean --ledger   # Also purge old ledger entries`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanForce, "force", "f", false, "Skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanLedger, "ledger", false, "Purge ledger runs older than 30 days")
}

func runClean(cmd *cobra.Command, args []string) error {
	if err := CheckGitCLI(); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := findGitRoot(cwd)
	if err != nil {
		return err
	}

	if !cleanForce {
		fmt.Printf("Remove all stored results under %s? [y/N] ", notes.RootRef)
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Clean cancelled.")
			return nil
		}
	}

	store := notes.NewStore(git.NewRunner(root))
	removed, err := store.RemoveAll(notes.RootRef)
	if err != nil {
		return fmt.Errorf("remove stored results: %w", err)
	}
	if removed == 0 {
		fmt.Println("No stored results found.")
	} else {
		fmt.Printf("Removed %d stored result(s).\n", removed)
	}

	if cleanLedger {
		return cleanOldLedgerRuns(root)
	}
	return nil
}

// cleanOldLedgerRuns purges ledger runs older than 30 days.
func cleanOldLedgerRuns(root string) error {
	const runMaxAge = 30 * 24 * time.Hour

	dbPath := state.ProjectDBPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No run ledger found - nothing to purge.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate run ledger: %w", err)
	}

	purged, err := db.PurgeOldRuns(runMaxAge)
	if err != nil {
		return fmt.Errorf("purge old runs: %w", err)
	}
	if purged > 0 {
		fmt.Printf("Purged %d ledger run(s) older than 30 days.\n", purged)
	} else {
		fmt.Println("No ledger runs older than 30 days found.")
	}
	return nil
}
