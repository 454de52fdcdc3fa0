package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gatecheck/internal/git"
	"github.com/ShayCichocki/gatecheck/internal/history"
	"github.com/ShayCichocki/gatecheck/internal/notes"
	"github.com/ShayCichocki/gatecheck/internal/state"
	"github.com/ShayCichocki/gatecheck/internal/treeid"
)

var (
	historyLimit int
	historyAll   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show validation history",
	Long: `Show recorded validation runs.

By default, shows the run history for the current content state: runs
recorded against the tree identity the working copy has right now. With
--all, shows recent runs across all content states from the local run
ledger instead.

Examples:
  gatecheck history             # Runs at the current content state
  gatecheck history --all       # Recent runs across all content states
  gatecheck history --limit 5   # At most 5 runs`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum runs to show")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Show runs across all content states")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := findGitRoot(cwd)
	if err != nil {
		return err
	}

	if historyAll {
		return showLedgerHistory(root)
	}
	return showIdentityHistory(root)
}

// showIdentityHistory prints the notes-backed history for the current
// tree identity.
func showIdentityHistory(root string) error {
	if err := CheckGitCLI(); err != nil {
		return err
	}

	gitRunner := git.NewRunner(root)
	id, err := treeid.NewComputer(gitRunner).Compute()
	if err != nil {
		return err
	}
	if !id.Deterministic() {
		return fmt.Errorf("working copy has no deterministic identity; no history to show")
	}

	store := history.NewStore(notes.NewStore(gitRunner), gitRunner)
	note, ok := store.Load(id.String())
	if !ok || len(note.Runs) == 0 {
		fmt.Printf("No recorded runs for the current content state (%s).\n", shortIdentity(id.String()))
		return nil
	}

	fmt.Printf("Runs at content state %s:\n", shortIdentity(id.String()))
	runs := note.Runs
	if len(runs) > historyLimit {
		runs = runs[len(runs)-historyLimit:]
	}
	// Newest last in the note; print newest first.
	for i := len(runs) - 1; i >= 0; i-- {
		printHistoryRun(runs[i])
	}
	if pattern := note.PatternSummary(); pattern != "" {
		fmt.Printf("\n%s\n", pattern)
	}
	return nil
}

func printHistoryRun(run history.Run) {
	mark := color.GreenString("✓")
	if !run.Passed {
		mark = color.RedString("✗")
	}
	line := fmt.Sprintf("%s %s  %s  %s", mark, run.ID,
		run.Timestamp.Local().Format("2006-01-02 15:04:05"), formatDuration(run.DurationMS))
	if run.Branch != "" {
		line += "  " + run.Branch
	}
	if run.Uncommitted {
		line += "  (uncommitted changes)"
	}
	fmt.Println(line)
}

// showLedgerHistory prints recent runs across identities from the
// project database.
func showLedgerHistory(root string) error {
	dbPath := state.ProjectDBPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No run ledger found - validate at least once first.")
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

	runs, err := db.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, run := range runs {
		mark := color.GreenString("✓")
		if !run.Passed {
			mark = color.RedString("✗")
		}
		line := fmt.Sprintf("%s %s  %s  %s  %s", mark, run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			shortIdentity(run.TreeIdentity), formatDuration(run.DurationMS))
		if run.Branch != "" {
			line += "  " + run.Branch
		}
		fmt.Println(line)
	}

	stats, err := db.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("\n%d runs, %d passed, %d distinct content states\n",
		stats.TotalRuns, stats.PassedRuns, stats.DistinctIdentities)
	return nil
}
