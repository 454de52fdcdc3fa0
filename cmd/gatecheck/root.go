package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootDebug bool

// CheckGitCLI verifies that git is available in PATH. Everything below
// the scheduler depends on it: tree identities, caching, and history all
// live in the repository.
func CheckGitCLI() error {
	_, err := exec.LookPath("git")
	if err != nil {
		return fmt.Errorf("git not found in PATH\n\n" +
			"gatecheck stores validation results in git notes keyed by the\n" +
			"content of your working copy, so it needs the git CLI to run.")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "gatecheck",
	Short: "Content-addressed validation runner",
	Long: `gatecheck validates a repository by running configured phases of steps
(typecheck, lint, test, build) and remembers the outcome per content state.

Results are stored in git notes keyed by the tree identity of the working
copy: the same content never has to be validated twice, results survive
branch switches, and history travels with the repository.

With no arguments, runs the configured validation pipeline.`,
	RunE: runValidation,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Print debug logging")

	rootCmd.Flags().BoolVar(&runForce, "force", false, "Re-run every step even when cached results pass")
	rootCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "Skip cache lookups (results are still written)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// findGitRoot finds the root of the git repository starting from the given directory.
func findGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		gitDir := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitDir); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a git repository")
		}
		dir = parent
	}
}
