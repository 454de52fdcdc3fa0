package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	runForce   bool
	runNoCache bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the validation pipeline",
	Long: `Run the configured validation pipeline against the current working copy.

Steps whose result is already cached for the current content state are
skipped; a working copy whose previous run passed is not re-validated at
all. Use --force to re-run everything, or --no-cache to skip lookups
while still recording results.

Examples:
  gatecheck run             # Validate, using cached results
  gatecheck run --force     # Re-run every step
  gatecheck run --no-cache  # Ignore cached results, still record new ones`,
	RunE: runValidation,
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "Re-run every step even when cached results pass")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "Skip cache lookups (results are still written)")
}

func runValidation(cmd *cobra.Command, args []string) error {
	if err := CheckGitCLI(); err != nil {
		return err
	}

	app, err := newApp(rootDebug)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := app.validate(ctx)
	if err != nil {
		return err
	}
	app.persist(report)
	printReport(report)

	if !report.Result.Passed {
		// The report already explains the failure; a non-zero exit is
		// the only thing left to communicate.
		os.Exit(1)
	}
	return nil
}
