package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gatecheck/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate on file changes",
	Long: `Watch the repository and re-validate whenever files change.

Changes are debounced, so a burst of saves triggers one run. Saves that
don't change content are cheap: the tree identity stays the same and the
previous result is reused.

Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := CheckGitCLI(); err != nil {
		return err
	}

	app, err := newApp(rootDebug)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(app.root,
		watcher.WithDebounce(time.Duration(app.cfg.Watch.DebounceMS)*time.Millisecond),
		watcher.WithIgnoreDirs(app.cfg.Watch.Ignore),
		watcher.WithDebugLog(app.debugLog),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n\n", app.root)
	watchValidate(ctx, app)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped watching.")
			return nil
		case <-w.Triggers():
			fmt.Printf("\n%s change detected\n", time.Now().Format("15:04:05"))
			watchValidate(ctx, app)
		}
	}
}

// watchValidate runs one validation and reports, never stopping the
// watch loop on failure.
func watchValidate(ctx context.Context, app *app) {
	report, err := app.validate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fmt.Printf("%s %v\n", color.RedString("✗"), err)
		return
	}
	app.persist(report)
	printReport(report)
}
