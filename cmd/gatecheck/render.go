package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/gatecheck/internal/engine"
	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// printReport renders a validation report for humans.
func printReport(report *engine.Report) {
	if report.SkippedRun {
		fmt.Printf("%s Working copy unchanged since last passing run (%s)\n",
			color.GreenString("✓"), shortIdentity(report.TreeIdentity.String()))
		if report.Pattern != "" {
			fmt.Printf("  %s\n", report.Pattern)
		}
		return
	}

	for _, phase := range report.Result.Phases {
		printPhase(phase)
	}
	fmt.Println()

	for _, step := range report.FlakySteps {
		fmt.Printf("%s %s failed last time at this content state but passes now\n",
			color.YellowString("⚠"), step)
	}
	if report.Pattern != "" {
		fmt.Printf("History: %s\n", report.Pattern)
	}
	if report.History.Reason != "" {
		fmt.Printf("%s %s\n", color.YellowString("⚠"), report.History.Reason)
	}

	if report.Result.Passed {
		fmt.Printf("%s %s\n", color.GreenString("✓"), report.Result.Summary)
		return
	}
	fmt.Printf("%s %s\n", color.RedString("✗"), report.Result.Summary)
	if report.Result.RerunCommand != "" {
		fmt.Printf("  rerun: %s\n", report.Result.RerunCommand)
	}
}

func printPhase(phase models.PhaseResult) {
	if phase.Skipped {
		fmt.Printf("%s %s (skipped: dependency did not pass)\n", color.YellowString("⊘"), phase.Name)
		return
	}
	fmt.Printf("%s (%s)\n", phase.Name, formatDuration(phase.DurationMS))
	for _, step := range phase.Steps {
		printStep(step)
	}
}

func printStep(step models.StepResult) {
	switch step.Status {
	case models.StepPassed:
		suffix := ""
		if step.Cached {
			suffix = color.CyanString(" (cached)")
		}
		fmt.Printf("  %s %s %s%s\n", color.GreenString("✓"), step.Name, formatDuration(step.DurationMS), suffix)
	case models.StepTimedOut:
		fmt.Printf("  %s %s timed out after %s\n", color.RedString("✗"), step.Name, formatDuration(step.DurationMS))
	case models.StepSkipped:
		fmt.Printf("  %s %s skipped\n", color.YellowString("⊘"), step.Name)
	default:
		fmt.Printf("  %s %s %s (exit %d)\n", color.RedString("✗"), step.Name, formatDuration(step.DurationMS), step.ExitCode)
		printExtraction(step)
	}
}

// printExtraction shows up to three structured diagnostics for a failed
// step; the full output lives in the recorded result.
func printExtraction(step models.StepResult) {
	if step.Extraction == nil || len(step.Extraction.Errors) == 0 {
		return
	}
	shown := step.Extraction.Errors
	if len(shown) > 3 {
		shown = shown[:3]
	}
	for _, e := range shown {
		if e.File != "" {
			fmt.Printf("      %s:%d: %s\n", e.File, e.Line, e.Message)
		} else {
			fmt.Printf("      %s\n", e.Message)
		}
	}
	if rest := step.Extraction.TotalErrors - len(shown); rest > 0 {
		fmt.Printf("      ... and %d more\n", rest)
	}
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return d.String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// shortIdentity abbreviates a tree identity for display.
func shortIdentity(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
