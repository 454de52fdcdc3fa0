package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ShayCichocki/gatecheck/internal/config"
	"github.com/ShayCichocki/gatecheck/internal/engine"
	"github.com/ShayCichocki/gatecheck/internal/extract"
	"github.com/ShayCichocki/gatecheck/internal/git"
	"github.com/ShayCichocki/gatecheck/internal/history"
	"github.com/ShayCichocki/gatecheck/internal/notes"
	"github.com/ShayCichocki/gatecheck/internal/runcache"
	"github.com/ShayCichocki/gatecheck/internal/runner"
	"github.com/ShayCichocki/gatecheck/internal/state"
	"github.com/ShayCichocki/gatecheck/internal/treeid"
)

// app wires the engine and its collaborators for one repository.
type app struct {
	root     string
	cfg      *config.Config
	git      *git.ExecRunner
	engine   *engine.Engine
	debugLog func(format string, args ...interface{})
}

// newApp builds the validation stack for the repository containing the
// current directory. Outside a git repository the current directory is
// used as the root; identity falls back and nothing is cached, but the
// pipeline still runs.
func newApp(debug bool) (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	root, err := findGitRoot(cwd)
	if err != nil {
		root = cwd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if len(cfg.Phases) == 0 {
		return nil, fmt.Errorf("no validation phases configured; run 'gatecheck init' to create %s", config.ProjectConfigName)
	}

	debugLog := func(string, ...interface{}) {}
	if debug {
		debugLog = log.Printf
	}

	gitRunner := git.NewRunner(root)
	store := notes.NewStore(gitRunner)

	identity := identitySource(root, gitRunner, cfg.AdditionalRoots)

	hist := history.NewStore(store, gitRunner)
	hist.SetMaxRuns(cfg.History.MaxRuns)

	opts := []engine.Option{
		engine.WithHistory(hist),
		engine.WithDebugLog(debugLog),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, engine.WithResultCache(runcache.New(store)))
	}

	factory := func(cache engine.StepCache) engine.Scheduler {
		ropts := []runner.Option{
			runner.WithWorkdir(root),
			runner.WithExtractor(extract.New()),
			runner.WithDebugLog(debugLog),
		}
		if cache != nil {
			ropts = append(ropts, runner.WithStepCache(cache))
		}
		return runner.New(runner.NewShellExecutor(), ropts...)
	}

	return &app{
		root:     root,
		cfg:      cfg,
		git:      gitRunner,
		engine:   engine.New(identity, factory, opts...),
		debugLog: debugLog,
	}, nil
}

// identitySource builds the identity computer for the primary root,
// composed with any configured additional roots.
func identitySource(root string, gitRunner *git.ExecRunner, additionalRoots []string) engine.IdentitySource {
	primary := treeid.NewComputer(gitRunner)
	primary.SetWarnFunc(log.Printf)
	if len(additionalRoots) == 0 {
		return primary
	}

	composite := treeid.NewCompositeComputer()
	composite.Add(".", primary)
	for _, extra := range additionalRoots {
		path := extra
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, extra)
		}
		computer := treeid.NewComputer(git.NewRunner(path))
		computer.SetWarnFunc(log.Printf)
		composite.Add(extra, computer)
	}
	return composite
}

// validate runs the configured pipeline once.
func (a *app) validate(ctx context.Context) (*engine.Report, error) {
	return a.engine.Validate(ctx, a.cfg.Phases, engine.Options{
		Force:   runForce,
		NoCache: runNoCache,
		Workdir: a.root,
	})
}

// persist mirrors the result into the local ledger and the last-run
// state file. Both are conveniences; failures are logged and swallowed.
func (a *app) persist(report *engine.Report) {
	if err := state.WriteLastRun(a.root, report.Result); err != nil {
		a.debugLog("[cli] write last-run file: %v", err)
	}

	// A skipped run recorded nothing new, so the ledger stays as is.
	if report.SkippedRun {
		return
	}

	db, err := state.OpenProject(a.root)
	if err != nil {
		a.debugLog("[cli] open run ledger: %v", err)
		return
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		a.debugLog("[cli] migrate run ledger: %v", err)
		return
	}

	rec := state.RunRecord{
		ID:           uuid.New().String()[:8],
		TreeIdentity: report.TreeIdentity.String(),
		Passed:       report.Result.Passed,
		Summary:      report.Result.Summary,
		Timestamp:    report.Result.Timestamp,
	}
	for _, phase := range report.Result.Phases {
		rec.DurationMS += phase.DurationMS
	}
	if branch, err := a.git.CurrentBranch(); err == nil {
		rec.Branch = branch
	}
	if commit, err := a.git.HeadCommit(); err == nil {
		rec.HeadCommit = commit
	}
	if dirty, err := a.git.HasChanges(); err == nil {
		rec.Uncommitted = dirty
	}
	if err := db.RecordRun(rec); err != nil {
		a.debugLog("[cli] record run: %v", err)
	}
}
