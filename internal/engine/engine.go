// Package engine wires identity computation, caching, scheduling, and
// history into one validation flow.
//
// The engine owns the data flow, not the mechanisms: identity comes from
// treeid, persistence from runcache and history, execution from runner.
// Every collaborator sits behind an interface so each can be faked.
package engine

import (
	"context"
	"time"

	"github.com/ShayCichocki/gatecheck/internal/cachekey"
	"github.com/ShayCichocki/gatecheck/internal/history"
	"github.com/ShayCichocki/gatecheck/internal/runcache"
	"github.com/ShayCichocki/gatecheck/internal/treeid"
	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// IdentitySource computes the working-copy identity.
type IdentitySource interface {
	Compute() (treeid.Identity, error)
}

// ComponentSource is optionally implemented by identity sources that
// span multiple roots (treeid.CompositeComputer does). The per-root
// identities are recorded alongside composite history.
type ComponentSource interface {
	Components() (map[string]string, error)
}

// Scheduler executes a validated pipeline.
type Scheduler interface {
	Execute(ctx context.Context, phases []models.Phase) (*models.ValidationResult, error)
}

// SchedulerFactory builds the scheduler for one validation. cache is
// nil when step caching is disabled for that run; otherwise it carries
// the tree identity the run executes against. runner.New with
// runner.WithStepCache fits this signature at the call site.
type SchedulerFactory func(cache StepCache) Scheduler

// HistoryStore persists and loads per-identity run logs.
type HistoryStore interface {
	Load(treeIdentity string) (*history.Note, bool)
	Record(treeIdentity string, result *models.ValidationResult) history.RecordOutcome
}

// ResultCache stores per-command results keyed by tree identity.
type ResultCache interface {
	Get(treeIdentity, cacheKey string) (*runcache.Entry, error)
	Put(treeIdentity, cacheKey string, entry *runcache.Entry) error
}

// Options controls one validation.
type Options struct {
	// Force re-runs every step and ignores the previous run at this
	// identity. Results are still recorded.
	Force bool
	// NoCache disables step-level cache lookups. Results are still
	// written back.
	NoCache bool
	// Workdir is the directory step cache keys are scoped to.
	Workdir string
}

// Report is the outcome of one validation.
type Report struct {
	Result       *models.ValidationResult
	TreeIdentity treeid.Identity
	// SkippedRun is true when the whole run was skipped because the
	// previous run at this identity passed; Result is that previous
	// result.
	SkippedRun bool
	// History reports whether the run was persisted.
	History history.RecordOutcome
	// FlakySteps are steps that failed in the most recent failed run
	// but pass now.
	FlakySteps []string
	// Pattern is the human summary of recent run outcomes.
	Pattern string
}

// Engine runs validations.
type Engine struct {
	identity     IdentitySource
	newScheduler SchedulerFactory
	history      HistoryStore
	cache        ResultCache
	now          func() time.Time
	debugLog     func(format string, args ...interface{})
}

// Option configures an Engine.
type Option func(*Engine)

// WithResultCache enables step-level result caching.
func WithResultCache(cache ResultCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithHistory enables run history recording.
func WithHistory(store HistoryStore) Option {
	return func(e *Engine) { e.history = store }
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(e *Engine) {
		if fn != nil {
			e.debugLog = fn
		}
	}
}

// New creates an Engine. History and caching are optional; without them
// the engine degrades to identity-tagged execution.
func New(identity IdentitySource, newScheduler SchedulerFactory, opts ...Option) *Engine {
	e := &Engine{
		identity:     identity,
		newScheduler: newScheduler,
		now:          time.Now,
		debugLog:     func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs the pipeline against the current working-copy state.
//
// When the previous run at the current identity passed, the run is
// skipped and that result returned, unless opts.Force is set. A
// non-deterministic (fallback) identity disables both the whole-run
// skip and step caching; execution itself is unaffected.
func (e *Engine) Validate(ctx context.Context, phases []models.Phase, opts Options) (*Report, error) {
	id, err := e.identity.Compute()
	if err != nil {
		return nil, err
	}
	report := &Report{TreeIdentity: id}
	cacheable := id.Deterministic()

	var note *history.Note
	if e.history != nil && cacheable {
		note, _ = e.history.Load(id.String())
	}

	if !opts.Force && !opts.NoCache && note != nil && len(note.Runs) > 0 {
		last := note.Runs[len(note.Runs)-1]
		if last.Passed && last.Result != nil {
			e.debugLog("[engine] identity %s already validated, skipping run", id)
			report.Result = last.Result
			report.SkippedRun = true
			report.Pattern = note.PatternSummary()
			return report, nil
		}
	}

	var cache StepCache
	if e.cache != nil && cacheable {
		cache = &stepCache{
			cache:    e.cache,
			tree:     id.String(),
			workdir:  opts.Workdir,
			noLookup: opts.NoCache || opts.Force,
			now:      e.now,
			debugLog: e.debugLog,
		}
	}

	result, err := e.newScheduler(cache).Execute(ctx, phases)
	if err != nil {
		return nil, err
	}
	result.TreeIdentity = id.String()
	report.Result = result

	if e.history != nil && cacheable {
		e.recordComponents()
		report.FlakySteps = history.DetectFlakiness(note, result)
		report.History = e.history.Record(id.String(), result)
		if updated, ok := e.history.Load(id.String()); ok {
			report.Pattern = updated.PatternSummary()
		}
	} else if !cacheable {
		report.History = history.RecordOutcome{Reason: "non-deterministic identity, run not recorded"}
	}
	return report, nil
}

// recordComponents pushes per-root identities to the history store when
// both sides support them. Failures are ignored; components are an
// annotation, not run data.
func (e *Engine) recordComponents() {
	source, ok := e.identity.(ComponentSource)
	if !ok {
		return
	}
	sink, ok := e.history.(interface{ SetComponents(map[string]string) })
	if !ok {
		return
	}
	if components, err := source.Components(); err == nil && len(components) > 1 {
		sink.SetComponents(components)
	}
}

// StepCache mirrors runner.StepCache so the adapter below can be handed
// to runner.WithStepCache without this package importing the runner.
type StepCache interface {
	Lookup(command, workdir string) (passed bool, durationMS int64, ok bool)
	Store(command, workdir string, exitCode int, durationMS int64, extraction *models.Extraction)
}

// stepCache adapts the result cache to the runner's per-step interface,
// scoping every entry to one tree identity. Cache errors degrade to
// misses; a broken cache must never fail a validation.
type stepCache struct {
	cache    ResultCache
	tree     string
	workdir  string
	noLookup bool
	now      func() time.Time
	debugLog func(format string, args ...interface{})
}

func (s *stepCache) Lookup(command, workdir string) (bool, int64, bool) {
	if s.noLookup {
		return false, 0, false
	}
	if workdir == "" {
		workdir = s.workdir
	}
	key := cachekey.Encode(command, workdir)
	entry, err := s.cache.Get(s.tree, key)
	if err != nil {
		s.debugLog("[engine] cache lookup %s: %v", key, err)
		return false, 0, false
	}
	if entry == nil {
		return false, 0, false
	}
	return entry.Passed(), entry.DurationMS, true
}

func (s *stepCache) Store(command, workdir string, exitCode int, durationMS int64, extraction *models.Extraction) {
	if workdir == "" {
		workdir = s.workdir
	}
	key := cachekey.Encode(command, workdir)
	entry := &runcache.Entry{
		Command:    command,
		Workdir:    workdir,
		Timestamp:  s.now().UTC(),
		ExitCode:   exitCode,
		DurationMS: durationMS,
		Extraction: extraction,
	}
	if err := s.cache.Put(s.tree, key, entry); err != nil {
		s.debugLog("[engine] cache store %s: %v", key, err)
	}
}
