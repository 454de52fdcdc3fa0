package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// StepCache lets the runner skip steps whose result is already known for
// the current repository content. A nil cache disables skipping.
type StepCache interface {
	// Lookup returns the cached outcome for a command, with ok=false on
	// a miss.
	Lookup(command, workdir string) (passed bool, durationMS int64, ok bool)
	// Store records the outcome of an executed command.
	Store(command, workdir string, exitCode int, durationMS int64, extraction *models.Extraction)
}

// Extractor turns raw step output into structured diagnostics. The
// runner attaches the extraction to the step result without interpreting
// it.
type Extractor interface {
	Extract(command, output string) *models.Extraction
}

// Runner executes a validated pipeline of phases.
type Runner struct {
	exec      CommandExecutor
	cache     StepCache
	extractor Extractor
	workdir   string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// Option configures a Runner.
type Option func(*Runner)

// WithStepCache enables per-step result caching.
func WithStepCache(cache StepCache) Option {
	return func(r *Runner) { r.cache = cache }
}

// WithExtractor attaches an error-extraction collaborator.
func WithExtractor(ex Extractor) Option {
	return func(r *Runner) { r.extractor = ex }
}

// WithWorkdir sets the working directory steps run in.
func WithWorkdir(dir string) Option {
	return func(r *Runner) { r.workdir = dir }
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(r *Runner) {
		if fn != nil {
			r.debugLog = fn
		}
	}
}

// New creates a Runner executing commands with the given executor.
func New(exec CommandExecutor, opts ...Option) *Runner {
	r := &Runner{
		exec:     exec,
		debugLog: func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs the pipeline and returns the aggregated result.
//
// Configuration errors abort before any phase starts. Phases execute in
// declaration order; a phase whose dependency did not pass is skipped
// with all its steps marked skipped. A step failure is a normal terminal
// state, not an error.
func (r *Runner) Execute(ctx context.Context, phases []models.Phase) (*models.ValidationResult, error) {
	if err := ValidatePipeline(phases); err != nil {
		return nil, err
	}

	result := &models.ValidationResult{
		Passed:    true,
		Timestamp: time.Now().UTC(),
	}
	passed := make(map[string]bool, len(phases))

	for i := range phases {
		phase := &phases[i]

		blocked := ""
		for _, dep := range phase.DependsOn {
			if !passed[dep] {
				blocked = dep
				break
			}
		}

		var phaseResult models.PhaseResult
		if blocked != "" {
			r.debugLog("[runner] phase %s blocked: dependency %s did not pass", phase.Name, blocked)
			phaseResult = skippedPhase(phase)
		} else {
			r.debugLog("[runner] phase %s starting (%d steps, parallel=%v)", phase.Name, len(phase.Steps), phase.Parallel)
			phaseResult = r.runPhase(ctx, phase)
		}

		passed[phase.Name] = phaseResult.Passed
		if !phaseResult.Passed {
			result.Passed = false
		}
		result.Phases = append(result.Phases, phaseResult)
	}

	if failed := result.FirstFailedStep(); failed != nil {
		result.FailedStep = failed.Name
		result.RerunCommand = rerunCommand(phases, failed.Name)
	}
	result.Summary = summarize(result)
	return result, nil
}

// runPhase executes one phase's steps and aggregates their results.
func (r *Runner) runPhase(ctx context.Context, phase *models.Phase) models.PhaseResult {
	start := time.Now()
	var steps []models.StepResult
	if phase.Parallel {
		steps = r.runParallel(ctx, phase)
	} else {
		steps = r.runSequential(ctx, phase)
	}

	phaseResult := models.PhaseResult{
		Name:       phase.Name,
		Passed:     true,
		DurationMS: time.Since(start).Milliseconds(),
		Steps:      steps,
	}
	for _, step := range steps {
		if step.Status != models.StepPassed {
			phaseResult.Passed = false
			break
		}
	}
	return phaseResult
}

// runSequential executes steps in declared order. Under fail-fast the
// first failure marks every remaining step skipped.
func (r *Runner) runSequential(ctx context.Context, phase *models.Phase) []models.StepResult {
	results := make([]models.StepResult, len(phase.Steps))
	failed := false
	for i := range phase.Steps {
		step := &phase.Steps[i]
		if failed && phase.FailFastEnabled() {
			results[i] = skippedStep(step)
			continue
		}
		results[i] = r.runStep(ctx, step)
		if results[i].Status != models.StepPassed {
			failed = true
		}
	}
	return results
}

// runParallel fans steps out over a bounded worker pool. Each result
// slot is written exactly once by the worker that owns the step, so the
// join needs no locking. Under fail-fast, steps not yet started when a
// failure is observed are skipped; running steps finish.
func (r *Runner) runParallel(ctx context.Context, phase *models.Phase) []models.StepResult {
	results := make([]models.StepResult, len(phase.Steps))

	workers := phase.MaxParallel
	if workers <= 0 || workers > len(phase.Steps) {
		workers = len(phase.Steps)
	}

	jobs := make(chan int)
	var failed atomic.Bool
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				step := &phase.Steps[i]
				if failed.Load() && phase.FailFastEnabled() {
					results[i] = skippedStep(step)
					continue
				}
				results[i] = r.runStep(ctx, step)
				if results[i].Status != models.StepPassed {
					failed.Store(true)
				}
			}
		}()
	}
	for i := range phase.Steps {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// runStep executes a single step, consulting the step cache first.
func (r *Runner) runStep(ctx context.Context, step *models.Step) models.StepResult {
	if r.cache != nil {
		if cachedPassed, durationMS, ok := r.cache.Lookup(step.Command, r.workdir); ok && cachedPassed {
			r.debugLog("[runner] step %s: cached pass, skipping execution", step.Name)
			return models.StepResult{
				Name:       step.Name,
				Status:     models.StepPassed,
				Passed:     true,
				DurationMS: durationMS,
				Cached:     true,
			}
		}
	}

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if step.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, step.Timeout)
	}
	defer cancel()

	start := time.Now()
	output, exitCode, err := r.exec.Run(runCtx, r.workdir, step.Command, step.Env)
	duration := time.Since(start).Milliseconds()

	result := models.StepResult{
		Name:       step.Name,
		ExitCode:   exitCode,
		DurationMS: duration,
		Output:     string(output),
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.Status = models.StepTimedOut
		result.ExitCode = -1
		result.Output = fmt.Sprintf("%sstep timed out after %s\n", result.Output, step.Timeout)
	case err != nil:
		result.Status = models.StepFailed
		result.Output = fmt.Sprintf("%s%v\n", result.Output, err)
	case exitCode == 0:
		result.Status = models.StepPassed
		result.Passed = true
	default:
		result.Status = models.StepFailed
	}

	if !result.Passed && result.Status != models.StepTimedOut && r.extractor != nil {
		result.Extraction = r.extractor.Extract(step.Command, result.Output)
	}
	if r.cache != nil {
		r.cache.Store(step.Command, r.workdir, result.ExitCode, duration, result.Extraction)
	}
	return result
}

func skippedStep(step *models.Step) models.StepResult {
	return models.StepResult{Name: step.Name, Status: models.StepSkipped}
}

func skippedPhase(phase *models.Phase) models.PhaseResult {
	result := models.PhaseResult{Name: phase.Name, Skipped: true}
	for i := range phase.Steps {
		result.Steps = append(result.Steps, skippedStep(&phase.Steps[i]))
	}
	return result
}

// rerunCommand returns the command for the named step so a failure
// report can tell the user how to reproduce it.
func rerunCommand(phases []models.Phase, stepName string) string {
	for _, phase := range phases {
		for _, step := range phase.Steps {
			if step.Name == stepName {
				return step.Command
			}
		}
	}
	return ""
}

// summarize builds a one-line human summary of the result.
func summarize(result *models.ValidationResult) string {
	total, failed, skipped, cached := 0, 0, 0, 0
	for _, phase := range result.Phases {
		for _, step := range phase.Steps {
			total++
			switch {
			case step.Status == models.StepSkipped:
				skipped++
			case step.Cached:
				cached++
			case step.Status != models.StepPassed:
				failed++
			}
		}
	}
	if result.Passed {
		return fmt.Sprintf("%d steps passed (%d cached)", total, cached)
	}
	return fmt.Sprintf("%d of %d steps failed (%d skipped)", failed, total, skipped)
}
