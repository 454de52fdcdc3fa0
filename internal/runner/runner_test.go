package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// fakeExec is a scriptable CommandExecutor.
type fakeExec struct {
	mu    sync.Mutex
	ran   []string
	fail  map[string]bool
	block map[string]bool
}

func newFakeExec() *fakeExec {
	return &fakeExec{fail: make(map[string]bool), block: make(map[string]bool)}
}

func (f *fakeExec) record(command string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, command)
}

func (f *fakeExec) ranCommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

func (f *fakeExec) didRun(command string) bool {
	for _, c := range f.ranCommands() {
		if c == command {
			return true
		}
	}
	return false
}

func (f *fakeExec) Run(ctx context.Context, workdir, command string, env map[string]string) ([]byte, int, error) {
	if f.block[command] {
		<-ctx.Done()
		f.record(command)
		return []byte("interrupted"), -1, ctx.Err()
	}
	f.record(command)
	if f.fail[command] {
		return []byte("boom"), 1, nil
	}
	return []byte("ok"), 0, nil
}

func phase(name string, steps ...models.Step) models.Phase {
	return models.Phase{Name: name, Steps: steps}
}

func step(name, command string) models.Step {
	return models.Step{Name: name, Command: command}
}

func TestValidatePipeline(t *testing.T) {
	tests := []struct {
		name    string
		phases  []models.Phase
		wantErr error
	}{
		{"empty pipeline", nil, ErrNoPhases},
		{
			"valid",
			[]models.Phase{
				phase("a", step("s1", "true")),
				{Name: "b", DependsOn: []string{"a"}, Steps: []models.Step{step("s2", "true")}},
			},
			nil,
		},
		{
			"duplicate phase",
			[]models.Phase{phase("a", step("s", "true")), phase("a", step("s", "true"))},
			ErrDuplicatePhase,
		},
		{
			"unknown dependency",
			[]models.Phase{{Name: "a", DependsOn: []string{"ghost"}, Steps: []models.Step{step("s", "true")}}},
			ErrUnknownDependency,
		},
		{
			"forward dependency",
			[]models.Phase{
				{Name: "a", DependsOn: []string{"b"}, Steps: []models.Step{step("s", "true")}},
				phase("b", step("s2", "true")),
			},
			ErrForwardDependency,
		},
		{
			"self dependency",
			[]models.Phase{{Name: "a", DependsOn: []string{"a"}, Steps: []models.Step{step("s", "true")}}},
			ErrForwardDependency,
		},
		{
			"empty phase",
			[]models.Phase{{Name: "a"}},
			ErrEmptyPhase,
		},
		{
			"duplicate step",
			[]models.Phase{phase("a", step("s", "true"), step("s", "false"))},
			ErrDuplicateStep,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePipeline(tt.phases)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePipeline() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePipeline() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigErrorAbortsBeforeExecution(t *testing.T) {
	exec := newFakeExec()
	r := New(exec)

	phases := []models.Phase{
		phase("a", step("s", "echo hi")),
		phase("a", step("s2", "echo dup")),
	}
	result, err := r.Execute(context.Background(), phases)
	if err == nil {
		t.Fatal("Execute() with invalid pipeline returned nil error")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if len(exec.ranCommands()) != 0 {
		t.Errorf("commands ran despite config error: %v", exec.ranCommands())
	}
}

func TestSequentialFailFastSkipsRemaining(t *testing.T) {
	exec := newFakeExec()
	exec.fail["cmd-b"] = true
	r := New(exec)

	phases := []models.Phase{phase("checks",
		step("A", "cmd-a"),
		step("B", "cmd-b"),
		step("C", "cmd-c"),
	)}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Passed {
		t.Error("result.Passed = true, want false")
	}
	steps := result.Phases[0].Steps
	if steps[0].Status != models.StepPassed {
		t.Errorf("step A status = %s", steps[0].Status)
	}
	if steps[1].Status != models.StepFailed {
		t.Errorf("step B status = %s", steps[1].Status)
	}
	if steps[2].Status != models.StepSkipped {
		t.Errorf("step C status = %s, want skipped", steps[2].Status)
	}
	if exec.didRun("cmd-c") {
		t.Error("step C executed despite fail-fast")
	}
	if result.FailedStep != "B" {
		t.Errorf("FailedStep = %q, want B", result.FailedStep)
	}
	if result.RerunCommand != "cmd-b" {
		t.Errorf("RerunCommand = %q, want cmd-b", result.RerunCommand)
	}
}

func TestSequentialFailFastDisabledRunsAll(t *testing.T) {
	exec := newFakeExec()
	exec.fail["cmd-a"] = true
	off := false
	r := New(exec)

	phases := []models.Phase{{
		Name:     "checks",
		FailFast: &off,
		Steps:    []models.Step{step("A", "cmd-a"), step("B", "cmd-b")},
	}}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !exec.didRun("cmd-b") {
		t.Error("step B did not run with fail-fast disabled")
	}
	if result.Phases[0].Steps[1].Status != models.StepPassed {
		t.Errorf("step B status = %s", result.Phases[0].Steps[1].Status)
	}
}

func TestFailedDependencyBlocksPhase(t *testing.T) {
	exec := newFakeExec()
	exec.fail["cmd-a"] = true
	r := New(exec)

	phases := []models.Phase{
		phase("build", step("Build", "cmd-a")),
		{Name: "test", DependsOn: []string{"build"}, Steps: []models.Step{step("Tests", "cmd-t")}},
		phase("lint", step("Lint", "cmd-l")),
	}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Passed {
		t.Error("result.Passed = true, want false")
	}

	testPhase := result.Phases[1]
	if !testPhase.Skipped || testPhase.Passed {
		t.Errorf("dependent phase = %+v, want skipped and not passed", testPhase)
	}
	if testPhase.Steps[0].Status != models.StepSkipped {
		t.Errorf("dependent step status = %s, want skipped", testPhase.Steps[0].Status)
	}
	if exec.didRun("cmd-t") {
		t.Error("dependent phase step executed")
	}

	// Independent phase still ran.
	if !exec.didRun("cmd-l") {
		t.Error("independent phase did not run")
	}
	if !result.Phases[2].Passed {
		t.Errorf("independent phase = %+v, want passed", result.Phases[2])
	}
}

func TestParallelPhaseRunsAllSteps(t *testing.T) {
	exec := newFakeExec()
	r := New(exec)

	phases := []models.Phase{{
		Name:     "checks",
		Parallel: true,
		Steps:    []models.Step{step("A", "cmd-a"), step("B", "cmd-b"), step("C", "cmd-c")},
	}}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Passed {
		t.Errorf("result = %+v, want pass", result)
	}
	if got := len(exec.ranCommands()); got != 3 {
		t.Errorf("ran %d commands, want 3", got)
	}
	// Slot order matches declaration order regardless of scheduling.
	for i, want := range []string{"A", "B", "C"} {
		if result.Phases[0].Steps[i].Name != want {
			t.Errorf("steps[%d] = %s, want %s", i, result.Phases[0].Steps[i].Name, want)
		}
	}
}

func TestParallelFailFastStopsPendingSteps(t *testing.T) {
	exec := newFakeExec()
	exec.fail["cmd-a"] = true
	r := New(exec)

	// One worker serializes the queue, so the failure of A is observed
	// before B starts.
	phases := []models.Phase{{
		Name:        "checks",
		Parallel:    true,
		MaxParallel: 1,
		Steps:       []models.Step{step("A", "cmd-a"), step("B", "cmd-b")},
	}}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Phases[0].Steps[1].Status != models.StepSkipped {
		t.Errorf("step B status = %s, want skipped", result.Phases[0].Steps[1].Status)
	}
	if exec.didRun("cmd-b") {
		t.Error("step B executed after observed failure")
	}
}

func TestStepTimeout(t *testing.T) {
	exec := newFakeExec()
	exec.block["cmd-slow"] = true
	r := New(exec)

	phases := []models.Phase{phase("checks", models.Step{
		Name:    "Slow",
		Command: "cmd-slow",
		Timeout: 20 * time.Millisecond,
	})}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	stepResult := result.Phases[0].Steps[0]
	if stepResult.Status != models.StepTimedOut {
		t.Fatalf("status = %s, want timed_out", stepResult.Status)
	}
	if stepResult.Passed {
		t.Error("timed out step reported as passed")
	}
	if result.Passed {
		t.Error("result passed despite timeout")
	}
	if stepResult.Output == "" {
		t.Error("timeout output note missing")
	}
}

// fakeCache is a scriptable StepCache.
type fakeCache struct {
	mu      sync.Mutex
	hits    map[string]bool // command -> cached pass
	stored  []string
	lookups []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{hits: make(map[string]bool)}
}

func (c *fakeCache) Lookup(command, workdir string) (bool, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups = append(c.lookups, command)
	passed, ok := c.hits[command]
	return passed, 5, ok
}

func (c *fakeCache) Store(command, workdir string, exitCode int, durationMS int64, extraction *models.Extraction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, command)
}

func TestCachedPassSkipsExecution(t *testing.T) {
	exec := newFakeExec()
	cache := newFakeCache()
	cache.hits["cmd-a"] = true
	r := New(exec, WithStepCache(cache))

	phases := []models.Phase{phase("checks", step("A", "cmd-a"), step("B", "cmd-b"))}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exec.didRun("cmd-a") {
		t.Error("cached step executed")
	}
	if !result.Phases[0].Steps[0].Cached {
		t.Error("cached step not flagged as cached")
	}
	if !exec.didRun("cmd-b") {
		t.Error("uncached step did not execute")
	}
	// Executed step result is stored back.
	if len(cache.stored) != 1 || cache.stored[0] != "cmd-b" {
		t.Errorf("stored = %v, want [cmd-b]", cache.stored)
	}
}

func TestCachedFailureDoesNotSkip(t *testing.T) {
	exec := newFakeExec()
	cache := newFakeCache()
	cache.hits["cmd-a"] = false // cached, but failed
	r := New(exec, WithStepCache(cache))

	phases := []models.Phase{phase("checks", step("A", "cmd-a"))}
	if _, err := r.Execute(context.Background(), phases); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !exec.didRun("cmd-a") {
		t.Error("step with cached failure was skipped; failures must re-run")
	}
}

// fakeExtractor records extraction requests.
type fakeExtractor struct {
	calls []string
}

func (f *fakeExtractor) Extract(command, output string) *models.Extraction {
	f.calls = append(f.calls, command)
	return &models.Extraction{
		Summary:     "1 error",
		TotalErrors: 1,
		Errors:      []models.ExtractedError{{Message: "boom"}},
	}
}

func TestExtractionAttachedToFailedStep(t *testing.T) {
	exec := newFakeExec()
	exec.fail["cmd-a"] = true
	ex := &fakeExtractor{}
	r := New(exec, WithExtractor(ex))

	phases := []models.Phase{phase("checks", step("A", "cmd-a"))}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	stepResult := result.Phases[0].Steps[0]
	if stepResult.Extraction == nil {
		t.Fatal("extraction missing on failed step")
	}
	if stepResult.Extraction.TotalErrors != 1 {
		t.Errorf("extraction = %+v", stepResult.Extraction)
	}
}

func TestSummary(t *testing.T) {
	exec := newFakeExec()
	r := New(exec)

	phases := []models.Phase{phase("checks", step("A", "cmd-a"), step("B", "cmd-b"))}
	result, err := r.Execute(context.Background(), phases)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Summary != "2 steps passed (0 cached)" {
		t.Errorf("summary = %q", result.Summary)
	}
}
