package models

import "time"

// StepStatus represents the lifecycle state of a step execution.
type StepStatus string

const (
	// StepPending means the step has not started.
	StepPending StepStatus = "pending"
	// StepRunning means the step is currently executing.
	StepRunning StepStatus = "running"
	// StepPassed means the step exited zero.
	StepPassed StepStatus = "passed"
	// StepFailed means the step exited non-zero.
	StepFailed StepStatus = "failed"
	// StepTimedOut means the step exceeded its timeout and was killed.
	StepTimedOut StepStatus = "timed_out"
	// StepSkipped means the step never started (fail-fast or blocked phase).
	StepSkipped StepStatus = "skipped"
)

// Terminal reports whether the status is a terminal state.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepPassed, StepFailed, StepTimedOut, StepSkipped:
		return true
	}
	return false
}

// StepResult is the outcome of a single step execution.
type StepResult struct {
	Name       string      `json:"name"`
	Status     StepStatus  `json:"status"`
	Passed     bool        `json:"passed"`
	ExitCode   int         `json:"exit_code"`
	DurationMS int64       `json:"duration_ms"`
	Output     string      `json:"output,omitempty"`
	Cached     bool        `json:"cached,omitempty"`
	Extraction *Extraction `json:"extraction,omitempty"`
}

// PhaseResult aggregates the step results of one phase.
type PhaseResult struct {
	Name       string       `json:"name"`
	Passed     bool         `json:"passed"`
	Skipped    bool         `json:"skipped,omitempty"`
	DurationMS int64        `json:"duration_ms"`
	Steps      []StepResult `json:"steps"`
}

// ValidationResult is the full outcome of one validation run.
type ValidationResult struct {
	Passed       bool          `json:"passed"`
	Timestamp    time.Time     `json:"timestamp"`
	TreeIdentity string        `json:"tree_identity,omitempty"`
	Phases       []PhaseResult `json:"phases"`
	FailedStep   string        `json:"failed_step,omitempty"`
	RerunCommand string        `json:"rerun_command,omitempty"`
	Summary      string        `json:"summary,omitempty"`
}

// FirstFailedStep returns the first step that failed or timed out,
// or nil if every step passed.
func (r *ValidationResult) FirstFailedStep() *StepResult {
	for pi := range r.Phases {
		for si := range r.Phases[pi].Steps {
			step := &r.Phases[pi].Steps[si]
			if step.Status == StepFailed || step.Status == StepTimedOut {
				return step
			}
		}
	}
	return nil
}

// StepByName returns the step result with the given name, or nil.
func (r *ValidationResult) StepByName(name string) *StepResult {
	for pi := range r.Phases {
		for si := range r.Phases[pi].Steps {
			if r.Phases[pi].Steps[si].Name == name {
				return &r.Phases[pi].Steps[si]
			}
		}
	}
	return nil
}

// Extraction is structured diagnostic data produced by an error-extraction
// collaborator from a step's raw output. The engine attaches it to step
// results without interpreting its contents.
type Extraction struct {
	Errors      []ExtractedError   `json:"errors"`
	Summary     string             `json:"summary"`
	TotalErrors int                `json:"total_errors"`
	Guidance    string             `json:"guidance,omitempty"`
	Metadata    ExtractionMetadata `json:"metadata"`
}

// ExtractedError is a single diagnostic parsed from tool output.
type ExtractedError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// ExtractionMetadata describes how trustworthy an extraction is.
type ExtractionMetadata struct {
	Confidence   float64 `json:"confidence"`
	Completeness float64 `json:"completeness"`
	Detection    string  `json:"detection"`
}
