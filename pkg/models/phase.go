// Package models defines the shared value types for gatecheck validation runs.
package models

import "time"

// Phase is one stage of a validation pipeline (e.g. "typecheck", "test").
// Phases execute in declaration order; DependsOn may only reference phases
// declared earlier in the pipeline.
type Phase struct {
	// Name uniquely identifies the phase within a pipeline.
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Parallel runs the phase's steps concurrently when true.
	Parallel bool `yaml:"parallel,omitempty" json:"parallel,omitempty" mapstructure:"parallel"`
	// MaxParallel bounds concurrent steps in a parallel phase (0 = unbounded).
	MaxParallel int `yaml:"max_parallel,omitempty" json:"max_parallel,omitempty" mapstructure:"max_parallel"`
	// DependsOn lists phases that must pass before this phase may run.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty" mapstructure:"depends_on"`
	// FailFast overrides the pipeline-wide fail-fast policy for this phase.
	// Nil means inherit (fail-fast on).
	FailFast *bool `yaml:"fail_fast,omitempty" json:"fail_fast,omitempty" mapstructure:"fail_fast"`
	// Steps are the commands to run, in declared order.
	Steps []Step `yaml:"steps" json:"steps" mapstructure:"steps"`
}

// FailFastEnabled reports the effective fail-fast policy for the phase.
func (p *Phase) FailFastEnabled() bool {
	if p.FailFast == nil {
		return true
	}
	return *p.FailFast
}

// Step is a single command executed inside a phase.
type Step struct {
	// Name identifies the step in results and history.
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Command is the shell command to execute.
	Command string `yaml:"command" json:"command" mapstructure:"command"`
	// Timeout is the maximum execution time (0 = no timeout).
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`
	// Env holds additional environment variables for the command.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty" mapstructure:"env"`
}
