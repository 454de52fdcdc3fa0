// Package runner schedules and executes validation phases and steps.
package runner

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// Pipeline configuration errors. All of them are detected before any
// phase executes.
var (
	// ErrNoPhases indicates an empty pipeline.
	ErrNoPhases = errors.New("pipeline has no phases")
	// ErrDuplicatePhase indicates two phases share a name.
	ErrDuplicatePhase = errors.New("duplicate phase name")
	// ErrUnknownDependency indicates a depends_on entry that names no phase.
	ErrUnknownDependency = errors.New("dependency on unknown phase")
	// ErrForwardDependency indicates a depends_on entry that names a
	// later phase. Backward-only references also rule out cycles.
	ErrForwardDependency = errors.New("dependency on later phase")
	// ErrEmptyPhase indicates a phase with no steps.
	ErrEmptyPhase = errors.New("phase has no steps")
	// ErrDuplicateStep indicates two steps in one phase share a name.
	ErrDuplicateStep = errors.New("duplicate step name")
)

// ValidatePipeline checks a phase list for configuration errors:
// duplicate phase names, dependencies on unknown or later phases, empty
// phases, and duplicate step names within a phase.
func ValidatePipeline(phases []models.Phase) error {
	if len(phases) == 0 {
		return ErrNoPhases
	}
	declared := make(map[string]int, len(phases))
	for i, phase := range phases {
		if _, dup := declared[phase.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePhase, phase.Name)
		}
		for _, dep := range phase.DependsOn {
			if _, known := declared[dep]; !known {
				if dep == phase.Name || laterPhase(phases, i, dep) {
					return fmt.Errorf("%w: %q depends on %q", ErrForwardDependency, phase.Name, dep)
				}
				return fmt.Errorf("%w: %q depends on %q", ErrUnknownDependency, phase.Name, dep)
			}
		}
		if len(phase.Steps) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyPhase, phase.Name)
		}
		steps := make(map[string]bool, len(phase.Steps))
		for _, step := range phase.Steps {
			if steps[step.Name] {
				return fmt.Errorf("%w: %q in phase %q", ErrDuplicateStep, step.Name, phase.Name)
			}
			steps[step.Name] = true
		}
		declared[phase.Name] = i
	}
	return nil
}

// laterPhase reports whether name is declared at or after index from.
func laterPhase(phases []models.Phase, from int, name string) bool {
	for i := from; i < len(phases); i++ {
		if phases[i].Name == name {
			return true
		}
	}
	return false
}
