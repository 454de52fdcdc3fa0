package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// ProjectType represents the primary language/framework of a project.
type ProjectType string

const (
	// ProjectTypeGo indicates a Go project (has go.mod).
	ProjectTypeGo ProjectType = "go"
	// ProjectTypeNode indicates a Node.js/JavaScript/TypeScript project (has package.json).
	ProjectTypeNode ProjectType = "node"
	// ProjectTypeRust indicates a Rust project (has Cargo.toml).
	ProjectTypeRust ProjectType = "rust"
	// ProjectTypePython indicates a Python project (has pyproject.toml or requirements.txt).
	ProjectTypePython ProjectType = "python"
	// ProjectTypeUnknown indicates the project type couldn't be detected.
	ProjectTypeUnknown ProjectType = "unknown"
)

// DetectProjectType analyzes a directory and returns the project type.
// It checks for common project files in order of specificity.
func DetectProjectType(root string) ProjectType {
	if fileExists(filepath.Join(root, "go.mod")) {
		return ProjectTypeGo
	}
	if fileExists(filepath.Join(root, "Cargo.toml")) {
		return ProjectTypeRust
	}
	if fileExists(filepath.Join(root, "pyproject.toml")) ||
		fileExists(filepath.Join(root, "setup.py")) ||
		fileExists(filepath.Join(root, "requirements.txt")) {
		return ProjectTypePython
	}
	// package.json last since it also shows up in polyglot repos.
	if fileExists(filepath.Join(root, "package.json")) {
		return ProjectTypeNode
	}
	return ProjectTypeUnknown
}

// PresetPhases returns the built-in pipeline for a project type. Unknown
// projects get no phases; the caller reports the missing config.
func PresetPhases(pt ProjectType) []models.Phase {
	switch pt {
	case ProjectTypeGo:
		return []models.Phase{
			{
				Name: "build",
				Steps: []models.Step{
					{Name: "Build", Command: "go build ./...", Timeout: 5 * time.Minute},
					{Name: "Vet", Command: "go vet ./...", Timeout: 5 * time.Minute},
				},
			},
			{
				Name:      "test",
				DependsOn: []string{"build"},
				Steps: []models.Step{
					{Name: "Tests", Command: "go test ./...", Timeout: 10 * time.Minute},
				},
			},
		}
	case ProjectTypeNode:
		return []models.Phase{
			{
				Name:     "checks",
				Parallel: true,
				Steps: []models.Step{
					{Name: "Typecheck", Command: "npx tsc --noEmit", Timeout: 5 * time.Minute},
					{Name: "Lint", Command: "npm run lint --if-present", Timeout: 5 * time.Minute},
				},
			},
			{
				Name:      "test",
				DependsOn: []string{"checks"},
				Steps: []models.Step{
					{Name: "Tests", Command: "npm test", Timeout: 10 * time.Minute},
				},
			},
		}
	case ProjectTypeRust:
		return []models.Phase{
			{
				Name: "build",
				Steps: []models.Step{
					{Name: "Check", Command: "cargo check", Timeout: 10 * time.Minute},
					{Name: "Clippy", Command: "cargo clippy -- -D warnings", Timeout: 10 * time.Minute},
				},
			},
			{
				Name:      "test",
				DependsOn: []string{"build"},
				Steps: []models.Step{
					{Name: "Tests", Command: "cargo test", Timeout: 15 * time.Minute},
				},
			},
		}
	case ProjectTypePython:
		return []models.Phase{
			{
				Name: "test",
				Steps: []models.Step{
					{Name: "Tests", Command: "python -m pytest", Timeout: 10 * time.Minute},
				},
			},
		}
	default:
		return nil
	}
}

// fileExists checks if a file exists at the given path.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
