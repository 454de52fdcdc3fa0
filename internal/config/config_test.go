package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gatecheck.yaml", `
cache:
  enabled: false
history:
  max_runs: 5
phases:
  - name: checks
    parallel: true
    max_parallel: 2
    steps:
      - name: Lint
        command: golangci-lint run
        timeout: 2m
  - name: test
    depends_on: [checks]
    fail_fast: false
    steps:
      - name: Tests
        command: go test ./...
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Cache.Enabled {
		t.Error("cache.enabled = true, want false")
	}
	if cfg.History.MaxRuns != 5 {
		t.Errorf("history.max_runs = %d, want 5", cfg.History.MaxRuns)
	}
	if len(cfg.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(cfg.Phases))
	}

	checks := cfg.Phases[0]
	if !checks.Parallel || checks.MaxParallel != 2 {
		t.Errorf("checks phase = %+v, want parallel with max_parallel 2", checks)
	}
	if checks.Steps[0].Timeout != 2*time.Minute {
		t.Errorf("timeout = %v, want 2m", checks.Steps[0].Timeout)
	}

	test := cfg.Phases[1]
	if len(test.DependsOn) != 1 || test.DependsOn[0] != "checks" {
		t.Errorf("depends_on = %v, want [checks]", test.DependsOn)
	}
	if test.FailFastEnabled() {
		t.Error("fail_fast: false not honored")
	}
}

func TestLoadFromPathDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gatecheck.yaml", "phases:\n  - name: p\n    steps:\n      - name: s\n        command: \"true\"\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache.enabled default = false, want true")
	}
	if cfg.History.MaxRuns != 20 {
		t.Errorf("history.max_runs default = %d, want 20", cfg.History.MaxRuns)
	}
	if cfg.Watch.DebounceMS != 500 {
		t.Errorf("watch.debounce_ms default = %d, want 500", cfg.Watch.DebounceMS)
	}
}

func TestDetectProjectType(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  ProjectType
	}{
		{"go", []string{"go.mod"}, ProjectTypeGo},
		{"rust", []string{"Cargo.toml"}, ProjectTypeRust},
		{"python pyproject", []string{"pyproject.toml"}, ProjectTypePython},
		{"python requirements", []string{"requirements.txt"}, ProjectTypePython},
		{"node", []string{"package.json"}, ProjectTypeNode},
		{"go wins over node", []string{"go.mod", "package.json"}, ProjectTypeGo},
		{"empty", nil, ProjectTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, dir, f, "")
			}
			if got := DetectProjectType(dir); got != tt.want {
				t.Errorf("DetectProjectType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPresetPhasesValidity(t *testing.T) {
	for _, pt := range []ProjectType{ProjectTypeGo, ProjectTypeNode, ProjectTypeRust, ProjectTypePython} {
		t.Run(string(pt), func(t *testing.T) {
			phases := PresetPhases(pt)
			if len(phases) == 0 {
				t.Fatalf("no preset for %s", pt)
			}
			names := make(map[string]bool)
			for _, phase := range phases {
				if names[phase.Name] {
					t.Errorf("duplicate phase %q", phase.Name)
				}
				for _, dep := range phase.DependsOn {
					if !names[dep] {
						t.Errorf("phase %q depends on %q before it is declared", phase.Name, dep)
					}
				}
				names[phase.Name] = true
				if len(phase.Steps) == 0 {
					t.Errorf("phase %q has no steps", phase.Name)
				}
			}
		})
	}
	if PresetPhases(ProjectTypeUnknown) != nil {
		t.Error("unknown project type has a preset")
	}
}

func TestFindProjectConfigSearchesParents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ProjectConfigName, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got := FindProjectConfig(nested)
	if got != filepath.Join(root, ProjectConfigName) {
		t.Errorf("FindProjectConfig() = %q", got)
	}

	if got := FindProjectConfig(t.TempDir()); got != "" {
		t.Errorf("FindProjectConfig() in empty tree = %q, want \"\"", got)
	}
}

func TestWriteProjectConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/x\n")
	cfg := Default(dir)

	path, err := WriteProjectConfig(dir, cfg)
	if err != nil {
		t.Fatalf("WriteProjectConfig() error = %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("round-trip load: %v", err)
	}
	if len(loaded.Phases) != len(cfg.Phases) {
		t.Errorf("round-trip phases = %d, want %d", len(loaded.Phases), len(cfg.Phases))
	}

	// Second write must not clobber the existing file.
	if _, err := WriteProjectConfig(dir, cfg); err == nil {
		t.Error("overwrite of existing config did not error")
	}
}
