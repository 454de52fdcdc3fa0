package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// lastRunFile is the compact mirror of the most recent validation,
// written next to the project database.
const lastRunFile = "last-run.json"

// LastRunPath returns the path of the last-run state file for a project.
func LastRunPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".gatecheck", lastRunFile)
}

// WriteLastRun persists the most recent validation result for quick
// inspection without touching git notes or the database.
func WriteLastRun(projectRoot string, result *models.ValidationResult) error {
	path := LastRunPath(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode last run: %w", err)
	}

	// Write-then-rename so a crash never leaves a torn file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("write last run: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace last run: %w", err)
	}
	return nil
}

// ReadLastRun loads the most recent validation result, if any.
func ReadLastRun(projectRoot string) (*models.ValidationResult, error) {
	payload, err := os.ReadFile(LastRunPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read last run: %w", err)
	}
	var result models.ValidationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode last run: %w", err)
	}
	return &result, nil
}
