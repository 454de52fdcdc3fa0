// Package extract parses structured diagnostics out of raw step output.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// maxErrors caps how many diagnostics one extraction carries; output
// beyond the cap is summarized in TotalErrors.
const maxErrors = 10

// ToolPattern describes how to recognize one tool's failure output.
type ToolPattern struct {
	// Name identifies the pattern in extraction metadata.
	Name string
	// Triggers are substrings of the step command that select this
	// pattern.
	Triggers []string
	// Line matches a diagnostic line. Optional capture groups: file,
	// line number, message.
	Line *regexp.Regexp
	// Confidence is how trustworthy a match under this pattern is.
	Confidence float64
}

// StandardPatterns covers the common toolchains. The generic pattern
// last in the list is the fallback for unrecognized commands.
var StandardPatterns = []ToolPattern{
	{
		Name:       "go-test",
		Triggers:   []string{"go test"},
		Line:       regexp.MustCompile(`^\s*(--- FAIL: .+|(\S+_test\.go):(\d+): (.+)|FAIL\s+\S+.*)$`),
		Confidence: 0.9,
	},
	{
		Name:       "go-build",
		Triggers:   []string{"go build", "go vet", "go install"},
		Line:       regexp.MustCompile(`^(\S+\.go):(\d+)(?::\d+)?: (.+)$`),
		Confidence: 0.9,
	},
	{
		Name:       "golangci-lint",
		Triggers:   []string{"golangci-lint"},
		Line:       regexp.MustCompile(`^(\S+\.go):(\d+)(?::\d+)?: (.+)$`),
		Confidence: 0.85,
	},
	{
		Name:       "tsc",
		Triggers:   []string{"tsc", "typescript"},
		Line:       regexp.MustCompile(`^(\S+?)\((\d+),\d+\): (error TS\d+: .+)$`),
		Confidence: 0.9,
	},
	{
		Name:       "pytest",
		Triggers:   []string{"pytest", "py.test"},
		Line:       regexp.MustCompile(`^(FAILED \S+.*|ERROR \S+.*|E\s+.+)$`),
		Confidence: 0.8,
	},
	{
		Name:       "cargo",
		Triggers:   []string{"cargo "},
		Line:       regexp.MustCompile(`^(error(\[E\d+\])?: .+|thread '.+' panicked at .+)$`),
		Confidence: 0.85,
	},
	{
		Name:       "generic",
		Triggers:   nil,
		Line:       regexp.MustCompile(`(?i)^.*\b(error|fatal|failed|failure)\b.*$`),
		Confidence: 0.4,
	},
}

// Extractor parses step output with tool-specific patterns. The zero
// value is not usable; construct with New.
type Extractor struct {
	patterns []ToolPattern
}

// New creates an Extractor with the standard patterns.
func New() *Extractor {
	return &Extractor{patterns: StandardPatterns}
}

// Extract scans output for diagnostic lines using the pattern selected
// by the command. It always returns an extraction, possibly with zero
// errors, so callers can rely on the summary and metadata fields.
func (e *Extractor) Extract(command, output string) *models.Extraction {
	pattern := e.selectPattern(command)

	var errs []models.ExtractedError
	total := 0
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		match := pattern.Line.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		total++
		if len(errs) >= maxErrors {
			continue
		}
		errs = append(errs, toError(pattern, match, line))
	}

	extraction := &models.Extraction{
		Errors:      errs,
		TotalErrors: total,
		Summary:     summarize(pattern.Name, total),
		Metadata: models.ExtractionMetadata{
			Confidence: pattern.Confidence,
			Detection:  pattern.Name,
		},
	}
	if total > 0 {
		extraction.Metadata.Completeness = float64(len(errs)) / float64(total)
	}
	return extraction
}

// selectPattern returns the first pattern with a trigger matching the
// command, falling back to the last (generic) pattern.
func (e *Extractor) selectPattern(command string) ToolPattern {
	lower := strings.ToLower(command)
	for _, pattern := range e.patterns {
		for _, trigger := range pattern.Triggers {
			if strings.Contains(lower, trigger) {
				return pattern
			}
		}
	}
	return e.patterns[len(e.patterns)-1]
}

// toError builds a diagnostic from a matched line, pulling file and
// line number out of capture groups when the pattern provides them.
func toError(pattern ToolPattern, match []string, line string) models.ExtractedError {
	err := models.ExtractedError{Message: strings.TrimSpace(line)}
	switch pattern.Name {
	case "go-test":
		if len(match) > 4 && match[2] != "" {
			err.File = match[2]
			err.Line = atoi(match[3])
			err.Message = match[4]
		}
	case "go-build", "golangci-lint", "tsc":
		if len(match) > 3 && match[1] != "" {
			err.File = match[1]
			err.Line = atoi(match[2])
			err.Message = match[3]
		}
	}
	return err
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func summarize(patternName string, total int) string {
	if total == 0 {
		return "no diagnostics recognized"
	}
	noun := "errors"
	if total == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%d %s (%s)", total, noun, patternName)
}
