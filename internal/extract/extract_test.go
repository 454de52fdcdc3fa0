package extract

import (
	"fmt"
	"strings"
	"testing"
)

func TestExtractGoBuild(t *testing.T) {
	out := strings.Join([]string{
		"# github.com/example/app",
		"main.go:12:5: undefined: frobnicate",
		"util/helpers.go:3:1: missing return",
		"",
	}, "\n")

	ex := New().Extract("go build ./...", out)
	if ex.TotalErrors != 2 {
		t.Fatalf("TotalErrors = %d, want 2", ex.TotalErrors)
	}
	first := ex.Errors[0]
	if first.File != "main.go" || first.Line != 12 {
		t.Errorf("first error = %+v, want main.go:12", first)
	}
	if first.Message != "undefined: frobnicate" {
		t.Errorf("message = %q", first.Message)
	}
	if ex.Metadata.Detection != "go-build" {
		t.Errorf("detection = %q, want go-build", ex.Metadata.Detection)
	}
}

func TestExtractGoTest(t *testing.T) {
	out := strings.Join([]string{
		"--- FAIL: TestParse (0.00s)",
		"    parse_test.go:42: got 3, want 4",
		"FAIL",
		"FAIL\tgithub.com/example/app\t0.012s",
	}, "\n")

	ex := New().Extract("go test ./...", out)
	if ex.TotalErrors < 2 {
		t.Fatalf("TotalErrors = %d, want at least 2", ex.TotalErrors)
	}
	found := false
	for _, e := range ex.Errors {
		if e.File == "parse_test.go" && e.Line == 42 {
			found = true
			if e.Message != "got 3, want 4" {
				t.Errorf("message = %q", e.Message)
			}
		}
	}
	if !found {
		t.Errorf("no error located at parse_test.go:42: %+v", ex.Errors)
	}
}

func TestExtractGenericFallback(t *testing.T) {
	out := "stage one ok\nError: connection refused\nall done\n"

	ex := New().Extract("make deploy", out)
	if ex.Metadata.Detection != "generic" {
		t.Fatalf("detection = %q, want generic", ex.Metadata.Detection)
	}
	if ex.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1", ex.TotalErrors)
	}
	if ex.Errors[0].Message != "Error: connection refused" {
		t.Errorf("message = %q", ex.Errors[0].Message)
	}
	if ex.Metadata.Confidence >= 0.5 {
		t.Errorf("generic confidence = %v, want low", ex.Metadata.Confidence)
	}
}

func TestExtractCapsErrorsButCountsAll(t *testing.T) {
	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, fmt.Sprintf("file%d.go:%d:1: problem %d", i, i+1, i))
	}

	ex := New().Extract("go vet ./...", strings.Join(lines, "\n"))
	if ex.TotalErrors != 25 {
		t.Errorf("TotalErrors = %d, want 25", ex.TotalErrors)
	}
	if len(ex.Errors) != maxErrors {
		t.Errorf("len(Errors) = %d, want %d", len(ex.Errors), maxErrors)
	}
	if ex.Metadata.Completeness >= 1 {
		t.Errorf("completeness = %v, want < 1 when capped", ex.Metadata.Completeness)
	}
}

func TestExtractCleanOutput(t *testing.T) {
	ex := New().Extract("go test ./...", "ok\tgithub.com/example/app\t0.01s\n")
	if ex.TotalErrors != 0 {
		t.Errorf("TotalErrors = %d, want 0", ex.TotalErrors)
	}
	if ex.Summary != "no diagnostics recognized" {
		t.Errorf("summary = %q", ex.Summary)
	}
}

func TestSummaryWording(t *testing.T) {
	ex := New().Extract("go build ./...", "main.go:1:1: boom\n")
	if ex.Summary != "1 error (go-build)" {
		t.Errorf("summary = %q", ex.Summary)
	}
}
