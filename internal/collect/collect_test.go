package collect_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/marklab/marksman/internal/collect"
	"github.com/marklab/marksman/internal/quality"
	"github.com/marklab/marksman/internal/submission"
	"github.com/marklab/marksman/internal/testrun"
)

const codeNotebook = `{
  "cells": [
    {"cell_type": "markdown", "source": "## Methodology"},
    {"cell_type": "code", "source": "x = compute()"}
  ]
}`

const proseNotebook = `{
  "cells": [
    {"cell_type": "markdown", "source": "# Final Report\nFindings only, no code."}
  ]
}`

func newBundle(t *testing.T) *collect.Bundle {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"problem_1.py":   "def solve():\n    return 1\n",
		"problem2.ipynb": codeNotebook,
		"report.ipynb":   proseNotebook,
		"notes.txt":      "submission notes",
	}
	var sources []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		sources = append(sources, path)
	}
	staged := &submission.Staged{
		Student:   submission.Student{ID: "z1234567", Name: "Jane Doe"},
		SourceDir: dir,
		Sources:   sources,
	}
	outcomes := map[string]*testrun.Outcome{
		"1": {
			Summary: testrun.Summary{
				Status:      testrun.StatusCompleted,
				Passed:      true,
				TotalTests:  3,
				PassedTests: 3,
			},
		},
	}
	qual := map[string]map[string]quality.Result{
		"1": {
			"flake8": {Name: "flake8", Description: "Style Guide Enforcement", Output: "No style issues found."},
		},
	}
	return collect.New("assignment1", staged, outcomes, qual, zaptest.NewLogger(t))
}

func TestResolveFiles(t *testing.T) {
	b := newBundle(t)

	code, ok := b.Resolve("code_file:problem_1.py", nil)
	if !ok || !strings.Contains(code, "def solve()") {
		t.Errorf("code_file exact lookup failed: %v %q", ok, code)
	}

	nb, ok := b.Resolve("code_file:problem2.ipynb", nil)
	if !ok || !strings.Contains(nb, "x = compute()") {
		t.Errorf("notebook code lookup failed: %v %q", ok, nb)
	}

	glob, ok := b.Resolve("code_file:*.py", nil)
	if !ok || !strings.Contains(glob, "def solve()") {
		t.Errorf("glob lookup failed: %v %q", ok, glob)
	}

	md, ok := b.Resolve("markdown_file:report.ipynb", nil)
	if !ok || !strings.Contains(md, "# Final Report") {
		t.Errorf("markdown from prose-only notebook must be collectible: %v %q", ok, md)
	}

	doc, ok := b.Resolve("document_file:notes.txt", nil)
	if !ok || doc != "submission notes" {
		t.Errorf("text document lookup failed: %v %q", ok, doc)
	}

	if _, ok := b.Resolve("code_file:missing.py", nil); ok {
		t.Error("missing file should not resolve")
	}
}

func TestResolveAggregates(t *testing.T) {
	b := newBundle(t)

	allCode, ok := b.Resolve("all_code", nil)
	if !ok {
		t.Fatal("all_code should resolve")
	}
	if !strings.Contains(allCode, "def solve()") || !strings.Contains(allCode, "x = compute()") {
		t.Errorf("all_code missing pieces: %q", allCode)
	}

	allMD, ok := b.Resolve("all_markdown_content", nil)
	if !ok {
		t.Fatal("all_markdown_content should resolve")
	}
	if !strings.Contains(allMD, "\n\n---\n\n") {
		t.Errorf("markdown files should be separated by ---: %q", allMD)
	}
	if !strings.Contains(allMD, "## Methodology") || !strings.Contains(allMD, "# Final Report") {
		t.Errorf("all_markdown_content missing pieces: %q", allMD)
	}
}

func TestResolveGroups(t *testing.T) {
	b := newBundle(t)

	tests, ok := b.Resolve("test_group:1", nil)
	if !ok {
		t.Fatal("test_group:1 should resolve")
	}
	if !strings.Contains(tests, `"status": "completed"`) || !strings.Contains(tests, `"total_tests": 3`) {
		t.Errorf("unexpected test group dump: %q", tests)
	}

	qual, ok := b.Resolve("quality_group:1", nil)
	if !ok {
		t.Fatal("quality_group:1 should resolve")
	}
	if !strings.Contains(qual, `"has_issues": false`) {
		t.Errorf("unexpected quality group dump: %q", qual)
	}

	if _, ok := b.Resolve("test_group:99", nil); ok {
		t.Error("unknown problem id should not resolve")
	}
}

func TestResolveModuleOutput(t *testing.T) {
	b := newBundle(t)
	outputs := map[string]string{"code_quality": "Solid work overall."}

	got, ok := b.Resolve("module_output:code_quality", outputs)
	if !ok || got != "Solid work overall." {
		t.Errorf("module_output lookup failed: %v %q", ok, got)
	}
	if _, ok := b.Resolve("module_output:later_module", outputs); ok {
		t.Error("unknown module output should not resolve")
	}
}

func TestGather(t *testing.T) {
	b := newBundle(t)

	vars := b.Gather(map[string]string{
		"code":    "all_code",
		"missing": "document_file:ghost.pdf",
	}, nil)

	if vars["task_name"] != "assignment1" || vars["user_name"] != "Jane Doe" || vars["user_id"] != "z1234567" {
		t.Errorf("implicit vars wrong: %v", vars)
	}
	if !strings.Contains(vars["code"], "def solve()") {
		t.Errorf("code var not resolved: %q", vars["code"])
	}
	if vars["missing"] != "[Data not found for specifier: document_file:ghost.pdf]" {
		t.Errorf("unresolvable specifier placeholder wrong: %q", vars["missing"])
	}
}
