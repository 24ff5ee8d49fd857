package quality_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/marklab/marksman/internal/config"
	"github.com/marklab/marksman/internal/quality"
)

func writeFakeTool(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckOutputDriven(t *testing.T) {
	noisy := writeFakeTool(t, "lint-noisy", `echo "$1:1:1: E302 expected 2 blank lines"`)
	quiet := writeFakeTool(t, "lint-quiet", "exit 0")
	tools := []config.Tool{
		{Name: "noisy", Description: "Style Guide Enforcement", Args: []string{noisy, "{file}"}, CleanText: "No style issues found."},
		{Name: "quiet", Description: "Style Guide Enforcement", Args: []string{quiet, "{file}"}, CleanText: "No style issues found."},
	}

	r := quality.NewRunner(tools, zaptest.NewLogger(t))
	results := r.Check(context.Background(), "/work/problem_1.py")

	if !results["noisy"].HasIssues {
		t.Error("non-empty output should mean issues")
	}
	if !strings.Contains(results["noisy"].Output, "/work/problem_1.py:1:1") {
		t.Errorf("{file} placeholder not substituted: %q", results["noisy"].Output)
	}
	if results["quiet"].HasIssues {
		t.Error("silent exit 0 should mean no issues")
	}
	if results["quiet"].Output != "No style issues found." {
		t.Errorf("clean text not applied: %q", results["quiet"].Output)
	}
}

func TestCheckExitCodeDriven(t *testing.T) {
	reformat := writeFakeTool(t, "fmt-dirty", `echo "--- a/$2"
echo "+++ b/$2"
exit 1`)
	clean := writeFakeTool(t, "fmt-clean", `echo "would reformat 0 files" >&2
exit 0`)
	tools := []config.Tool{
		{Name: "dirty", Description: "Code Formatting", Args: []string{reformat, "--check", "{file}"}, CheckExitCode: true, PreferStderr: true, CleanText: "No formatting issues found."},
		{Name: "clean", Description: "Code Formatting", Args: []string{clean, "--check", "{file}"}, CheckExitCode: true, PreferStderr: true, CleanText: "No formatting issues found."},
	}

	r := quality.NewRunner(tools, zaptest.NewLogger(t))
	results := r.Check(context.Background(), "problem_2.py")

	if !results["dirty"].HasIssues {
		t.Error("nonzero exit should mean issues")
	}
	// stderr empty, so the diff on stdout is the fallback output.
	if !strings.Contains(results["dirty"].Output, "--- a/problem_2.py") {
		t.Errorf("expected diff in output, got %q", results["dirty"].Output)
	}
	if results["clean"].HasIssues {
		t.Error("exit 0 should mean no issues even with output")
	}
	if results["clean"].Output != "No formatting issues found." {
		t.Errorf("clean text not applied: %q", results["clean"].Output)
	}
}

func TestCheckMissingTool(t *testing.T) {
	tools := []config.Tool{
		{Name: "ghost", Description: "Style Guide Enforcement", Args: []string{"definitely-not-a-real-binary-0xd1ac", "{file}"}},
	}
	r := quality.NewRunner(tools, zaptest.NewLogger(t))

	for _, file := range []string{"a.py", "b.py"} {
		res := r.Check(context.Background(), file)["ghost"]
		if res.Warning == "" {
			t.Errorf("expected warning for missing tool on %s", file)
		}
		if res.HasIssues {
			t.Errorf("missing tool must not report issues on %s", file)
		}
	}
}

func TestDefaultToolsShape(t *testing.T) {
	tools := config.DefaultTools()
	if len(tools) != 2 {
		t.Fatalf("expected 2 default tools, got %d", len(tools))
	}
	flake8, black := tools[0], tools[1]
	if flake8.CheckExitCode || !black.CheckExitCode {
		t.Error("flake8 is output-driven, black is exit-code-driven")
	}
	if flake8.Description != "Style Guide Enforcement" || black.Description != "Code Formatting" {
		t.Errorf("unexpected descriptions: %q, %q", flake8.Description, black.Description)
	}
}
