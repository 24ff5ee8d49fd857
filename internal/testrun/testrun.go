// Package testrun executes instructor test cases against staged student
// solutions with pytest and turns the output into structured outcomes.
package testrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Status classifies how a test run ended.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusTimeout        Status = "timeout"
	StatusExecutionError Status = "execution_error"
	StatusNoTestFile     Status = "no_test_file"
)

// timeoutExitCode mirrors the shell convention for a killed process.
const timeoutExitCode = 124

// Failure is one failed test with a short excerpt from its traceback.
type Failure struct {
	Name    string   `json:"name"`
	Message string   `json:"message,omitempty"`
	Context []string `json:"context,omitempty"`
}

// Parsed holds the fields recovered by scanning pytest -v output.
type Parsed struct {
	TotalTests  int       `json:"total_tests"`
	PassedTests int       `json:"passed_tests"`
	FailedTests int       `json:"failed_tests"`
	SummaryLine string    `json:"summary_line,omitempty"`
	Failures    []Failure `json:"failures,omitempty"`
}

// Summary is the headline half of a persisted outcome: how the run ended
// and the test counts.
type Summary struct {
	Status          Status  `json:"status"`
	Passed          bool    `json:"passed"`
	ExitCode        int     `json:"exit_code"`
	TotalTests      int     `json:"total_tests"`
	PassedTests     int     `json:"passed_tests"`
	FailedTests     int     `json:"failed_tests"`
	SummaryLine     string  `json:"summary_line,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Details is the evidence half: failure excerpts and the captured streams.
type Details struct {
	Failures    []Failure `json:"failures,omitempty"`
	Output      string    `json:"full_output,omitempty"`
	ErrorOutput string    `json:"error_output,omitempty"`
}

// Outcome is the structured result of running one problem's tests. It
// persists as {"summary": ..., "details": ...}; the embedded halves keep
// field access flat in code.
type Outcome struct {
	Summary `json:"summary"`
	Details `json:"details"`
}

// applyParsed spreads parse results across the two halves.
func (o *Outcome) applyParsed(p Parsed) {
	o.TotalTests = p.TotalTests
	o.PassedTests = p.PassedTests
	o.FailedTests = p.FailedTests
	o.SummaryLine = p.SummaryLine
	o.Failures = p.Failures
}

// Runner runs pytest for staged solutions.
type Runner struct {
	Python       string
	TestCasesDir string
	Timeout      time.Duration
	Log          *zap.Logger
}

// TestFile returns the test case path for a problem id and whether it
// exists. The naming convention is test_problem<id>.py.
func (r *Runner) TestFile(problemID string) (string, bool) {
	path := filepath.Join(r.TestCasesDir, "test_problem"+problemID+".py")
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	return path, true
}

// Run executes the tests for one problem. The solution path is handed to
// the tests via STUDENT_SOLUTION_PATH; the workspace is the working
// directory so relative data reads resolve. The child is killed when the
// timeout or the caller's context expires, and a timeout is an outcome,
// not an error.
func (r *Runner) Run(ctx context.Context, problemID, solutionPath, workDir string) *Outcome {
	testFile, ok := r.TestFile(problemID)
	if !ok {
		r.Log.Warn("no test file for problem",
			zap.String("problem", problemID),
			zap.String("expected", testFile))
		return &Outcome{Summary: Summary{Status: StatusNoTestFile}}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Python, "-m", "pytest", "-v", testFile)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "STUDENT_SOLUTION_PATH="+solutionPath)
	// Orphaned grandchildren of a killed pytest can hold the output pipes
	// open; don't let them stall Wait past the kill.
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := &Outcome{
		Summary: Summary{DurationSeconds: time.Since(start).Seconds()},
		Details: Details{Output: stdout.String(), ErrorOutput: stderr.String()},
	}

	if runCtx.Err() == context.DeadlineExceeded {
		out.Status = StatusTimeout
		out.ExitCode = timeoutExitCode
		out.applyParsed(ParseOutput(out.Output))
		r.Log.Warn("test run timed out",
			zap.String("problem", problemID),
			zap.Duration("timeout", r.Timeout))
		return out
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// pytest never started: missing interpreter, bad permissions.
			out.Status = StatusExecutionError
			if out.ErrorOutput == "" {
				out.ErrorOutput = err.Error()
			} else {
				out.ErrorOutput += "\n" + err.Error()
			}
			return out
		}
		out.ExitCode = exitErr.ExitCode()
	}

	out.Status = StatusCompleted
	out.Passed = out.ExitCode == 0
	out.applyParsed(ParseOutput(out.Output))
	r.Log.Info("test run finished",
		zap.String("problem", problemID),
		zap.Bool("passed", out.Passed),
		zap.Int("total", out.TotalTests),
		zap.Int("failed", out.FailedTests))
	return out
}

// CopyDataFiles copies instructor data files (anything in the test-cases
// dir without a test_ prefix and not a .py file) into the workspace so
// tests can read them relative to the working directory.
func (r *Runner) CopyDataFiles(workDir string) error {
	entries, err := os.ReadDir(r.TestCasesDir)
	if err != nil {
		return fmt.Errorf("reading test cases dir %s: %w", r.TestCasesDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "test_") || strings.HasSuffix(name, ".py") {
			continue
		}
		src := filepath.Join(r.TestCasesDir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading data file %s: %w", src, err)
		}
		if err := os.WriteFile(filepath.Join(workDir, name), data, 0o644); err != nil {
			return fmt.Errorf("copying data file %s: %w", name, err)
		}
		r.Log.Debug("copied data file", zap.String("file", name))
	}
	return nil
}
