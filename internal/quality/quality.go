// Package quality runs configured style checkers (flake8, black, or
// anything argv-shaped) against staged code files and classifies their
// findings.
package quality

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/config"
)

// Result is one tool's verdict on one file.
type Result struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Output      string `json:"output"`
	HasIssues   bool   `json:"has_issues"`
	Warning     string `json:"warning,omitempty"`
}

// Runner executes the configured tool set. Tool binaries are looked up
// once at construction; a missing binary becomes a per-tool warning on
// every result instead of a per-file error.
type Runner struct {
	tools   []config.Tool
	missing map[string]string
	log     *zap.Logger
}

func NewRunner(tools []config.Tool, log *zap.Logger) *Runner {
	missing := make(map[string]string)
	for _, tool := range tools {
		bin := tool.Args[0]
		if _, err := exec.LookPath(bin); err != nil {
			missing[tool.Name] = bin + " is not installed or not in PATH; check skipped"
			log.Warn("quality tool unavailable", zap.String("tool", tool.Name), zap.String("binary", bin))
		}
	}
	return &Runner{tools: tools, missing: missing, log: log}
}

// Check runs every configured tool against filePath, keyed by tool name.
func (r *Runner) Check(ctx context.Context, filePath string) map[string]Result {
	results := make(map[string]Result, len(r.tools))
	for _, tool := range r.tools {
		results[tool.Name] = r.runTool(ctx, tool, filePath)
	}
	return results
}

func (r *Runner) runTool(ctx context.Context, tool config.Tool, filePath string) Result {
	res := Result{Name: tool.Name, Description: tool.Description}
	if warning, ok := r.missing[tool.Name]; ok {
		res.Warning = warning
		return res
	}

	argv := make([]string, len(tool.Args))
	for i, arg := range tool.Args {
		argv[i] = strings.ReplaceAll(arg, "{file}", filePath)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		res.Warning = "failed to run " + tool.Name + ": " + err.Error()
		return res
	}

	first, second := stdout, stderr
	if tool.PreferStderr {
		first, second = stderr, stdout
	}
	output := strings.TrimSpace(first.String())
	if output == "" {
		output = strings.TrimSpace(second.String())
	}

	if tool.CheckExitCode {
		res.HasIssues = err != nil
	} else {
		res.HasIssues = output != ""
	}
	if !res.HasIssues && tool.CleanText != "" {
		output = tool.CleanText
	}
	res.Output = output

	r.log.Debug("quality check finished",
		zap.String("tool", tool.Name),
		zap.String("file", filePath),
		zap.Bool("has_issues", res.HasIssues))
	return res
}
