// Package pyenv resolves third-party Python dependencies of staged student
// code so test runs do not fail on a missing import.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var importRe = regexp.MustCompile(`(?m)^(?:from|import)\s+([a-zA-Z0-9_.]+)`)

// Imports scans Python source for import statements at line starts and
// returns the top-level module names, deduplicated and sorted.
func Imports(source string) []string {
	seen := map[string]struct{}{}
	for _, m := range importRe.FindAllStringSubmatch(source, -1) {
		name, _, _ := strings.Cut(m[1], ".")
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ThirdParty filters imports down to names that are neither in the Python
// standard library nor satisfied by a local file or package directory in
// the workspace.
func ThirdParty(imports []string, workDir string) []string {
	var out []string
	for _, name := range imports {
		if IsStdlib(name) {
			continue
		}
		if localModule(workDir, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func localModule(workDir, name string) bool {
	if workDir == "" {
		return false
	}
	if _, err := os.Stat(filepath.Join(workDir, name+".py")); err == nil {
		return true
	}
	if info, err := os.Stat(filepath.Join(workDir, name)); err == nil && info.IsDir() {
		return true
	}
	return false
}

// Resolver probes and installs packages with a configured interpreter.
type Resolver struct {
	Python string
	Log    *zap.Logger
}

// Missing probes each name with `python -c "import <name>"` and returns
// the ones the interpreter cannot already import.
func (r *Resolver) Missing(ctx context.Context, names []string) []string {
	var missing []string
	for _, name := range names {
		cmd := exec.CommandContext(ctx, r.Python, "-c", "import "+name)
		if err := cmd.Run(); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Install runs one pip install for all names.
func (r *Resolver) Install(ctx context.Context, names []string) error {
	args := append([]string{"-m", "pip", "install"}, names...)
	cmd := exec.CommandContext(ctx, r.Python, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pip install: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Resolve scans source for imports and installs whatever the interpreter
// is missing. Failures are logged and swallowed: a package that will not
// install surfaces later as a test error for the affected problem, which
// is more useful than aborting the whole student.
func (r *Resolver) Resolve(ctx context.Context, workDir, source string) {
	candidates := ThirdParty(Imports(source), workDir)
	if len(candidates) == 0 {
		return
	}
	missing := r.Missing(ctx, candidates)
	if len(missing) == 0 {
		r.Log.Debug("all imports already satisfied", zap.Strings("imports", candidates))
		return
	}
	r.Log.Info("installing missing packages", zap.Strings("packages", missing))
	if err := r.Install(ctx, missing); err != nil {
		r.Log.Warn("package installation failed", zap.Error(err))
	}
}
