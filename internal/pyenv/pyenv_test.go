package pyenv_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/marklab/marksman/internal/pyenv"
)

func TestImports(t *testing.T) {
	source := `import pandas as pd
from sklearn.model_selection import train_test_split
import os
import numpy
from . import helpers
    import indented_ignored
x = "import not_an_import"
from matplotlib import pyplot
import os.path
`
	got := pyenv.Imports(source)
	want := []string{"matplotlib", "numpy", "os", "pandas", "sklearn"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Imports = %v, want %v", got, want)
	}
}

func TestIsStdlib(t *testing.T) {
	for _, name := range []string{"os", "sys", "json", "collections", "__future__", "zoneinfo"} {
		if !pyenv.IsStdlib(name) {
			t.Errorf("expected %q to be stdlib", name)
		}
	}
	for _, name := range []string{"pandas", "numpy", "sklearn", "requests"} {
		if pyenv.IsStdlib(name) {
			t.Errorf("expected %q to be third-party", name)
		}
	}
}

func TestThirdParty(t *testing.T) {
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "helpers.py"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(workDir, "mypkg"), 0o755); err != nil {
		t.Fatal(err)
	}

	imports := []string{"helpers", "json", "mypkg", "numpy", "pandas"}
	got := pyenv.ThirdParty(imports, workDir)
	want := []string{"numpy", "pandas"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ThirdParty = %v, want %v", got, want)
	}
}

func TestMissingWithFakeInterpreter(t *testing.T) {
	r := &pyenv.Resolver{Python: "/nonexistent/python", Log: zaptest.NewLogger(t)}
	missing := r.Missing(context.Background(), []string{"anything"})
	if len(missing) != 1 {
		t.Errorf("probe against missing interpreter should report the module missing, got %v", missing)
	}
}

func TestResolveNoCandidates(t *testing.T) {
	// Pure-stdlib source must not touch the interpreter at all.
	r := &pyenv.Resolver{Python: "/nonexistent/python", Log: zaptest.NewLogger(t)}
	r.Resolve(context.Background(), t.TempDir(), "import os\nimport json\n")
}
