package llm_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marklab/marksman/internal/llm"
)

func TestParseEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# secrets
OPENAI_API_KEY=sk-abc123
export EXTRA_VAR="quoted value"
SINGLE='single quoted'
SPACED = padded

=nokey
MALFORMED
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	vars, err := llm.ParseEnvFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"OPENAI_API_KEY": "sk-abc123",
		"EXTRA_VAR":      "quoted value",
		"SINGLE":         "single quoted",
		"SPACED":         "padded",
	}
	if len(vars) != len(want) {
		t.Errorf("got %d vars, want %d: %v", len(vars), len(want), vars)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s = %q, want %q", k, vars[k], v)
		}
	}
}

func TestParseEnvFileMissing(t *testing.T) {
	_, err := llm.ParseEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LOADENV_SET=from-file\nLOADENV_KEPT=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOADENV_SET", "")
	t.Setenv("LOADENV_KEPT", "from-env")

	if err := llm.LoadEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("LOADENV_SET"); got != "from-file" {
		t.Errorf("LOADENV_SET = %q", got)
	}
	if got := os.Getenv("LOADENV_KEPT"); got != "from-env" {
		t.Errorf("LOADENV_KEPT = %q", got)
	}
}
