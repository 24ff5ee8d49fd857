package llm

import (
	"fmt"
	"os"
	"strings"
)

// ParseEnvFile reads a dotenv-style file into a map. Blank lines and
// comments are skipped, "export " prefixes are dropped, and matching
// single or double quotes around values are stripped.
func ParseEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	vars := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || s[0] == '#' {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		eqIdx := strings.IndexByte(s, '=')
		if eqIdx <= 0 {
			continue
		}
		key := strings.TrimSpace(s[:eqIdx])
		val := stripQuotes(strings.TrimSpace(s[eqIdx+1:]))
		vars[key] = val
	}
	return vars, nil
}

// LoadEnv applies the file's variables to the process environment
// without clobbering variables that are already set.
func LoadEnv(path string) error {
	vars, err := ParseEnvFile(path)
	if err != nil {
		return err
	}
	for key, val := range vars {
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, val); err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
		}
	}
	return nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
