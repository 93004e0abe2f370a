package config

import (
	"os"
	"strings"
)

// LoadDotEnv applies KEY=VALUE pairs from a local .env file to the
// process environment. Variables already set in the environment win,
// so a deployed container is never reconfigured by a stray file.
// Blank lines, comments and an optional "export " prefix are accepted.
func LoadDotEnv(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err // missing file is normal outside local dev
	}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if key == "" || os.Getenv(key) != "" {
			continue
		}
		os.Setenv(key, value)
	}
	return nil
}
