package loader

import (
	"os"
	"strings"
)

// EnvLoader loads settings from environment variables.
//
// A variable PLOTRC_GRID_LABELPAD=6 maps to the key "grid.labelpad":
// the prefix is stripped, the rest lowercased, and underscores become
// dots. Values are parsed with the same scalar rules as rc files.
type EnvLoader struct {
	prefix string
}

// NewEnvLoader creates an environment loader. The prefix is given
// without the trailing underscore (e.g., "PLOTRC").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix + "_"}
}

// Load scans the environment and returns the discovered entries.
// Unknown keys are included; the store decides whether to reject or
// skip them.
func (l *EnvLoader) Load() []Entry {
	return l.loadFrom(os.Environ())
}

func (l *EnvLoader) loadFrom(environ []string) []Entry {
	var entries []Entry
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, l.prefix)
		if rest == "" {
			continue
		}
		key := strings.ReplaceAll(strings.ToLower(rest), "_", ".")

		parsed, err := parseValue(strings.TrimSpace(value))
		if err != nil {
			// Empty or malformed values fall back to the raw string.
			parsed = value
		}
		entries = append(entries, Entry{Key: key, Value: parsed})
	}
	return entries
}
