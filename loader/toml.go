package loader

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// TOMLLoader loads settings from TOML files. Nested tables are
// flattened to dot-qualified keys, so
//
//	[grid]
//	labelpad = 4.0
//
// yields the entry "grid.labelpad".
type TOMLLoader struct {
	fs   FileSystem
	path string
}

// NewTOMLLoader creates a TOML loader for the given path.
func NewTOMLLoader(path string) *TOMLLoader {
	return &TOMLLoader{fs: DefaultFS(), path: path}
}

// NewTOMLLoaderWithFS creates a TOML loader with a custom file system.
func NewTOMLLoaderWithFS(fsys FileSystem, path string) *TOMLLoader {
	return &TOMLLoader{fs: fsys, path: path}
}

// Load reads and parses the configured file.
func (l *TOMLLoader) Load() ([]Entry, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads and parses a specific file.
func (l *TOMLLoader) LoadFrom(path string) ([]Entry, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading toml file %s: %w", path, err)
	}
	return ParseTOML(data, path)
}

// ParseTOML parses TOML text into flattened entries.
func ParseTOML(data []byte, path string) ([]Entry, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		ferr := &FormatError{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			line, _ := derr.Position()
			ferr.Line = line
		}
		return nil, ferr
	}

	var entries []Entry
	flatten("", raw, &entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// flatten walks nested tables, producing dot-qualified entries with
// canonical scalar types (TOML integers arrive as int64).
func flatten(prefix string, m map[string]any, out *[]Entry) {
	for key, val := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := val.(type) {
		case map[string]any:
			flatten(full, v, out)
		case int64:
			*out = append(*out, Entry{Key: full, Value: int(v)})
		default:
			*out = append(*out, Entry{Key: full, Value: v})
		}
	}
}

// EncodeTOML renders flat dotted values as TOML grouped by category.
func EncodeTOML(values map[string]any) ([]byte, error) {
	nested := make(map[string]any)
	for key, val := range values {
		parts := strings.Split(key, ".")
		node := nested
		for _, part := range parts[:len(parts)-1] {
			next, ok := node[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[part] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = val
	}
	return toml.Marshal(nested)
}
