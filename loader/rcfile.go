package loader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Entry is one parsed assignment from an rc file.
type Entry struct {
	// Key is the dot-qualified setting name.
	Key string

	// Value is the parsed value: bool, int, float64, string, or
	// []string for comma-separated lists.
	Value any

	// Line is the 1-based source line, 0 when not file-backed.
	Line int
}

// keyPattern matches category-qualified dotted keys. Keys are
// case-sensitive.
var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// RCLoader loads settings from rc-format files.
type RCLoader struct {
	fs   FileSystem
	path string
}

// NewRCLoader creates an rc loader for the given path.
func NewRCLoader(path string) *RCLoader {
	return &RCLoader{fs: DefaultFS(), path: path}
}

// NewRCLoaderWithFS creates an rc loader with a custom file system.
func NewRCLoaderWithFS(fsys FileSystem, path string) *RCLoader {
	return &RCLoader{fs: fsys, path: path}
}

// Load reads and parses the configured file.
func (l *RCLoader) Load() ([]Entry, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads and parses a specific file.
func (l *RCLoader) LoadFrom(path string) ([]Entry, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rc file %s: %w", path, err)
	}
	return ParseRC(data, path)
}

// ParseRC parses rc-format text. Blank lines and lines starting with
// '#' are ignored; leading and trailing whitespace is trimmed. Each
// remaining line must be a "key = value" assignment. Parse errors
// carry the offending line number.
func ParseRC(data []byte, path string) ([]Entry, error) {
	var entries []Entry

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, rest, found := strings.Cut(line, "=")
		if !found {
			return nil, &FormatError{Path: path, Line: lineNo, Message: "expected 'key = value'"}
		}
		key = strings.TrimSpace(key)
		if !keyPattern.MatchString(key) {
			return nil, &FormatError{Path: path, Line: lineNo, Message: fmt.Sprintf("invalid key %q", key)}
		}

		value, err := parseValue(strings.TrimSpace(rest))
		if err != nil {
			return nil, &FormatError{Path: path, Line: lineNo, Message: err.Error(), Err: err}
		}

		entries = append(entries, Entry{Key: key, Value: value, Line: lineNo})
	}

	return entries, nil
}

// parseValue parses the text to the right of '='. A '#' outside quotes
// starts a trailing comment.
func parseValue(s string) (any, error) {
	if s == "" || strings.HasPrefix(s, "#") {
		return nil, fmt.Errorf("missing value")
	}

	if s[0] == '"' {
		str, rest, err := parseQuoted(s)
		if err != nil {
			return nil, err
		}
		rest = strings.TrimSpace(rest)
		switch {
		case rest == "" || strings.HasPrefix(rest, "#"):
			return str, nil
		case strings.HasPrefix(rest, ","):
			return parseList(s)
		default:
			return nil, fmt.Errorf("unexpected text after quoted value: %q", rest)
		}
	}

	// Strip trailing comment; quotes inside list items are handled by
	// parseList below.
	if idx := indexUnquoted(s, '#'); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
		if s == "" {
			return nil, fmt.Errorf("missing value")
		}
	}

	if indexUnquoted(s, ',') >= 0 {
		return parseList(s)
	}

	return parseScalar(s), nil
}

// parseScalar interprets a bare token: bool, int, float, else string.
func parseScalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// parseList splits a comma-separated list into strings, honoring
// quoted items.
func parseList(s string) ([]string, error) {
	var items []string
	for {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "#") {
			return nil, fmt.Errorf("empty list item")
		}

		var item string
		if s[0] == '"' {
			str, rest, err := parseQuoted(s)
			if err != nil {
				return nil, err
			}
			item = str
			s = strings.TrimSpace(rest)
		} else {
			idx := indexUnquoted(s, ',')
			hash := indexUnquoted(s, '#')
			if hash >= 0 && (idx < 0 || hash < idx) {
				idx = -1
				s = strings.TrimSpace(s[:hash])
			}
			if idx < 0 {
				item = strings.TrimSpace(s)
				if item == "" {
					return nil, fmt.Errorf("empty list item")
				}
				items = append(items, item)
				return items, nil
			}
			item = strings.TrimSpace(s[:idx])
			if item == "" {
				return nil, fmt.Errorf("empty list item")
			}
			s = s[idx:]
		}

		items = append(items, item)
		switch {
		case s == "" || strings.HasPrefix(s, "#"):
			return items, nil
		case strings.HasPrefix(s, ","):
			s = s[1:]
		default:
			return nil, fmt.Errorf("expected ',' in list, found %q", s)
		}
	}
}

// parseQuoted parses a leading double-quoted string with \" and \\
// escapes, returning the unquoted value and the remaining text.
func parseQuoted(s string) (string, string, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", "", fmt.Errorf("unterminated escape in quoted value")
			}
			i++
			switch s[i] {
			case '"', '\\':
				b.WriteByte(s[i])
			default:
				return "", "", fmt.Errorf("unsupported escape \\%c", s[i])
			}
		case '"':
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", "", fmt.Errorf("unterminated quoted value")
}

// indexUnquoted returns the index of the first c outside double quotes.
func indexUnquoted(s string, c byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && inQuote:
			i++
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == c && !inQuote:
			return i
		}
	}
	return -1
}

// EncodeValue serializes a value so that ParseRC reads it back equal.
// Strings that would be misread as another type, contain structural
// characters ('#', ',', '"', '='), or carry edge whitespace are quoted.
func EncodeValue(value any) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatFloat(v)
	case string:
		return encodeString(v)
	case []string:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = encodeString(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// EncodeRC renders entries as rc-format text, sorted by key, with an
// optional leading comment.
func EncodeRC(values map[string]any, header string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if header != "" {
		for _, line := range strings.Split(header, "\n") {
			b.WriteString("# ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(EncodeValue(values[k]))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// formatFloat renders a float with a decimal marker so it parses back
// as a float rather than an int.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// encodeString quotes a string when the bare form would be ambiguous
// or lossy.
func encodeString(s string) string {
	if needsQuoting(s) {
		var b strings.Builder
		b.WriteByte('"')
		for i := 0; i < len(s); i++ {
			if s[i] == '"' || s[i] == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(s[i])
		}
		b.WriteByte('"')
		return b.String()
	}
	return s
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	if strings.ContainsAny(s, "#,\"=\\\n") {
		return true
	}
	// Bare forms that would parse as another type.
	switch parseScalar(s).(type) {
	case string:
		return false
	default:
		return true
	}
}
