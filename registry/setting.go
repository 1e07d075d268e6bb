// Package registry provides the settings registry for plotrc.
//
// The registry maintains definitions of all known rc settings with their
// types, defaults, validation rules, and child derivation rules. It
// provides validated, normalized access to setting values.
package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// Setting defines an rc setting with its metadata.
type Setting struct {
	// Key is the dot-qualified setting name (e.g., "grid.labelpad").
	Key string

	// Type is the setting's data type.
	Type Type

	// Default is the default value. It must itself pass validation.
	Default any

	// Description is human-readable documentation.
	Description string

	// Enum lists allowed values for enum types.
	Enum []string

	// Minimum for numeric types (nil means no minimum).
	Minimum *float64

	// Maximum for numeric types (nil means no maximum).
	Maximum *float64

	// Pattern for string validation (regex).
	Pattern string

	// Children are settings re-derived whenever this setting changes.
	// Each derivation is a pure function of this setting's new value.
	Children []Derivation

	// compiledPattern is the compiled regex pattern (lazily initialized).
	compiledPattern *regexp.Regexp
}

// Derivation re-derives a child setting from its parent's new value.
type Derivation struct {
	// Key is the child setting's key.
	Key string

	// Derive computes the child's new value from the parent's new value.
	// The result must pass the child setting's own validation; a
	// derivation that produces an invalid value is a bug in the
	// registration table, not a user error.
	Derive func(parent any) any
}

// Normalize validates a value against the setting and returns it in
// canonical form (ints as int, floats as float64, lists as []string).
// The returned error describes why the value was rejected; use Accepts
// for the accepted form.
func (s *Setting) Normalize(value any) (any, error) {
	switch s.Type {
	case TypeString:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		if s.Pattern != "" {
			if err := s.matchPattern(v); err != nil {
				return nil, err
			}
		}
		return v, nil

	case TypeInt:
		v, ok := toInt(value)
		if !ok {
			return nil, fmt.Errorf("expected integer, got %T", value)
		}
		if err := s.checkRange(float64(v), value); err != nil {
			return nil, err
		}
		return v, nil

	case TypeFloat:
		v, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", value)
		}
		if err := s.checkRange(v, value); err != nil {
			return nil, err
		}
		return v, nil

	case TypeBool:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", value)
		}
		return v, nil

	case TypeStringList:
		switch v := value.(type) {
		case []string:
			if len(v) == 0 {
				return nil, fmt.Errorf("list must not be empty")
			}
			return append([]string(nil), v...), nil
		case string:
			// A bare scalar is a one-element list.
			return []string{v}, nil
		case []any:
			if len(v) == 0 {
				return nil, fmt.Errorf("list must not be empty")
			}
			out := make([]string, len(v))
			for i, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected list of strings, got %T element", item)
				}
				out[i] = str
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected list of strings, got %T", value)
		}

	case TypeColor:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected color string, got %T", value)
		}
		norm, err := normalizeColor(v)
		if err != nil {
			return nil, err
		}
		return norm, nil

	case TypeEnum:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		for _, allowed := range s.Enum {
			if v == allowed {
				return v, nil
			}
		}
		return nil, fmt.Errorf("value %q is not one of %s", v, strings.Join(s.Enum, ", "))

	default:
		return nil, fmt.Errorf("unknown setting type %d", s.Type)
	}
}

// Accepts describes the accepted type and range for error messages.
func (s *Setting) Accepts() string {
	switch s.Type {
	case TypeInt, TypeFloat:
		desc := s.Type.String()
		switch {
		case s.Minimum != nil && s.Maximum != nil:
			desc += fmt.Sprintf(" in [%v, %v]", *s.Minimum, *s.Maximum)
		case s.Minimum != nil:
			desc += fmt.Sprintf(" >= %v", *s.Minimum)
		case s.Maximum != nil:
			desc += fmt.Sprintf(" <= %v", *s.Maximum)
		}
		return desc
	case TypeEnum:
		return "one of: " + strings.Join(s.Enum, ", ")
	case TypeColor:
		return "hex color (#rgb or #rrggbb) or named color"
	case TypeString:
		if s.Pattern != "" {
			return fmt.Sprintf("string matching %s", s.Pattern)
		}
		return "string"
	default:
		return s.Type.String()
	}
}

// Category returns the setting's category (first dotted segment).
func (s *Setting) Category() string {
	return CategoryOf(s.Key)
}

// CategoryOf extracts the category prefix from a dotted key.
func CategoryOf(key string) string {
	parts := strings.SplitN(key, ".", 2)
	return parts[0]
}

func (s *Setting) checkRange(f float64, orig any) error {
	if s.Minimum != nil && f < *s.Minimum {
		return fmt.Errorf("value %v is less than minimum %v", orig, *s.Minimum)
	}
	if s.Maximum != nil && f > *s.Maximum {
		return fmt.Errorf("value %v is greater than maximum %v", orig, *s.Maximum)
	}
	return nil
}

func (s *Setting) matchPattern(v string) error {
	if s.compiledPattern == nil {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		s.compiledPattern = re
	}
	if !s.compiledPattern.MatchString(v) {
		return fmt.Errorf("value %q does not match pattern %s", v, s.Pattern)
	}
	return nil
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Type represents the data type of a setting.
type Type uint8

const (
	// TypeString represents a free-form string value.
	TypeString Type = iota
	// TypeInt represents an integer value.
	TypeInt
	// TypeFloat represents a floating-point value.
	TypeFloat
	// TypeBool represents a boolean value.
	TypeBool
	// TypeStringList represents a list of strings.
	TypeStringList
	// TypeColor represents a color (hex or named).
	TypeColor
	// TypeEnum represents a string from a fixed set.
	TypeEnum
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeStringList:
		return "string list"
	case TypeColor:
		return "color"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// MinValue creates a pointer to a float64 for use as Minimum.
func MinValue(v float64) *float64 {
	return &v
}

// MaxValue creates a pointer to a float64 for use as Maximum.
func MaxValue(v float64) *float64 {
	return &v
}
