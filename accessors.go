package plotrc

import (
	"github.com/dshills/plotrc/registry"
)

// Typed accessors over Get. Values are stored in canonical form per
// setting type, so a type mismatch means the caller asked for the
// wrong type, reported as *TypeError.

// GetString returns a string setting.
func (s *Store) GetString(key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", &TypeError{Key: key, Expected: "string", Actual: typeName(v)}
	}
	return str, nil
}

// GetInt returns an integer setting.
func (s *Store) GetInt(key string) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, &TypeError{Key: key, Expected: "int", Actual: typeName(v)}
	}
	return n, nil
}

// GetFloat returns a numeric setting. Integer settings convert.
func (s *Store) GetFloat(key string) (float64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	default:
		return 0, &TypeError{Key: key, Expected: "float64", Actual: typeName(v)}
	}
}

// GetBool returns a boolean setting.
func (s *Store) GetBool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Key: key, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetStrings returns a string-list setting.
func (s *Store) GetStrings(key string) ([]string, error) {
	v, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]string)
	if !ok {
		return nil, &TypeError{Key: key, Expected: "[]string", Actual: typeName(v)}
	}
	return append([]string(nil), list...), nil
}

// GetColorHex returns a color setting resolved to #rrggbb form.
// ok is false when the color is "none".
func (s *Store) GetColorHex(key string) (hex string, ok bool, err error) {
	v, err := s.GetString(key)
	if err != nil {
		return "", false, err
	}
	hex, ok = registry.ColorHex(v)
	return hex, ok, nil
}

// typeName returns the canonical type name for error messages.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}
