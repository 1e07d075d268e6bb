// Package layer provides configuration layer management for plotrc.
//
// A store's value for a key is resolved by walking layers from highest
// to lowest priority: override frames first, then environment, then the
// user layer, then built-in defaults. Values are flat maps keyed by the
// dot-qualified setting name.
package layer

import (
	"time"
)

// Layer is a single source of setting values.
type Layer struct {
	// Name identifies the layer (e.g., "user", "defaults").
	Name string

	// Priority determines lookup order (higher wins).
	Priority int

	// Source indicates where this layer was loaded from.
	Source Source

	// Values holds the layer's settings keyed by dotted name.
	Values map[string]any

	// ModTime is when the layer was last replaced or mutated.
	ModTime time.Time

	// ReadOnly prevents modifications to this layer.
	ReadOnly bool
}

// New creates an empty layer.
func New(name string, source Source, priority int) *Layer {
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: priority,
		Values:   make(map[string]any),
		ModTime:  time.Now(),
	}
}

// NewWithValues creates a layer with initial values.
func NewWithValues(name string, source Source, priority int, values map[string]any) *Layer {
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: priority,
		Values:   values,
		ModTime:  time.Now(),
	}
}

// Source indicates where a layer's values came from.
type Source uint8

const (
	// SourceBuiltin represents the built-in default table.
	SourceBuiltin Source = iota
	// SourceUser represents values applied by Set and Load.
	SourceUser
	// SourceEnv represents environment variables.
	SourceEnv
	// SourceOverride represents a scoped override frame.
	SourceOverride
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceUser:
		return "user"
	case SourceEnv:
		return "environment"
	case SourceOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Standard priority levels. Override frames always sit above every
// base layer regardless of these values.
const (
	// PriorityBuiltin is the lowest priority, for built-in defaults.
	PriorityBuiltin = 0

	// PriorityUser is for values applied by Set and Load.
	PriorityUser = 100

	// PriorityEnv is for environment variable values.
	PriorityEnv = 500
)

// cloneValues shallow-copies a value map. Stored values are treated as
// immutable once normalized; list values are copied on the way in.
func cloneValues(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
