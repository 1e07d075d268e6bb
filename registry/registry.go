package registry

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by registry operations.
var (
	// ErrAlreadyRegistered is returned for duplicate setting keys.
	ErrAlreadyRegistered = errors.New("setting already registered")

	// ErrUnknownChild is returned when a derivation names an
	// unregistered child key.
	ErrUnknownChild = errors.New("derivation references unregistered setting")

	// ErrDerivationCycle is returned when child derivations form a cycle.
	ErrDerivationCycle = errors.New("derivation cycle detected")
)

// Registry maintains all known setting definitions and provides
// validated access to setting values.
type Registry struct {
	settings   map[string]*Setting
	categories map[string][]*Setting // Settings grouped by category
}

// New creates an empty settings registry.
func New() *Registry {
	return &Registry{
		settings:   make(map[string]*Setting),
		categories: make(map[string][]*Setting),
	}
}

// NewWithDefaults creates a registry populated with the built-in rc
// setting table. The table is known-good, so graph validation panics
// instead of returning an error.
func NewWithDefaults() *Registry {
	r := New()
	registerDefaults(r)
	if err := r.Validate(); err != nil {
		panic(err)
	}
	return r
}

// Register adds a setting definition to the registry.
// Returns an error if a setting with the same key already exists or the
// default value fails the setting's own validation.
func (r *Registry) Register(setting Setting) error {
	if _, exists := r.settings[setting.Key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, setting.Key)
	}

	norm, err := setting.Normalize(setting.Default)
	if err != nil {
		return fmt.Errorf("default for %s: %w", setting.Key, err)
	}
	setting.Default = norm

	s := &setting
	r.settings[setting.Key] = s
	r.categories[setting.Category()] = append(r.categories[setting.Category()], s)
	return nil
}

// MustRegister registers a setting and panics on error.
// Useful for registering built-in settings at init time.
func (r *Registry) MustRegister(setting Setting) {
	if err := r.Register(setting); err != nil {
		panic(err)
	}
}

// Validate checks the derivation graph: every child key must be
// registered and the graph must be acyclic. Call once after all
// registrations, before the registry is used.
func (r *Registry) Validate() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.settings))

	var visit func(key string) error
	visit = func(key string) error {
		switch state[key] {
		case visiting:
			return fmt.Errorf("%w: involving %s", ErrDerivationCycle, key)
		case done:
			return nil
		}
		state[key] = visiting
		for _, d := range r.settings[key].Children {
			if _, ok := r.settings[d.Key]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrUnknownChild, key, d.Key)
			}
			if err := visit(d.Key); err != nil {
				return err
			}
		}
		state[key] = done
		return nil
	}

	for key := range r.settings {
		if err := visit(key); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the setting definition for the given key.
// Returns nil if the setting is not registered.
func (r *Registry) Get(key string) *Setting {
	return r.settings[key]
}

// Has checks if a setting is registered.
func (r *Registry) Has(key string) bool {
	_, exists := r.settings[key]
	return exists
}

// All returns all registered settings sorted by key.
func (r *Registry) All() []*Setting {
	result := make([]*Setting, 0, len(r.settings))
	for _, s := range r.settings {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// Keys returns all registered keys sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.settings))
	for key := range r.settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Category returns all settings in a given category (e.g., "grid"),
// sorted by key.
func (r *Registry) Category(name string) []*Setting {
	settings := r.categories[name]
	result := make([]*Setting, len(settings))
	copy(result, settings)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// Categories returns all category names sorted.
func (r *Registry) Categories() []string {
	result := make([]string, 0, len(r.categories))
	for name := range r.categories {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Default returns the default value for a setting.
// Returns nil if the setting is not registered.
func (r *Registry) Default(key string) any {
	if s, ok := r.settings[key]; ok {
		return s.Default
	}
	return nil
}

// Defaults returns a map of all default values.
func (r *Registry) Defaults() map[string]any {
	result := make(map[string]any, len(r.settings))
	for key, s := range r.settings {
		result[key] = s.Default
	}
	return result
}

// Derive computes the transitive child closure for a new parent value.
// The returned map holds every child key with its re-derived value, in
// canonical form. A derived value failing its own setting's validation
// is a bug in the registration table; Derive panics in that case.
//
// The registry graph is validated acyclic, so the walk terminates.
func (r *Registry) Derive(key string, value any) map[string]any {
	return r.DeriveExcluding(key, value, nil)
}

// DeriveExcluding is Derive with a set of suppressed keys: an excluded
// child is neither written nor walked through. Batch application uses
// this so an explicitly assigned child keeps its value and reroots its
// own subtree's derivation.
func (r *Registry) DeriveExcluding(key string, value any, exclude map[string]bool) map[string]any {
	derived := make(map[string]any)
	r.deriveInto(key, value, exclude, derived)
	if len(derived) == 0 {
		return nil
	}
	return derived
}

func (r *Registry) deriveInto(key string, value any, exclude map[string]bool, out map[string]any) {
	s := r.settings[key]
	if s == nil {
		return
	}
	for _, d := range s.Children {
		if exclude[d.Key] {
			continue
		}
		child := r.settings[d.Key]
		raw := d.Derive(value)
		norm, err := child.Normalize(raw)
		if err != nil {
			panic(fmt.Sprintf("registry: derivation %s -> %s produced invalid value %v: %v",
				key, d.Key, raw, err))
		}
		out[d.Key] = norm
		r.deriveInto(d.Key, norm, exclude, out)
	}
}
