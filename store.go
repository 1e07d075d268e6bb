package plotrc

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/plotrc/layer"
	"github.com/dshills/plotrc/loader"
	"github.com/dshills/plotrc/notify"
	"github.com/dshills/plotrc/registry"
	"github.com/dshills/plotrc/watcher"
)

// Store is a validated, hierarchical rc settings store.
//
// Values resolve through layers: scoped override frames, then
// environment variables, then values applied by Set and Load, then the
// built-in defaults. A Store is an explicit object, not a process
// singleton; independent stores can coexist.
//
// Readers may run concurrently. Set, Override, Load, and Save assume
// cooperative use: callers wanting mixed concurrent writers must
// serialize externally.
type Store struct {
	mu sync.Mutex // serializes compound mutations

	reg      *registry.Registry
	layers   *layer.Manager
	notifier *notify.Notifier

	w *watcher.Watcher

	log       zerolog.Logger
	envPrefix string
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry uses a custom setting registry instead of the built-in
// default table. The registry's derivation graph is validated by New.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Store) {
		s.reg = reg
	}
}

// WithLogger sets the diagnostic logger. The default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithEnviron reads PREFIX_* environment variables into a read-only
// layer above the user layer. Unknown keys and invalid values are
// logged and skipped.
func WithEnviron(prefix string) Option {
	return func(s *Store) {
		s.envPrefix = prefix
	}
}

// New creates a Store with the built-in default table unless
// WithRegistry overrides it.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		notifier: notify.New(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.reg == nil {
		s.reg = registry.NewWithDefaults()
	} else if err := s.reg.Validate(); err != nil {
		return nil, err
	}

	s.layers = layer.NewManager()

	defaults := layer.NewWithValues("defaults", layer.SourceBuiltin, layer.PriorityBuiltin, s.reg.Defaults())
	defaults.ReadOnly = true
	s.layers.AddLayer(defaults)
	s.layers.AddLayer(layer.New("user", layer.SourceUser, layer.PriorityUser))

	if s.envPrefix != "" {
		s.layers.AddLayer(layer.NewWithValues("environment", layer.SourceEnv, layer.PriorityEnv, s.loadEnvironment()))
	}

	return s, nil
}

// Close stops the file watcher, if any, and drops all subscriptions.
func (s *Store) Close() {
	s.mu.Lock()
	w := s.w
	s.w = nil
	s.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
	s.notifier.Close()
}

// Registry returns the store's setting registry.
func (s *Store) Registry() *registry.Registry {
	return s.reg
}

// Get returns the active value for a key: the innermost override if one
// is in effect, else the persisted current value.
func (s *Store) Get(key string) (any, error) {
	if !s.reg.Has(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	v, _, _ := s.layers.Get(key)
	return v, nil
}

// Source reports which layer supplies the active value for a key.
func (s *Store) Source(key string) (layer.Source, error) {
	if !s.reg.Has(key) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	_, src, _ := s.layers.Get(key)
	return src, nil
}

// Set validates and applies a value, then re-derives every registered
// child of the key. A failed Set leaves the store untouched.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.normalizeBatch(map[string]any{key: value})
	if err != nil {
		return err
	}
	s.apply(batch, "set")
	return nil
}

// Override pushes scoped overrides onto the stack and returns a restore
// function. Values are validated like Set; children of overridden
// parents are re-derived into the same frame. The restore function is
// idempotent and must run when the scope exits:
//
//	restore, err := store.Override(map[string]any{"tick.len": 6.0})
//	if err != nil {
//	    return err
//	}
//	defer restore()
//
// Frames obey stack discipline; restoring an outer scope also clears
// frames pushed inside it.
func (s *Store) Override(values map[string]any) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, err := s.normalizeBatch(values)
	if err != nil {
		return nil, err
	}

	olds := make(map[string]any, len(frame))
	for k := range frame {
		olds[k], _, _ = s.layers.Get(k)
	}

	id := s.layers.PushFrame(frame)

	for k, v := range frame {
		s.notifier.Notify(notify.Change{
			Key: k, Type: notify.ChangeSet, Old: olds[k], New: v, Source: "override",
		})
	}

	var once sync.Once
	restore := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.layers.PopFrame(id) {
				return
			}
			for k := range frame {
				now, _, _ := s.layers.Get(k)
				s.notifier.Notify(notify.Change{
					Key: k, Type: notify.ChangeRestore, Old: frame[k], New: now, Source: "override",
				})
			}
		})
	}
	return restore, nil
}

// With runs fn with the given overrides in effect, restoring the prior
// values when fn returns, whether or not it fails.
func (s *Store) With(values map[string]any, fn func() error) error {
	restore, err := s.Override(values)
	if err != nil {
		return err
	}
	defer restore()
	return fn()
}

// Load reads an rc file and applies it as one batch. Every line is
// validated before any setting changes; a single bad line rejects the
// whole file, reported with its line number.
func (s *Store) Load(path string) error {
	entries, err := loader.NewRCLoader(path).Load()
	if err != nil {
		return err
	}
	return s.applyEntries(entries, path)
}

// LoadTOML reads a TOML settings file with the same transactional
// semantics as Load.
func (s *Store) LoadTOML(path string) error {
	entries, err := loader.NewTOMLLoader(path).Load()
	if err != nil {
		return err
	}
	return s.applyEntries(entries, path)
}

// Save writes every setting whose current value differs from its
// default, atomically, in a form Load reads back unchanged.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	changed := s.changedLocked()
	s.mu.Unlock()

	data := loader.EncodeRC(changed, "plotrc settings (values differing from defaults)")
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Changed returns the keys whose current value differs from the
// default, with their current values.
func (s *Store) Changed() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changedLocked()
}

// Category returns the active values for every setting in a category.
func (s *Store) Category(name string) (map[string]any, error) {
	settings := s.reg.Category(name)
	if len(settings) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	out := make(map[string]any, len(settings))
	for _, def := range settings {
		v, _, _ := s.layers.Get(def.Key)
		out[def.Key] = v
	}
	return out, nil
}

// SetCategory applies values to settings in one category, keyed by
// their short name (e.g. "labelpad" for grid). The batch is validated
// up front; one bad value rejects the whole batch.
func (s *Store) SetCategory(name string, values map[string]any) error {
	if len(s.reg.Category(name)) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}

	qualified := make(map[string]any, len(values))
	for short, v := range values {
		qualified[name+"."+short] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.normalizeBatch(qualified)
	if err != nil {
		return err
	}
	s.apply(batch, "set")
	return nil
}

// Subscribe registers an observer for all settings changes.
func (s *Store) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// SubscribeKey registers an observer for a key or category prefix.
func (s *Store) SubscribeKey(key string, observer notify.Observer) *notify.Subscription {
	return s.notifier.SubscribeKey(key, observer)
}

// Watch reloads the given settings file whenever it changes on disk.
// A failed reload keeps the current settings and logs the reason.
func (s *Store) Watch(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		w, err := watcher.New()
		if err != nil {
			return err
		}
		w.OnChange(s.handleFileChange)
		s.w = w
	}
	if err := s.w.Watch(path); err != nil {
		return err
	}
	s.log.Debug().Str("path", path).Msg("watching settings file")
	return nil
}

// Unwatch stops watching a settings file.
func (s *Store) Unwatch(path string) error {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Unwatch(path)
}

// handleFileChange re-loads a watched file after a debounced change.
func (s *Store) handleFileChange(event watcher.Event) {
	if event.Removed {
		s.log.Warn().Str("path", event.Path).Msg("watched settings file removed, keeping current settings")
		return
	}

	var err error
	if strings.EqualFold(filepath.Ext(event.Path), ".toml") {
		err = s.LoadTOML(event.Path)
	} else {
		err = s.Load(event.Path)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("path", event.Path).Msg("settings reload rejected, keeping current settings")
		return
	}
	s.log.Info().Str("path", event.Path).Msg("settings reloaded")
}

// normalizeBatch validates a group of raw values and expands it with
// re-derived children. Explicitly provided keys win over derivations.
// Returns an error without touching the store if anything is invalid.
func (s *Store) normalizeBatch(values map[string]any) (map[string]any, error) {
	explicit := make(map[string]any, len(values))
	for key, value := range values {
		def := s.reg.Get(key)
		if def == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		norm, err := def.Normalize(value)
		if err != nil {
			return nil, &InvalidValueError{
				Key: key, Value: value, Reason: err.Error(), Accepts: def.Accepts(),
			}
		}
		explicit[key] = norm
	}

	skip := make(map[string]bool, len(explicit))
	for key := range explicit {
		skip[key] = true
	}

	batch := make(map[string]any, len(explicit))
	for key, norm := range explicit {
		for childKey, childVal := range s.reg.DeriveExcluding(key, norm, skip) {
			batch[childKey] = childVal
		}
	}
	for key, norm := range explicit {
		batch[key] = norm
	}
	return batch, nil
}

// apply writes a validated batch to the user layer and notifies
// observers. Callers hold s.mu.
func (s *Store) apply(batch map[string]any, source string) {
	nb := s.notifier.NewBatch()
	for k, v := range batch {
		old, _, _ := s.layers.Get(k)
		if !valueEqual(old, v) {
			nb.Set(k, old, v, source)
		}
	}

	// Validation is complete; this is the single mutation point.
	if err := s.layers.SetBatch("user", batch); err != nil {
		// The user layer is created in New and never removed.
		panic(fmt.Sprintf("plotrc: user layer unavailable: %v", err))
	}

	nb.Commit()
}

// applyEntries validates parsed file entries and applies them as one
// batch. Any unknown key or invalid value rejects the entire file.
func (s *Store) applyEntries(entries []loader.Entry, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[string]any, len(entries))
	for _, e := range entries {
		def := s.reg.Get(e.Key)
		if def == nil {
			return &FormatError{
				Path: path, Line: e.Line,
				Message: fmt.Sprintf("unknown setting %q", e.Key),
				Err:     ErrUnknownKey,
			}
		}
		if _, err := def.Normalize(e.Value); err != nil {
			return &FormatError{
				Path: path, Line: e.Line,
				Message: fmt.Sprintf("invalid value for %s: %v (accepts %s)", e.Key, err, def.Accepts()),
				Err:     ErrInvalidValue,
			}
		}
		values[e.Key] = e.Value
	}

	batch, err := s.normalizeBatch(values)
	if err != nil {
		return err
	}
	s.apply(batch, "load")
	s.notifier.Notify(notify.Change{Type: notify.ChangeReload, Source: path})
	return nil
}

// loadEnvironment builds the environment layer values, skipping
// anything that does not validate.
func (s *Store) loadEnvironment() map[string]any {
	values := make(map[string]any)
	for _, e := range loader.NewEnvLoader(s.envPrefix).Load() {
		def := s.reg.Get(e.Key)
		if def == nil {
			s.log.Debug().Str("key", e.Key).Msg("ignoring unknown environment setting")
			continue
		}
		norm, err := def.Normalize(e.Value)
		if err != nil {
			s.log.Warn().Str("key", e.Key).Err(err).Msg("ignoring invalid environment setting")
			continue
		}
		values[e.Key] = norm
	}
	return values
}

// changedLocked computes the changed-set. Callers hold s.mu.
func (s *Store) changedLocked() map[string]any {
	out := make(map[string]any)
	for k, v := range s.layers.LayerValues("user") {
		if !valueEqual(v, s.reg.Default(k)) {
			out[k] = v
		}
	}
	return out
}

// valueEqual compares canonical setting values, including lists.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
