// Package watcher provides file watching for rc file live reload.
//
// The watcher monitors individual settings files and emits a debounced
// event when one changes. Editors typically replace files on save, so
// the parent directory is watched and events are filtered down to the
// registered files.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("file is already being watched")
)

// Event represents a change to a watched file.
type Event struct {
	// Path is the absolute path of the changed file.
	Path string

	// Removed reports whether the file was deleted rather than
	// written.
	Removed bool

	// Time is when the (last coalesced) change was observed.
	Time time.Time
}

// Handler is called with debounced file change events.
type Handler func(event Event)

// Watcher monitors settings files for changes.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	debounce time.Duration

	// files maps watched absolute file paths to their pending
	// debounce timer, if any.
	files map[string]*time.Timer

	// dirs counts watched parent directories.
	dirs map[string]int

	handlers []Handler

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window for rapid successive writes.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher. Close must be called to release resources.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: 100 * time.Millisecond,
		files:    make(map[string]*time.Timer),
		dirs:     make(map[string]int),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// OnChange registers a handler for debounced change events.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Watch starts watching a settings file.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.files[absPath]; ok {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[absPath] = nil
	return nil
}

// Unwatch stops watching a file.
func (w *Watcher) Unwatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	timer, ok := w.files[absPath]
	if !ok {
		return nil
	}
	if timer != nil {
		timer.Stop()
	}
	delete(w.files, absPath)

	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fsw.Remove(dir)
	}
	return nil
}

// WatchedFiles returns the watched file paths.
func (w *Watcher) WatchedFiles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	return paths
}

// Close stops the watcher. Pending debounce timers are cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, timer := range w.files {
		if timer != nil {
			timer.Stop()
		}
	}
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.closedWg.Wait()
	return err
}

// processLoop consumes fsnotify events and debounces them per file.
func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// fsnotify errors are transient for our use; the next
			// successful event re-syncs state.
		}
	}
}

// handleFSEvent schedules a debounced emit for registered files.
func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	if !fsEvent.Op.Has(fsnotify.Write) &&
		!fsEvent.Op.Has(fsnotify.Create) &&
		!fsEvent.Op.Has(fsnotify.Rename) &&
		!fsEvent.Op.Has(fsnotify.Remove) {
		return
	}

	absPath, err := filepath.Abs(fsEvent.Name)
	if err != nil {
		return
	}

	removed := fsEvent.Op.Has(fsnotify.Remove)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if _, ok := w.files[absPath]; !ok {
		return
	}

	// Coalesce rapid changes: restart the timer on every event.
	if timer := w.files[absPath]; timer != nil {
		timer.Stop()
	}
	w.files[absPath] = time.AfterFunc(w.debounce, func() {
		w.emit(Event{Path: absPath, Removed: removed, Time: time.Now()})
	})
}

// emit calls all handlers. A panicking handler must not kill the
// timer goroutine.
func (w *Watcher) emit(event Event) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.files[event.Path] = nil
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, handler := range handlers {
		func() {
			defer func() { _ = recover() }()
			handler(event)
		}()
	}
}
