// Package notify provides change notification for rc setting updates.
//
// Components that style rendered output subscribe to the store and
// receive callbacks when settings change, so cached derived state
// (colormaps, tick geometry) can be invalidated.
package notify

import (
	"sync"
)

// ChangeType represents the kind of settings change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeRestore indicates a scoped override was restored.
	ChangeRestore

	// ChangeReload indicates a batch of settings was replaced (Load).
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeRestore:
		return "restore"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents one settings change event.
type Change struct {
	// Key is the dot-qualified setting key. Empty for reload events.
	Key string

	// Type is the kind of change.
	Type ChangeType

	// Old is the previous effective value (may be nil).
	Old any

	// New is the new effective value (nil for restores to default).
	New any

	// Source identifies where the change came from ("set", "override",
	// "load", a file path for reloads).
	Source string
}

// Observer is called when a settings change occurs.
type Observer func(change Change)

// Subscription represents an active observer registration.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages settings change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	// Observers that receive all changes
	global map[uint64]Observer

	// Observers scoped to a key or category prefix
	scoped map[string]map[uint64]Observer

	nextID uint64
	closed bool
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		global: make(map[uint64]Observer),
		scoped: make(map[string]map[uint64]Observer),
	}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.global[n.nextID] = observer
	return &Subscription{id: n.nextID, notifier: n}
}

// SubscribeKey registers an observer for a key or category prefix.
// Subscribing to "grid" receives changes to every grid.* setting.
func (n *Notifier) SubscribeKey(key string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	if n.scoped[key] == nil {
		n.scoped[key] = make(map[uint64]Observer)
	}
	n.scoped[key][n.nextID] = observer
	return &Subscription{id: n.nextID, notifier: n}
}

// Notify delivers a change to all matching observers. Observers run
// on the caller's goroutine, outside the notifier lock.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}

	var observers []Observer
	for _, obs := range n.global {
		observers = append(observers, obs)
	}
	if change.Key != "" {
		for scope, scopedObs := range n.scoped {
			if scope == change.Key || isPrefixScope(scope, change.Key) {
				for _, obs := range scopedObs {
					observers = append(observers, obs)
				}
			}
		}
	} else {
		// Reload events reach every scoped observer.
		for _, scopedObs := range n.scoped {
			for _, obs := range scopedObs {
				observers = append(observers, obs)
			}
		}
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

// Close drops all subscriptions; further notifications are discarded.
// Safe to call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.global = make(map[uint64]Observer)
	n.scoped = make(map[string]map[uint64]Observer)
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.global, id)
	for scope, observers := range n.scoped {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.scoped, scope)
		}
	}
}

// isPrefixScope checks whether scope is a category prefix of key,
// e.g. "grid" covers "grid.labelpad".
func isPrefixScope(scope, key string) bool {
	return len(key) > len(scope) && key[:len(scope)] == scope && key[len(scope)] == '.'
}

// Batch collects changes and delivers them as a group, so a Load can
// notify once per key after the whole batch is applied.
type Batch struct {
	notifier *Notifier
	changes  []Change
}

// NewBatch creates a batch bound to the notifier.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Set appends a set change to the batch.
func (b *Batch) Set(key string, oldValue, newValue any, source string) {
	b.changes = append(b.changes, Change{
		Key: key, Type: ChangeSet, Old: oldValue, New: newValue, Source: source,
	})
}

// Len returns the number of pending changes.
func (b *Batch) Len() int {
	return len(b.changes)
}

// Commit delivers the batched changes in order and clears the batch.
func (b *Batch) Commit() {
	changes := b.changes
	b.changes = nil
	for _, change := range changes {
		b.notifier.Notify(change)
	}
}
