package layer

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Manager holds the base layers and the override frame stack and
// resolves effective values.
type Manager struct {
	mu     sync.RWMutex
	base   []*Layer // Sorted by priority (ascending)
	frames []*frame // Override stack, oldest first
	nextID uint64
}

// frame is one pushed override scope.
type frame struct {
	id    uint64
	layer *Layer
}

// NewManager creates an empty layer manager.
func NewManager() *Manager {
	return &Manager{}
}

// AddLayer adds a base layer. Layers are kept sorted by priority.
func (m *Manager) AddLayer(l *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.base = append(m.base, l)
	sort.SliceStable(m.base, func(i, j int) bool {
		return m.base[i].Priority < m.base[j].Priority
	})
}

// Layer returns a base layer by name, or nil.
func (m *Manager) Layer(name string) *Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLayer(name)
}

// Get resolves the effective value for a key: override frames from the
// most recent down, then base layers from highest to lowest priority.
// Returns the value, the source it came from, and whether it was found.
func (m *Manager) Get(key string) (any, Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.frames) - 1; i >= 0; i-- {
		if v, ok := m.frames[i].layer.Values[key]; ok {
			return v, SourceOverride, true
		}
	}
	for i := len(m.base) - 1; i >= 0; i-- {
		if v, ok := m.base[i].Values[key]; ok {
			return v, m.base[i].Source, true
		}
	}
	return nil, 0, false
}

// SetBatch writes a group of values into a named base layer as one
// mutation. The caller validates values beforehand; the batch is the
// atomicity unit for Set and Load.
func (m *Manager) SetBatch(layerName string, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.findLayer(layerName)
	if l == nil {
		return fmt.Errorf("layer not found: %s", layerName)
	}
	if l.ReadOnly {
		return fmt.Errorf("layer is read-only: %s", layerName)
	}
	if l.Values == nil {
		l.Values = make(map[string]any)
	}
	for k, v := range values {
		l.Values[k] = v
	}
	l.ModTime = time.Now()
	return nil
}

// ReplaceLayer swaps a base layer's values wholesale.
func (m *Manager) ReplaceLayer(layerName string, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.findLayer(layerName)
	if l == nil {
		return fmt.Errorf("layer not found: %s", layerName)
	}
	if l.ReadOnly {
		return fmt.Errorf("layer is read-only: %s", layerName)
	}
	l.Values = cloneValues(values)
	l.ModTime = time.Now()
	return nil
}

// LayerValues returns a copy of a base layer's values.
func (m *Manager) LayerValues(layerName string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l := m.findLayer(layerName)
	if l == nil {
		return nil
	}
	return cloneValues(l.Values)
}

// PushFrame pushes an override frame and returns its id for PopFrame.
// Frames obey stack discipline: popping a frame also pops everything
// pushed after it, so an unwound scope cannot leak overrides.
func (m *Manager) PushFrame(values map[string]any) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.frames = append(m.frames, &frame{
		id:    id,
		layer: NewWithValues("override", SourceOverride, 0, cloneValues(values)),
	})
	return id
}

// PopFrame removes the frame with the given id along with any frames
// above it. Returns false if the frame is no longer on the stack.
func (m *Manager) PopFrame(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.frames) - 1; i >= 0; i-- {
		if m.frames[i].id == id {
			m.frames = m.frames[:i]
			return true
		}
	}
	return false
}

// FrameDepth returns the number of active override frames.
func (m *Manager) FrameDepth() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.frames)
}

// FrameKeys returns the keys overridden by the active frames, most
// recent frame last.
func (m *Manager) FrameKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	seen := make(map[string]bool)
	for _, f := range m.frames {
		for k := range f.layer.Values {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *Manager) findLayer(name string) *Layer {
	for _, l := range m.base {
		if l.Name == name {
			return l
		}
	}
	return nil
}
