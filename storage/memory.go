package storage

import (
	"context"
	"sync"
)

// Memory is the session-scoped adapter: a prefix-namespaced in-process map
// that lives and dies with the owning process. It never fails.
type Memory struct {
	prefix string

	mu    sync.RWMutex
	items map[string]string
}

// NewMemory creates a memory adapter that namespaces every key under prefix
// to avoid collisions with other users of a shared instance.
func NewMemory(prefix string) *Memory {
	return &Memory{
		prefix: prefix,
		items:  make(map[string]string),
	}
}

func (m *Memory) key(key string) string {
	if m.prefix == "" {
		return key
	}
	return m.prefix + ":" + key
}

// GetItem returns the stored value for key, if any.
func (m *Memory) GetItem(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[m.key(key)]
	return value, ok
}

// SetItem stores value under key.
func (m *Memory) SetItem(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[m.key(key)] = value
}

// RemoveItem deletes key.
func (m *Memory) RemoveItem(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, m.key(key))
}

// Len returns the number of stored items.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
