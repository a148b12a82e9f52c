package cache

import "sync"

// MemoryStore is the process-local tier. Expired entries stay until the
// next successful write so the degraded fallback path can still use them;
// readers decide usability from the entry's state.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{entries: make(map[string]Entry[T])}
}

// Get returns the entry for key, however old it is.
func (m *MemoryStore[T]) Get(key string) (Entry[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	return entry, ok
}

// Set atomically replaces the entry for key.
func (m *MemoryStore[T]) Set(key string, entry Entry[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
}

// Delete removes the entry for key.
func (m *MemoryStore[T]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len reports the number of resident entries.
func (m *MemoryStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
