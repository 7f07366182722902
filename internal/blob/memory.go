package blob

import (
	"context"
	"strconv"
	"sync"
)

type memoryEntry struct {
	data    []byte
	version Version
}

// MemoryStore is a process-local Store for tests and single-process development.
// Versions come from a counter that never repeats, so a deleted and recreated
// key cannot satisfy a stale precondition.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	next    uint64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Name returns "memory".
func (m *MemoryStore) Name() string { return "memory" }

// Get returns a copy of the stored data.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, NoVersion, ErrNotFound
	}
	return append([]byte(nil), e.data...), e.version, nil
}

// Put stores data if the current version matches ifMatch.
func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, ifMatch Version) (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	switch {
	case ifMatch == NoVersion && ok:
		return NoVersion, ErrPreconditionFailed
	case ifMatch != NoVersion && (!ok || e.version != ifMatch):
		return NoVersion, ErrPreconditionFailed
	}
	return m.store(key, data), nil
}

// PutUnconditional overwrites key.
func (m *MemoryStore) PutUnconditional(ctx context.Context, key string, data []byte) (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store(key, data), nil
}

func (m *MemoryStore) store(key string, data []byte) Version {
	m.next++
	v := Version(strconv.FormatUint(m.next, 10))
	m.entries[key] = memoryEntry{data: append([]byte(nil), data...), version: v}
	return v
}

// Delete removes key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Keys returns the number of stored keys.
func (m *MemoryStore) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
