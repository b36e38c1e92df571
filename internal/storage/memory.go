package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryKV keeps entries in a map guarded by an RWMutex.
type MemoryKV struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryKV returns an empty in-process store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		store: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.store[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.store[key] = entry
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

func (m *MemoryKV) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]memoryEntry)
	return nil
}

// Close is a no-op.
func (m *MemoryKV) Close() error { return nil }

// Len counts live entries; expired ones are skipped.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	now := m.now()
	for _, e := range m.store {
		if e.expiresAt.IsZero() || !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}
