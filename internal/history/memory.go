package history

import (
	"context"
	"sync"
)

// DefaultMaxEntries bounds a Memory store created with a non-positive size.
const DefaultMaxEntries = 50

// Memory is a bounded in-process Store. It is used when no database is
// configured and by tests.
type Memory struct {
	mu      sync.Mutex
	max     int
	entries []Entry // oldest first
}

// NewMemory returns a store keeping at most max entries.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Memory{max: max}
}

// Add records e unless it repeats the most recent entry.
func (m *Memory) Add(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := e.Key()
	if n := len(m.entries); n > 0 && m.entries[n-1].Key() == key {
		return nil
	}

	kept := m.entries[:0]
	for _, old := range m.entries {
		if old.Key() != key {
			kept = append(kept, old)
		}
	}
	m.entries = append(kept, e)

	if over := len(m.entries) - m.max; over > 0 {
		m.entries = append([]Entry(nil), m.entries[over:]...)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (m *Memory) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Remove deletes every entry for brand and serial.
func (m *Memory) Remove(_ context.Context, brand, serial string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Entry{Brand: brand, Serial: serial}.Key()
	kept := m.entries[:0]
	removed := 0
	for _, e := range m.entries {
		if e.Key() == key {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

// Clear deletes all entries.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
