// Package ledger tracks identity keys of announcements already observed.
//
// The ledger only grows for the lifetime of the process; there is no removal.
package ledger

import "sync"

// Ledger is the dedup set consulted by the monitor.
type Ledger interface {
	Contains(key string) bool
	// Add inserts key. Adding a key that is already present is a no-op.
	Add(key string)
	Len() int
}

// Memory is an in-memory Ledger. The monitor is its only writer; the mutex
// exists for concurrent readers such as the metrics collector. The zero
// value is ready to use.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{keys: map[string]struct{}{}}
}

func (m *Memory) Contains(key string) bool {
	m.mu.RLock()
	_, ok := m.keys[key]
	m.mu.RUnlock()
	return ok
}

func (m *Memory) Add(key string) {
	m.mu.Lock()
	if m.keys == nil {
		m.keys = map[string]struct{}{}
	}
	m.keys[key] = struct{}{}
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// Keys returns a copy of all keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.keys))
	for k := range m.keys {
		out = append(out, k)
	}
	m.mu.RUnlock()
	return out
}
