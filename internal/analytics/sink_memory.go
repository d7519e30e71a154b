package analytics

import (
	"context"
	"sync"
)

// MemorySink keeps the last capacity events.
type MemorySink struct {
	mu       sync.Mutex
	capacity int
	events   []Event
	keys     map[string]struct{}
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemorySink{
		capacity: capacity,
		keys:     make(map[string]struct{}),
	}
}

func (m *MemorySink) Record(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.SourceEventKey != "" {
		if _, dup := m.keys[e.SourceEventKey]; dup {
			return nil
		}
		m.keys[e.SourceEventKey] = struct{}{}
	}

	m.events = append(m.events, e)
	if over := len(m.events) - m.capacity; over > 0 {
		for _, old := range m.events[:over] {
			if old.SourceEventKey != "" {
				delete(m.keys, old.SourceEventKey)
			}
		}
		m.events = append([]Event(nil), m.events[over:]...)
	}
	return nil
}

func (m *MemorySink) Recent(_ context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}

	out := make([]Event, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}
