package ledger

import (
	"sync"
	"time"
)

// Memory is an in-process Ledger. Safe for concurrent use across
// correlation ids; within one id the single writer sees its own order.
type Memory struct {
	mu     sync.RWMutex
	trails map[string][]Event
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{trails: make(map[string][]Event)}
}

func (m *Memory) Append(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trails[evt.CorrelationID] = append(m.trails[evt.CorrelationID], evt)
	return nil
}

func (m *Memory) Query(correlationID string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trail := m.trails[correlationID]
	out := make([]Event, len(trail))
	copy(out, trail)
	return out, nil
}
