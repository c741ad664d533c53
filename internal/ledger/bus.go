package ledger

import "sync"

// Bus is a simple pub/sub fan-out for ledger events.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel that receives events.
func (b *Bus) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 100)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			// Drop if subscriber is full
		}
	}
}

// broadcastLedger decorates a Ledger so every successful append is also
// published on a bus. Pollers and live subscribers observe the same trail.
type broadcastLedger struct {
	inner Ledger
	bus   *Bus
}

// Broadcast wraps led so appends fan out on bus after they are durable.
func Broadcast(led Ledger, bus *Bus) Ledger {
	return &broadcastLedger{inner: led, bus: bus}
}

func (b *broadcastLedger) Append(evt Event) error {
	if err := b.inner.Append(evt); err != nil {
		return err
	}
	b.bus.Publish(evt)
	return nil
}

func (b *broadcastLedger) Query(correlationID string) ([]Event, error) {
	return b.inner.Query(correlationID)
}
