package events

import (
	"sync"

	"bazaar/core/types"
)

// Carrier is implemented by module-specific event wrappers so engines can emit
// without depending on a concrete bus.
type Carrier interface {
	EventType() string
	Event() *types.Event
}

// Emitter receives events produced by native engines.
type Emitter interface {
	Emit(Carrier)
}

// NoopEmitter discards all events. Engines default to it so event wiring stays
// optional in tests.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Carrier) {}

// Buffer accumulates events during a state transaction so they can be
// published only after the transaction commits.
type Buffer struct {
	events []*types.Event
}

func (b *Buffer) Emit(c Carrier) {
	if c == nil {
		return
	}
	evt := c.Event()
	if evt == nil {
		return
	}
	b.events = append(b.events, evt.Clone())
}

// Drain returns the buffered events and resets the buffer.
func (b *Buffer) Drain() []*types.Event {
	out := b.events
	b.events = nil
	return out
}

// Bus fans committed events out to subscribers. Slow subscribers drop events
// rather than block settlement.
type Bus struct {
	mu   sync.Mutex
	subs map[uint64]chan *types.Event
	next uint64
}

// NewBus returns an empty subscription bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan *types.Event)}
}

// Subscribe registers a new subscriber and returns its channel together with a
// cancel function.
func (b *Bus) Subscribe() (<-chan *types.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan *types.Event, 128)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its channel.
func (b *Bus) Publish(evt *types.Event) {
	if evt == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
