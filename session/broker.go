package session

import (
	"sync"

	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/types"
)

// Broker fans out committed events to in-process subscribers. Publishing
// never blocks: a subscriber whose buffer is full misses the event and can
// catch up from the persisted log.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan *types.Event
	nextID uint64
	closed bool
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]chan *types.Event)}
}

// Subscribe registers a new subscriber with the given buffer size.
func (b *Broker) Subscribe(buffer int) (<-chan *types.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *types.Event, max(buffer, 1))
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers the event to every subscriber with room in its buffer.
func (b *Broker) Publish(event *types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Warnw("event dropped for slow subscriber", "subscriber", id, "seq", event.Seq)
		}
	}
}

// Close closes all the subscriber channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.closed = true
}
