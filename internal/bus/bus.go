// Package bus fans derived events out to independently paced subscribers.
// Delivery is at-most-once: a subscriber with a full queue loses the event,
// and one saturated subscriber never delays another or the publisher beyond
// a short bounded wait.
package bus

import (
	"sync"
	"time"

	"github.com/Dairus01/bitcoin-whales/internal/domain"
	"github.com/Dairus01/bitcoin-whales/internal/observability"
)

const (
	// DefaultCapacity is the per-subscriber queue depth.
	DefaultCapacity = 100
	// publishWait bounds how long Publish waits on one full queue before
	// dropping the event for that subscriber.
	publishWait = 100 * time.Millisecond
)

// Subscriber is a registered delivery endpoint. It is owned by the Bus from
// Register until Deregister; its channel is closed on deregistration.
type Subscriber struct {
	ch chan domain.Event
}

// Events returns the subscriber's receive channel. Events arrive in publish
// order for this subscriber.
func (s *Subscriber) Events() <-chan domain.Event {
	return s.ch
}

// Bus manages the live subscriber set under its own lock, distinct from the
// aggregator's, so ingestion and delivery never contend on lock order.
type Bus struct {
	mu       sync.Mutex
	subs     map[*Subscriber]struct{}
	capacity int
}

// New creates a bus with the given per-subscriber queue capacity.
// A capacity of 0 selects DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		subs:     make(map[*Subscriber]struct{}),
		capacity: capacity,
	}
}

// Register adds a new subscriber with a bounded queue.
func (b *Bus) Register() *Subscriber {
	s := &Subscriber{ch: make(chan domain.Event, b.capacity)}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	observability.SetSubscribers(n)
	return s
}

// Deregister removes a subscriber and closes its channel. Deregistering an
// unknown subscriber is a no-op.
func (b *Bus) Deregister(s *Subscriber) {
	b.mu.Lock()
	_, ok := b.subs[s]
	if ok {
		delete(b.subs, s)
	}
	n := len(b.subs)
	b.mu.Unlock()

	if ok {
		close(s.ch)
		observability.SetSubscribers(n)
	}
}

// Len returns the current subscriber count.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers ev to every registered subscriber. Iteration over the
// set and set mutation are mutually exclusive, so no publish observes a
// half-modified set. A full queue drops the event for that subscriber only.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		select {
		case s.ch <- ev:
			continue
		default:
		}

		// Queue full: wait briefly, then drop for this subscriber.
		t := time.NewTimer(publishWait)
		select {
		case s.ch <- ev:
			t.Stop()
		case <-t.C:
			observability.RecordEventDropped(ev.Kind().String())
		}
	}
}
