package bus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dairus01/bitcoin-whales/internal/domain"
)

func whale(hash string) *domain.WhaleEvent {
	return &domain.WhaleEvent{Hash: hash, ValueBTC: 150, Timestamp: 1700000000}
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	b := New(10)
	sub := b.Register()
	defer b.Deregister(sub)

	for i := 0; i < 5; i++ {
		b.Publish(whale(fmt.Sprintf("h%d", i)))
	}

	for i := 0; i < 5; i++ {
		select {
		case ev := <-sub.Events():
			w, ok := ev.(*domain.WhaleEvent)
			require.True(t, ok)
			assert.Equal(t, fmt.Sprintf("h%d", i), w.Hash)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBus_SaturatedSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New(1)

	slow := b.Register() // never read: queue saturates after one event
	fast := b.Register() // drained concurrently: never saturates
	defer b.Deregister(slow)
	defer b.Deregister(fast)

	received := make(chan string, 2)
	go func() {
		for i := 0; i < 2; i++ {
			select {
			case ev := <-fast.Events():
				received <- ev.(*domain.WhaleEvent).Hash
			case <-time.After(2 * time.Second):
				return
			}
		}
	}()

	// The first publish fills slow's queue; the second overflows it and
	// must still reach the fast subscriber within the bounded wait.
	b.Publish(whale("h1"))
	b.Publish(whale("h2"))

	for _, want := range []string{"h1", "h2"} {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("fast subscriber missed %s", want)
		}
	}

	// The slow subscriber kept its first event and lost the second.
	select {
	case ev := <-slow.Events():
		assert.Equal(t, "h1", ev.(*domain.WhaleEvent).Hash)
	case <-time.After(time.Second):
		t.Fatal("slow subscriber lost its buffered event")
	}
	select {
	case ev := <-slow.Events():
		t.Fatalf("expected h2 to be dropped for the slow subscriber, got %v", ev)
	default:
	}
}

func TestBus_PublishBoundedWait(t *testing.T) {
	b := New(1)
	slow := b.Register()
	defer b.Deregister(slow)

	b.Publish(whale("h1")) // fills the queue

	start := time.Now()
	b.Publish(whale("h2")) // must drop after the bounded wait
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "publish must never block unboundedly")
}

func TestBus_RegisterDeregister(t *testing.T) {
	b := New(0)
	assert.Equal(t, 0, b.Len())

	s1 := b.Register()
	s2 := b.Register()
	assert.Equal(t, 2, b.Len())

	b.Deregister(s1)
	assert.Equal(t, 1, b.Len())

	// Channel is closed on deregistration.
	_, open := <-s1.Events()
	assert.False(t, open)

	// Deregistering twice is a no-op.
	b.Deregister(s1)
	assert.Equal(t, 1, b.Len())

	// Events published after deregistration only reach live subscribers.
	b.Publish(whale("h1"))
	select {
	case ev := <-s2.Events():
		assert.Equal(t, "h1", ev.(*domain.WhaleEvent).Hash)
	case <-time.After(time.Second):
		t.Fatal("live subscriber missed event")
	}

	b.Deregister(s2)
	assert.Equal(t, 0, b.Len())
}

func TestBus_AllEventKindsDelivered(t *testing.T) {
	b := New(10)
	sub := b.Register()
	defer b.Deregister(sub)

	height := int64(1)
	b.Publish(&domain.WhaleEvent{Hash: "h"})
	b.Publish(&domain.SummaryEvent{Count: 1})
	b.Publish(&domain.BlockEvent{Height: &height})
	b.Publish(&domain.ConfigEvent{ThresholdBTC: 100, IntervalSec: 60})

	want := []domain.Kind{domain.KindWhale, domain.KindSummary, domain.KindBlock, domain.KindConfig}
	for _, kind := range want {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, kind, ev.Kind())
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}
