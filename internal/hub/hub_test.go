package hub

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/STRATINT/zonewatch/internal/logging"
	"github.com/STRATINT/zonewatch/internal/models"
)

func recvEvent(t *testing.T, s *Subscriber, timeout time.Duration) models.Event {
	t.Helper()
	select {
	case evt := <-s.Events():
		return evt
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event on subscriber %s", s.ID)
	}
	return models.Event{}
}

func expectNoEvent(t *testing.T, s *Subscriber) {
	t.Helper()
	select {
	case evt := <-s.Events():
		t.Fatalf("unexpected event %s delivered to subscriber %s", evt.Type, s.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

type countingObserver struct {
	joined, left, published, dropped atomic.Int64
}

func (o *countingObserver) SubscriberJoined()           { o.joined.Add(1) }
func (o *countingObserver) SubscriberLeft()             { o.left.Add(1) }
func (o *countingObserver) EventPublished(models.Event) { o.published.Add(1) }
func (o *countingObserver) DeliveryDropped()            { o.dropped.Add(1) }

func TestPublishDeliversInEmissionOrder(t *testing.T) {
	h := New(logging.Discard())
	a := h.Subscribe()
	b := h.Subscribe()

	events := []models.Event{
		models.ZoneCreatedEvent(models.Zone{ID: 1}),
		models.ZoneUpdatedEvent(models.Zone{ID: 1}),
		models.ZoneDeletedEvent(1),
	}
	for _, evt := range events {
		h.Publish(evt)
	}

	for _, s := range []*Subscriber{a, b} {
		for i, want := range events {
			got := recvEvent(t, s, time.Second)
			if got.Type != want.Type {
				t.Fatalf("subscriber %s event %d: want %s got %s", s.ID, i, want.Type, got.Type)
			}
		}
		expectNoEvent(t, s)
	}
}

func TestSubscribeReceivesOnlyFutureEvents(t *testing.T) {
	h := New(logging.Discard())
	h.Publish(models.ZoneDeletedEvent(1))

	s := h.Subscribe()
	expectNoEvent(t, s)

	h.Publish(models.ZoneDeletedEvent(2))
	got := recvEvent(t, s, time.Second)
	if data, ok := got.Data.(models.ZoneDeleted); !ok || data.ID != 2 {
		t.Fatalf("expected ZONE_DELETED for id 2, got %+v", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := New(logging.Discard())
	s := h.Subscribe()
	h.Unsubscribe(s)
	h.Unsubscribe(s) // idempotent

	select {
	case <-s.Done():
	default:
		t.Fatal("expected Done to be closed after unsubscribe")
	}

	h.Publish(models.ZoneDeletedEvent(1))
	expectNoEvent(t, s)
	if h.Count() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.Count())
	}
}

func TestReconnectDoesNotReplay(t *testing.T) {
	h := New(logging.Discard())
	first := h.Subscribe()
	h.Publish(models.ZoneDeletedEvent(1))
	recvEvent(t, first, time.Second)
	h.Unsubscribe(first)

	second := h.Subscribe()
	h.Publish(models.ZoneDeletedEvent(2))
	got := recvEvent(t, second, time.Second)
	if data := got.Data.(models.ZoneDeleted); data.ID != 2 {
		t.Fatalf("expected only the post-reconnect event, got id %d", data.ID)
	}
	expectNoEvent(t, second)
}

func TestStalledSubscriberIsDroppedWithoutBlocking(t *testing.T) {
	const buffer = 4
	observer := &countingObserver{}
	h := New(logging.Discard(), WithBufferSize(buffer), WithObserver(observer))

	stalled := h.Subscribe()
	healthy := []*Subscriber{h.Subscribe(), h.Subscribe(), h.Subscribe()}

	for i := 0; i < buffer*3; i++ {
		published := make(chan struct{})
		go func() {
			h.Publish(models.ZoneDeletedEvent(int64(i)))
			close(published)
		}()
		select {
		case <-published:
		case <-time.After(time.Second):
			t.Fatalf("publish %d blocked on stalled subscriber", i)
		}

		for _, s := range healthy {
			got := recvEvent(t, s, time.Second)
			if data := got.Data.(models.ZoneDeleted); data.ID != int64(i) {
				t.Fatalf("subscriber %s: want id %d, got %d", s.ID, i, data.ID)
			}
		}
	}

	select {
	case <-stalled.Done():
	default:
		t.Fatal("expected stalled subscriber to be dropped")
	}
	if h.Count() != len(healthy) {
		t.Errorf("expected %d subscribers left, got %d", len(healthy), h.Count())
	}
	if observer.dropped.Load() != 1 {
		t.Errorf("expected 1 dropped delivery, got %d", observer.dropped.Load())
	}
	if observer.joined.Load() != 4 || observer.left.Load() != 1 {
		t.Errorf("unexpected join/leave counts: %d/%d", observer.joined.Load(), observer.left.Load())
	}
}

func TestUnsubscribeFromDeliveryPath(t *testing.T) {
	h := New(logging.Discard())
	s := h.Subscribe()
	other := h.Subscribe()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-s.Events():
				// Simulate a transport write failure.
				h.Unsubscribe(s)
			case <-s.Done():
				return
			}
		}
	}()

	h.Publish(models.ZoneDeletedEvent(1))
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("self-unsubscribe did not complete")
	}

	h.Publish(models.ZoneDeletedEvent(2))
	recvEvent(t, other, time.Second)
	recvEvent(t, other, time.Second)
	if h.Count() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Count())
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	h := New(logging.Discard(), WithBufferSize(1024))
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := h.Subscribe()
				h.Unsubscribe(s)
			}
		}()
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish(models.ZoneDeletedEvent(int64(i*100 + j)))
			}
		}(i)
	}
	wg.Wait()

	if h.Count() != 0 {
		t.Fatalf("expected all subscribers gone, got %d", h.Count())
	}
}

func TestCloseDropsEverySubscriber(t *testing.T) {
	h := New(logging.Discard())
	subs := []*Subscriber{h.Subscribe(), h.Subscribe()}
	h.Close()

	for _, s := range subs {
		select {
		case <-s.Done():
		default:
			t.Fatalf("subscriber %s still open after Close", s.ID)
		}
	}
}
