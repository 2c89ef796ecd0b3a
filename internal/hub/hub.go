package hub

import (
	"log/slog"
	"sync"

	"github.com/STRATINT/zonewatch/internal/models"
	"github.com/google/uuid"
)

// DefaultBufferSize is the per-subscriber queue length used when none is configured.
const DefaultBufferSize = 256

// Observer receives hub lifecycle notifications, typically for metrics.
type Observer interface {
	SubscriberJoined()
	SubscriberLeft()
	EventPublished(evt models.Event)
	DeliveryDropped()
}

// Subscriber is a registered receiver of hub events.
type Subscriber struct {
	ID uuid.UUID

	events chan models.Event
	done   chan struct{}
	once   sync.Once
}

// Events returns the subscriber's delivery queue. Receivers must also watch
// Done, since the queue itself is never closed.
func (s *Subscriber) Events() <-chan models.Event {
	return s.events
}

// Done is closed once the subscriber has been unsubscribed or dropped.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Hub fans events out to every current subscriber.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscriber
	pubMu  sync.Mutex // serializes Publish so all subscribers see one order
	buffer int

	logger   *slog.Logger
	observer Observer
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber queue length.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithObserver registers an observer for lifecycle notifications.
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		h.observer = o
	}
}

// New constructs a Hub.
func New(logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[uuid.UUID]*Subscriber),
		buffer: DefaultBufferSize,
		logger: logger.With("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber. It receives every event published
// after Subscribe returns.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		ID:     uuid.New(),
		events: make(chan models.Event, h.buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s.ID] = s
	count := len(h.subs)
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.SubscriberJoined()
	}
	h.logger.Debug("subscriber joined", "subscriber_id", s.ID, "subscribers", count)
	return s
}

// Unsubscribe stops delivery to s and closes its Done channel. It is
// idempotent and safe to call from the subscriber's own delivery path.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}

	h.mu.Lock()
	_, present := h.subs[s.ID]
	delete(h.subs, s.ID)
	count := len(h.subs)
	h.mu.Unlock()

	s.once.Do(func() { close(s.done) })

	if present {
		if h.observer != nil {
			h.observer.SubscriberLeft()
		}
		h.logger.Debug("subscriber left", "subscriber_id", s.ID, "subscribers", count)
	}
}

// Publish delivers evt to the subscribers registered at call time. It never
// blocks on a subscriber: one whose queue is full or who has gone away is
// dropped instead.
func (h *Hub) Publish(evt models.Event) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	var dropped []*Subscriber
	for _, s := range snapshot {
		if s.closed() {
			dropped = append(dropped, s)
			continue
		}
		select {
		case s.events <- evt:
		default:
			dropped = append(dropped, s)
		}
	}

	if h.observer != nil {
		h.observer.EventPublished(evt)
	}

	for _, s := range dropped {
		h.logger.Warn("dropping subscriber, delivery failed", "subscriber_id", s.ID, "event", evt.Type)
		if h.observer != nil {
			h.observer.DeliveryDropped()
		}
		h.Unsubscribe(s)
	}
}

// Count returns the number of current subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	for _, s := range snapshot {
		h.Unsubscribe(s)
	}
}
