// Package realtime maintains the set of connected change-feed
// subscribers and fans a payload-free "directory changed" signal out
// to all of them whenever the roster is mutated.
package realtime

import (
	"log/slog"
	"sync"
)

// Event is a change signal. It carries no payload beyond its type;
// subscribers are expected to re-fetch the roster.
type Event struct {
	Type string `json:"type"`
}

// TypeDataUpdated signals that the directory dataset has changed.
const TypeDataUpdated = "data_updated"

// Subscriber is a registered change-feed consumer. Events arrive on
// the channel returned by Events in the order they were published.
type Subscriber struct {
	ch chan Event
}

// Events returns the subscriber's event channel. The channel is closed
// on unsubscribe.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Hub fans change events out to all registered subscribers. Publishing
// never blocks: each subscriber has a fixed-size buffer and the oldest
// pending event is dropped on overflow. Dropping is harmless here
// because every event carries the same "refresh" meaning.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	closed      bool
}

// NewHub creates a hub whose subscribers buffer up to buffer pending
// events each.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber and returns its handle.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}

	h.subscribers[sub] = struct{}{}
	recordSubscribers(len(h.subscribers))
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. It is safe
// to call more than once and safe to call while a publish is in
// flight; it must always be called on disconnect so that channels are
// not leaked.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.ch)
	recordSubscribers(len(h.subscribers))
}

// Publish delivers the event to every registered subscriber. Delivery
// is best-effort and non-blocking per subscriber: a slow consumer loses
// its oldest pending event instead of stalling the publisher or the
// other subscribers. Events are delivered to each subscriber in
// publish order.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	recordEventPublished(event.Type)

	for sub := range h.subscribers {
		select {
		case sub.ch <- event:
		default:
			// Buffer full: drop the oldest pending event to make room.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
			recordEventDropped(event.Type)
		}
	}
}

// DirectoryChanged implements directory.ChangeNotifier.
func (h *Hub) DirectoryChanged() {
	h.Publish(Event{Type: TypeDataUpdated})
}

// Close unregisters all subscribers and closes their channels. Further
// publishes are no-ops and further subscribes return an already-closed
// subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
	recordSubscribers(0)

	slog.Info("realtime hub closed")
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
