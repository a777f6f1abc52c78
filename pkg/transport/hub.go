// Package transport pushes engine events to connected dashboard clients.
// The hub fans out over per-subscriber bounded queues; a slow consumer
// loses its oldest events rather than stalling the scan loop.
package transport

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies the payload kind of a pushed event.
type EventType string

const (
	// EventStatus carries a BotStatus payload.
	EventStatus EventType = "status"
	// EventScan carries a ScanSnapshot payload.
	EventScan EventType = "scan"
	// EventPositions carries the open-position list.
	EventPositions EventType = "positions"
	// EventActivity carries new activity-feed entries.
	EventActivity EventType = "activity"
	// EventBatch carries one end-of-cycle bundle of the above.
	EventBatch EventType = "batch"
)

// Event is one pushed message.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// Subscriber is one consumer of hub events.
type Subscriber struct {
	id    string
	queue chan Event
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string {
	return s.id
}

// Events returns the subscriber's receive channel. The channel is
// closed when the subscriber is removed from the hub.
func (s *Subscriber) Events() <-chan Event {
	return s.queue
}

// Hub fans events out to subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	queueSize   int
	closed      bool
	logger      *zap.Logger
}

// Config holds hub configuration.
type Config struct {
	// QueueSize bounds each subscriber's pending-event queue.
	QueueSize int
	Logger    *zap.Logger
}

// NewHub creates a hub.
func NewHub(cfg *Config) *Hub {
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		queueSize:   size,
		logger:      cfg.Logger,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:    uuid.New().String(),
		queue: make(chan Event, h.queueSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.queue)
		return sub
	}
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	SubscribersActive.Set(float64(count))
	h.logger.Debug("subscriber-added", zap.String("subscriber-id", sub.id))
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(sub.queue)
	SubscribersActive.Set(float64(count))
	h.logger.Debug("subscriber-removed", zap.String("subscriber-id", id))
}

// Publish delivers the event to every subscriber without blocking. A
// full queue sheds its oldest event to admit the new one, so each
// subscriber always converges on the latest state.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.queue <- event:
			EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
		default:
			select {
			case dropped := <-sub.queue:
				EventsDroppedTotal.WithLabelValues(string(dropped.Type)).Inc()
				h.logger.Warn("subscriber-queue-full",
					zap.String("subscriber-id", sub.id),
					zap.String("dropped-type", string(dropped.Type)))
			default:
			}
			select {
			case sub.queue <- event:
				EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
			default:
				EventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close removes all subscribers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		close(sub.queue)
	}
	h.mu.Unlock()

	SubscribersActive.Set(0)
	h.logger.Info("transport-hub-closed")
}
