// Package broadcast fans job and library state changes out to in-process
// observers. Delivery is best-effort: a publish with no subscribers is a
// no-op, and a subscriber that falls behind loses events rather than slowing
// the publisher.
package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"shelfd/internal/logging"
)

// EventType identifies a state-change notification.
type EventType string

const (
	EventJobCreated     EventType = "job_created"
	EventJobUpdated     EventType = "job_updated"
	EventLibraryUpdated EventType = "library_updated"
	EventDeviceDetected EventType = "device_detected"
)

// Event is a single state-change notification.
type Event struct {
	Sequence   uint64            `json:"seq"`
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"ts"`
	JobID      string            `json:"job_id,omitempty"`
	Category   string            `json:"category,omitempty"`
	Status     string            `json:"status,omitempty"`
	Progress   float64           `json:"progress,omitempty"`
	ETA        string            `json:"eta,omitempty"`
	Throughput string            `json:"throughput,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

const defaultSubscriberBuffer = 32

// Hub distributes events to subscribers.
type Hub struct {
	mu      sync.Mutex
	nextSeq uint64
	subs    map[*Subscription]struct{}
	buffer  int
	dropped uint64
	closed  bool
	logger  *slog.Logger
}

// Subscription is one observer's event feed. Receive from C until it closes.
type Subscription struct {
	C   <-chan Event
	ch  chan Event
	hub *Hub

	once sync.Once
}

// NewHub constructs a hub whose subscribers each buffer up to buffer events.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logging.WithComponent(logger, "broadcast"),
	}
}

// Subscribe registers a new observer. Cancel the subscription when done or
// the hub holds its channel forever.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s]; ok {
			delete(s.hub.subs, s)
			close(s.ch)
		}
	})
}

// Publish delivers the event to every current subscriber without blocking.
// Events for a full subscriber buffer are dropped.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.nextSeq++
	event.Sequence = h.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var droppedNow uint64
	for sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			droppedNow++
		}
	}
	h.dropped += droppedNow
	h.mu.Unlock()

	if droppedNow > 0 {
		h.logger.Debug("dropped events for slow subscribers",
			logging.Int64("dropped", int64(droppedNow)),
			logging.String(logging.FieldEventType, string(event.Type)))
	}
}

// SubscriberCount reports how many observers are attached.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped reports how many events have been discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close detaches every subscriber and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
	}
	h.subs = make(map[*Subscription]struct{})
}
