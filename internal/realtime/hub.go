package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

// subscriberBuffer bounds how far a stream consumer may fall behind before
// events are dropped for it.
const subscriberBuffer = 16

// Bus carries events between instances. The production implementation is the
// Redis pub/sub adapter in bus.go; tests wire an in-process fake.
type Bus interface {
	Publish(ctx context.Context, channel string, payload any) error
	Listen(ctx context.Context, channel string) (<-chan string, func() error, error)
}

// envelope is the cross-instance wire form. Origin lets an instance skip its
// own publications, which it already delivered locally.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Hub fans events out to the stream subscribers of this process and mirrors
// them across instances through the Bus.
type Hub struct {
	id      string
	channel string
	bus     Bus
	logg    *logger.Logger

	mu          sync.Mutex
	subscribers map[uint64]chan Event
	nextID      uint64
	closed      bool

	stop func()
	done chan struct{}
}

// NewHub builds a Hub. A nil bus keeps the hub process-local, which is what
// the tests and single-instance deployments use.
func NewHub(bus Bus, channel string, logg *logger.Logger) *Hub {
	return &Hub{
		id:          uuid.NewString(),
		channel:     channel,
		bus:         bus,
		logg:        logg,
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

// Start attaches the hub to the bus and begins relaying remote events. It is
// a no-op without a bus.
func (h *Hub) Start(ctx context.Context) error {
	if h.bus == nil {
		close(h.done)
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	messages, closeListener, err := h.bus.Listen(ctx, h.channel)
	if err != nil {
		cancel()
		close(h.done)
		return err
	}
	h.stop = func() {
		cancel()
		if err := closeListener(); err != nil {
			h.logg.Warn(h.logg.WithField(context.Background(), "error", err.Error()), "failed to close event listener")
		}
	}
	go h.relay(ctx, messages)
	return nil
}

func (h *Hub) relay(ctx context.Context, messages <-chan string) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(raw), &env); err != nil {
				h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "dropping malformed event payload")
				continue
			}
			if env.Origin == h.id {
				continue
			}
			h.deliver(env.Event)
		}
	}
}

// Subscribe registers a stream consumer. The returned cancel function must be
// called when the consumer detaches; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[id]; ok {
				delete(h.subscribers, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// SubscriberCount reports how many stream consumers are attached locally.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast delivers an event to local subscribers and publishes it for the
// other instances. Publish failures are logged, not surfaced; the local
// delivery already happened and the write path must not fail on fan-out.
func (h *Hub) Broadcast(ctx context.Context, event Event) {
	h.deliver(event)
	if h.bus == nil {
		return
	}
	payload, err := json.Marshal(envelope{Origin: h.id, Event: event})
	if err != nil {
		h.logg.Error(ctx, "failed to encode event for publication", err)
		return
	}
	if err := h.bus.Publish(ctx, h.channel, payload); err != nil {
		h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "failed to publish event to bus")
	}
}

func (h *Hub) deliver(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Slow consumer; drop rather than stall the hub.
		}
	}
}

// Shutdown detaches from the bus and closes every subscriber channel.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
	h.mu.Unlock()

	if h.stop != nil {
		h.stop()
		<-h.done
	}
}
