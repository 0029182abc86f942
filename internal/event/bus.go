package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/abxba0/fluentchat/internal/logging"
)

// Topic carries every event as a JSON watermill message.
const Topic = "fluentchat.events"

// Metadata keys set on watermill messages.
const (
	MetaType = "type"
	MetaTime = "time"
)

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus delivers events to in-process subscribers and mirrors them as JSON
// messages on a watermill GoChannel.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[EventType][]subscriberEntry),
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(eventType, id)
	}
}

// SubscribeAll registers a subscriber for all events.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribeGlobal(id)
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			break
		}
	}
}

// collect returns the subscribers for t, or false when the bus is closed.
func (b *Bus) collect(t EventType) ([]Subscriber, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false
	}

	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, entry := range b.subscribers[t] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs, true
}

// Publish sends an event to all subscribers asynchronously.
// Each subscriber is called in its own goroutine.
func (b *Bus) Publish(event Event) {
	subs, ok := b.collect(event.Type)
	if !ok {
		return
	}
	b.forward(event)
	for _, sub := range subs {
		go sub(event)
	}
}

// PublishSync sends an event to all subscribers before returning.
func (b *Bus) PublishSync(event Event) {
	subs, ok := b.collect(event.Type)
	if !ok {
		return
	}
	b.forward(event)
	for _, sub := range subs {
		sub(event)
	}
}

// forward mirrors the event on the watermill topic.
func (b *Bus) forward(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Warn().Err(err).Str("type", string(event.Type)).Msg("Failed to encode event")
		return
	}
	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(MetaType, string(event.Type))
	msg.Metadata.Set(MetaTime, time.Now().UTC().Format(time.RFC3339Nano))
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		logging.Debug().Err(err).Msg("Event not forwarded")
	}
}

// Messages subscribes to the watermill topic. Every message must be acked
// before the next one is delivered. The channel closes when ctx is done or
// the bus is closed.
func (b *Bus) Messages(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close closes the bus and drops all subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[EventType][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}
