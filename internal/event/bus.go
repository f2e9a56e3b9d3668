// Package event is the in-process fan-out between the ingest pipeline and
// its optional sinks (WebSocket, MQTT, Kafka).
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topics published by the pipeline.
const (
	TopicReadingRecorded = "reading.recorded"
	TopicAlertDispatched = "alert.dispatched"
	TopicAlertFailed     = "alert.failed"
)

// Event is one message on the bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any // type depends on Topic
}

// Handler processes one event.
type Handler func(ctx context.Context, e Event)

// Publisher is implemented by Bus. Producers depend on this, not on Bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	PublishAsync(ctx context.Context, e Event)
}

var _ Publisher = (*Bus)(nil)

// Bus delivers events to handlers subscribed to a topic or to all topics.
// A panicking handler is logged and does not affect other handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	all      []entry
	nextID   uint64
	now      func() time.Time
	logger   *zap.Logger
}

type entry struct {
	id uint64
	fn Handler
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]entry),
		now:      time.Now,
		logger:   logger,
	}
}

// Publish runs every matching handler in the caller's goroutine.
func (b *Bus) Publish(ctx context.Context, e Event) {
	for _, h := range b.matching(&e) {
		b.safeCall(ctx, h.fn, e)
	}
}

// PublishAsync runs every matching handler in its own goroutine.
func (b *Bus) PublishAsync(ctx context.Context, e Event) {
	for _, h := range b.matching(&e) {
		go b.safeCall(ctx, h.fn, e)
	}
}

// Subscribe registers fn for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[topic] = append(b.handlers[topic], entry{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[topic] = remove(b.handlers[topic], id)
	}
}

// SubscribeAll registers fn for every topic.
func (b *Bus) SubscribeAll(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.all = append(b.all, entry{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// matching stamps e and snapshots the handlers for its topic.
func (b *Bus) matching(e *Event) []entry {
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]entry, 0, len(b.handlers[e.Topic])+len(b.all))
	out = append(out, b.handlers[e.Topic]...)
	out = append(out, b.all...)
	return out
}

func (b *Bus) safeCall(ctx context.Context, fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", e.Topic),
				zap.String("source", e.Source),
				zap.Any("panic", r),
			)
		}
	}()
	fn(ctx, e)
}

func remove(entries []entry, id uint64) []entry {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i:i], entries[i+1:]...)
		}
	}
	return entries
}
