// Package eventbus implements the synchronous named-topic pub/sub used
// to broadcast lifecycle transitions. Handlers run inline on the
// emitting goroutine, in subscription order, and a panicking handler
// never stops its neighbors or reaches the emitter. A slow handler
// delays the handlers after it and the emitter's return.
package eventbus

import "sync"

// Handler receives a topic's payload. The payload's concrete type is
// whatever the emitter passes to Emit for that topic; it may be nil.
type Handler func(payload any)

// Subscription can be passed to Off to remove a single handler.
type Subscription struct {
	topic string
	id    uint64
}

// Logger receives a format string and args for diagnostics, e.g. a
// handler panic. A nil Logger discards them.
type Logger func(format string, args ...any)

type entry struct {
	id      uint64
	handler Handler
}

// Bus is the Event Bus component.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]entry
	nextID   uint64
	log      Logger
}

// New creates an empty Bus. log may be nil.
func New(log Logger) *Bus {
	return &Bus{handlers: make(map[string][]entry), log: log}
}

// On subscribes handler to topic and returns a Subscription usable with
// Off.
func (b *Bus) On(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], entry{id: id, handler: handler})
	return Subscription{topic: topic, id: id}
}

// Off removes the handler identified by sub. Safe to call during an
// in-progress Emit for the same topic: Emit iterates a snapshot taken at
// call time, so removal never disturbs an ongoing dispatch.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[sub.topic]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.topic] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
}

// Emit delivers payload to every handler currently subscribed to topic,
// in subscription order. A handler panic is recovered, logged, and does
// not stop delivery to the remaining handlers or propagate to Emit's
// caller.
func (b *Bus) Emit(topic string, payload any) {
	b.mu.Lock()
	snapshot := make([]entry, len(b.handlers[topic]))
	copy(snapshot, b.handlers[topic])
	b.mu.Unlock()

	for _, e := range snapshot {
		b.dispatch(topic, e.handler, payload)
	}
}

func (b *Bus) dispatch(topic string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log("eventbus: handler for %q panicked: %v", topic, r)
		}
	}()
	h(payload)
}

// Clear removes all handlers. If topics is non-empty, only those topics
// are cleared; otherwise every topic is cleared.
func (b *Bus) Clear(topics ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(topics) == 0 {
		b.handlers = make(map[string][]entry)
		return
	}
	for _, t := range topics {
		delete(b.handlers, t)
	}
}
