// Package events is the in-process transport that fans out event log
// entries to standing subscribers such as the mirror.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notice is one published event entry together with its batch scope.
// All fields are plain values; subscribers never see domain structs.
type Notice struct {
	Event   string
	User    string
	Date    time.Time
	Type    string
	Object  string
	Version int64
	Param   map[string]interface{}
}

// Handler reacts to one notice. A returned error is logged by the bus
// and never propagated to the publisher.
type Handler func(n Notice) error

// Bus is a topic-keyed pub/sub over a buffered channel. Publish never
// blocks; delivery order follows publish order within the process.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
	ch   chan Notice
	log  zerolog.Logger
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int, log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[string][]Handler),
		ch:   make(chan Notice, buffer),
		log:  log,
	}
}

// Publish enqueues the notice without blocking. Returns false if the
// buffer is full and the notice was dropped; callers that need delivery
// guarantees must retry from the event log.
func (b *Bus) Publish(n Notice) bool {
	select {
	case b.ch <- n:
		return true
	default:
		b.log.Warn().Str("event", n.Event).Str("object", n.Object).
			Msg("event bus buffer full, notice dropped")
		return false
	}
}

// Subscribe registers a handler for an event name. Registering two
// handlers for the same name appends to the handler list; each notice
// is delivered once per handler.
func (b *Bus) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs[event]) == 0 {
		b.log.Debug().Str("event", event).Msg("subscribing")
	}
	b.subs[event] = append(b.subs[event], h)
}

// Run dispatches notices to subscribers until ctx is canceled. Handler
// errors and panics are logged and do not stop dispatch.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-b.ch:
			b.dispatch(n)
		}
	}
}

// DispatchPending delivers everything currently buffered and returns.
// Test helper for synchronous pipelines.
func (b *Bus) DispatchPending() {
	for {
		select {
		case n := <-b.ch:
			b.dispatch(n)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(n Notice) {
	b.mu.RLock()
	handlers := b.subs[n.Event]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.call(n, h)
	}
}

func (b *Bus) call(n Notice, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("event", n.Event).Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	if err := h(n); err != nil {
		b.log.Error().Err(err).Str("event", n.Event).Str("object", n.Object).
			Msg("event handler failed")
	}
}
