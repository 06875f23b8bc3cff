// Package events provides the named-event bus the socket endpoints publish
// inbound protocol messages on. Handlers declare at registration whether they
// run inline with the dispatcher or on their own goroutine.
package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event is one named occurrence with its JSON-compatible payload. Events are
// immutable once dispatched; handlers must not modify Payload.
type Event struct {
	ID      string
	Type    string
	Payload map[string]any
}

// Handler reacts to a dispatched event. A returned error is logged by the
// dispatcher and never propagated to the publisher.
type Handler func(Event) error

type listener struct {
	id    uint64
	fn    Handler
	async bool
}

// Bus dispatches events to handlers registered per event name. The bus does
// no pattern matching: a name like "server.*" is an ordinary key, and it is
// the publisher's job to dispatch on both the specific and the wildcard key.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]listener)}
}

// On registers a synchronous handler for name. Handlers for the same name run
// in registration order, before Dispatch returns.
func (b *Bus) On(name string, fn Handler) {
	b.add(name, fn, false)
}

// OnAsync registers a handler that runs on its own goroutine per dispatch.
// The dispatcher does not wait for it; failures are logged, not observed by
// the publisher.
func (b *Bus) OnAsync(name string, fn Handler) {
	b.add(name, fn, true)
}

func (b *Bus) add(name string, fn Handler, async bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[name] = append(b.handlers[name], listener{id: b.nextID, fn: fn, async: async})
}

// removeListener drops one handler by id. The replacement slice is a copy so
// an in-flight Dispatch keeps iterating its own snapshot.
func (b *Bus) removeListener(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.handlers[name]
	for i, l := range ls {
		if l.id == id {
			b.handlers[name] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Clear removes every registered handler.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]listener)
}

// Dispatch invokes every handler registered for name, in registration order.
// Synchronous handlers complete before Dispatch returns; asynchronous ones
// are spawned and left to run.
func (b *Bus) Dispatch(name string, ev Event) {
	b.mu.Lock()
	listeners := b.handlers[name]
	b.mu.Unlock()

	for _, l := range listeners {
		if l.async {
			go func(l listener) {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("event handler panic", "event", name, "panic", r)
					}
				}()
				if err := l.fn(ev); err != nil {
					slog.Error("event handler failed", "event", name, "error", err)
				}
			}(l)
			continue
		}
		if err := l.fn(ev); err != nil {
			slog.Error("event handler failed", "event", name, "error", err)
		}
	}
}

// WaitFor returns a channel that receives the first event dispatched under
// name after this call, then nothing more. Single-use: the handler
// deregisters itself once it fires.
func (b *Bus) WaitFor(name string) <-chan Event {
	ch := make(chan Event, 1)
	var once sync.Once

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], listener{
		id: id,
		fn: func(ev Event) error {
			once.Do(func() {
				ch <- ev
				b.removeListener(name, id)
			})
			return nil
		},
	})
	return ch
}

// NewEventID generates a synthetic event identifier. Monotonic enough for
// log correlation; not required to be globally unique.
func NewEventID() string {
	now := time.Now().UTC()
	return fmt.Sprintf("evt_%s%06d", now.Format("20060102150405"), now.Nanosecond()/1000)
}
