// Package eventbus fans chat notifications out to in-process subscribers.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
)

// Bus implements domain.NotificationSource. Delivery is synchronous on the
// publisher's goroutine, so handlers must return quickly.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	triggers map[uint64]func(domain.Trigger)
	removals map[uint64]func(string)
}

func New() *Bus {
	return &Bus{
		triggers: make(map[uint64]func(domain.Trigger)),
		removals: make(map[uint64]func(string)),
	}
}

func (b *Bus) OnTrigger(handler func(domain.Trigger)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.triggers[id] = handler

	return b.unsubscriber(func() { delete(b.triggers, id) })
}

func (b *Bus) OnAnchorRemoved(handler func(anchorID string)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.removals[id] = handler

	return b.unsubscriber(func() { delete(b.removals, id) })
}

// unsubscriber wraps remove so that calling it more than once is harmless.
func (b *Bus) unsubscriber(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			remove()
			b.mu.Unlock()
		})
	}
}

// PublishTrigger delivers t to every trigger handler registered at the time
// of the call. Handlers may unsubscribe while being delivered to.
func (b *Bus) PublishTrigger(t domain.Trigger) {
	b.mu.RLock()
	handlers := make([]func(domain.Trigger), 0, len(b.triggers))
	for _, h := range b.triggers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		deliver(func() { h(t) })
	}
}

// PublishAnchorRemoved tells subscribers that the message anchorID is gone.
func (b *Bus) PublishAnchorRemoved(anchorID string) {
	b.mu.RLock()
	handlers := make([]func(string), 0, len(b.removals))
	for _, h := range b.removals {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		deliver(func() { h(anchorID) })
	}
}

// Subscribers returns the number of registered handlers of both kinds.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.triggers) + len(b.removals)
}

// deliver isolates handler panics so one faulty subscriber cannot starve the rest.
func deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event bus handler panicked", "panic", r)
		}
	}()
	fn()
}
