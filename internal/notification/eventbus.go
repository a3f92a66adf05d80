// Package notification implements the fire-and-forget event bus hosts
// subscribe to: backup/verification/schedule/gap-detection lifecycle
// events. Adapted from the teacher's generic GraphQL subscription bus: a
// single bus carries every event type as an interface{} value behind the
// simplified ports.Notification contract (no per-subscriber filters,
// no GraphQL coupling).
package notification

import (
	"sync"

	"github.com/google/uuid"

	"github.com/photobackup/engine/internal/ports"
)

type subscriber struct {
	id     string
	events chan interface{}
}

// Bus is a concurrency-safe, non-blocking event bus. Publish never
// blocks the caller; a subscriber whose buffer is full simply misses
// the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

var _ ports.Notification = (*Bus)(nil)

// New builds an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Publish delivers event to every current subscriber. Non-blocking: a
// full subscriber channel drops the event for that subscriber only.
func (b *Bus) Publish(event interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
		}
	}
}

// Subscribe registers a new listener with the given channel buffer
// size and returns its receive channel plus an idempotent unsubscribe
// function that closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan interface{}, func()) {
	if buffer <= 0 {
		buffer = 100
	}

	b.mu.Lock()
	sub := &subscriber{id: uuid.NewString(), events: make(chan interface{}, buffer)}
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subscribers[sub.id]; ok {
				close(s.events)
				delete(b.subscribers, sub.id)
			}
		})
	}

	return sub.events, unsubscribe
}

// SubscriberCount reports the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
