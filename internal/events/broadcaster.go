package events

import (
	"sync"
	"time"
)

// subscriberBuffer bounds how far a slow consumer may lag before events are
// dropped for it; the producer (the explorer) must never block on a
// subscriber's pace.
const subscriberBuffer = 256

// Broadcaster fans a single producer's events out to any number of
// subscribers, each with its own buffered channel. A subscriber that falls
// behind has events dropped for it rather than stalling the crawl.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Emit timestamps and fans out an event to every current subscriber.
// Non-blocking: a full subscriber channel causes that event to be dropped
// for that subscriber only.
func (b *Broadcaster) Emit(tag Tag, payload any) {
	ev := Event{Tag: tag, Timestamp: time.Now(), Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new consumer and returns its event channel along
// with an unsubscribe function. The channel is never closed by Emit; the
// caller must call unsubscribe when done reading.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe
}
