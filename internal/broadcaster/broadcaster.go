// Package broadcaster fans messages out to subscribers with bounded queues.
package broadcaster

import (
	"errors"
	"sync"

	"github.com/gofrs/uuid"
)

// ErrClosed is returned from Subscribe after the Broadcaster is closed.
var ErrClosed = errors.New("broadcaster is closed")

// Broadcaster delivers each published message to every subscriber.
// Publish never blocks. A subscriber whose queue is full is dropped and its channel is closed.
type Broadcaster[T any] struct {
	m           sync.Mutex
	subscribers map[string]chan T
	dropped     int64
	closed      bool
}

// Subscription is a registered subscriber.
// C is closed when the subscriber is dropped, unsubscribed or the Broadcaster is closed.
type Subscription[T any] struct {
	ID string
	C  <-chan T
	b  *Broadcaster[T]
}

// New returns an empty Broadcaster.
func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subscribers: make(map[string]chan T)}
}

// Subscribe registers a new subscriber that can hold queueLen undelivered messages.
func (b *Broadcaster[T]) Subscribe(queueLen int) (*Subscription[T], error) {
	if queueLen < 1 {
		queueLen = 1
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	ch := make(chan T, queueLen)
	b.m.Lock()
	defer b.m.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.subscribers[id.String()] = ch
	return &Subscription[T]{ID: id.String(), C: ch, b: b}, nil
}

// Unsubscribe removes the subscriber. It is safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.b.remove(s.ID)
}

func (b *Broadcaster[T]) remove(id string) bool {
	b.m.Lock()
	defer b.m.Unlock()
	ch, ok := b.subscribers[id]
	if ok {
		close(ch)
		delete(b.subscribers, id)
	}
	return ok
}

// Publish queues msg for every subscriber and returns the number of subscribers it was queued for.
func (b *Broadcaster[T]) Publish(msg T) int {
	b.m.Lock()
	defer b.m.Unlock()
	var n int
	for id, ch := range b.subscribers {
		select {
		case ch <- msg:
			n++
		default:
			close(ch)
			delete(b.subscribers, id)
			b.dropped++
		}
	}
	return n
}

// Close closes every subscriber. Subsequent calls to Subscribe fail.
func (b *Broadcaster[T]) Close() {
	b.m.Lock()
	defer b.m.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.m.Lock()
	defer b.m.Unlock()
	return len(b.subscribers)
}

// Dropped returns the number of subscribers dropped for not keeping up.
func (b *Broadcaster[T]) Dropped() int64 {
	b.m.Lock()
	defer b.m.Unlock()
	return b.dropped
}
