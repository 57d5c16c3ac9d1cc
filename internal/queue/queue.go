package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Dequeue after Close.
var ErrClosed = errors.New("queue is closed")

// Queue is an unbounded FIFO of transaction identities handed from intake to
// the worker. Enqueue never blocks; Dequeue blocks until an item arrives, the
// context is cancelled, or the queue is closed. Each identity is delivered to
// exactly one consumer.
type Queue struct {
	mu     sync.Mutex
	items  []string
	signal chan struct{}
	closed bool
}

func New() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends id to the queue. Enqueueing on a closed queue is a no-op.
func (q *Queue) Enqueue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.items = append(q.items, id)
	q.wake()
}

// Dequeue removes and returns the oldest identity, blocking until one is
// available. Returns ctx.Err() on cancellation or ErrClosed once the queue is
// closed and drained.
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				// Another consumer may be parked on the signal channel.
				q.wake()
			}
			q.mu.Unlock()
			return id, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", ErrClosed
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.signal:
		}
	}
}

// Len reports the number of identities waiting to be dequeued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed and wakes blocked consumers. Items already
// enqueued are still delivered before Dequeue starts returning ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// wake nudges one parked consumer; must be called with q.mu held. After Close
// the signal channel is closed and already wakes every consumer.
func (q *Queue) wake() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
