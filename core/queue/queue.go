// Package queue provides an unbounded FIFO queue that is safe for any number
// of concurrent producers and consumers.
//
// Push never blocks. Pop suspends while the queue is open and empty. A queue is
// shut down either gracefully with [Queue.Close], after which consumers keep
// receiving the remaining items until it is empty, or with [Queue.Poison],
// which hands the remaining items back to the caller and makes every Pop fail
// immediately.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/gammazero/deque"
)

var (
	// ErrClosed is returned by Pop once the queue is closed and drained.
	ErrClosed = errors.New("queue closed")
	// ErrPoisoned is returned by Pop once the queue has been poisoned.
	ErrPoisoned = errors.New("queue poisoned")
)

type Queue[T any] struct {
	mu       sync.Mutex
	items    deque.Deque[T]
	closed   bool
	poisoned bool

	// ready holds at most one wake-up token for a waiting consumer; done is
	// closed on Close or Poison and wakes all of them.
	ready chan struct{}
	done  chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends v. It reports false if the queue no longer accepts items.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.PushBack(v)
	q.mu.Unlock()

	q.wake()
	return true
}

// Pop removes and returns the oldest item. It blocks while the queue is open
// and empty, and fails with ErrClosed once the queue is closed and empty, with
// ErrPoisoned once it is poisoned, or with the context error.
func (q *Queue[T]) Pop(ctx context.Context) (v T, err error) {
	for {
		q.mu.Lock()
		if q.poisoned {
			q.mu.Unlock()
			return v, ErrPoisoned
		}
		if q.items.Len() > 0 {
			v = q.items.PopFront()
			more := q.items.Len() > 0
			q.mu.Unlock()
			// pass the token on so a second waiter sees the remaining items
			if more {
				q.wake()
			}
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			return v, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-q.ready:
		case <-q.done:
		}
	}
}

// Close stops accepting items. Items already queued stay available to Pop.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeLocked()
}

// Poison closes the queue, discards its content for consumers and returns the
// items that were still queued, oldest first. Poisoning an already poisoned
// queue returns nil.
func (q *Queue[T]) Poison() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closeLocked()
	if q.poisoned {
		return nil
	}
	q.poisoned = true

	out := make([]T, 0, q.items.Len())
	for q.items.Len() > 0 {
		out = append(out, q.items.PopFront())
	}
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Closed reports whether the queue stopped accepting items.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue[T]) closeLocked() {
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue[T]) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
