// Package future provides a single-assignment result holder.
//
// A [Future] is completed at most once, by whoever owns the producing side,
// and may be awaited by any number of goroutines.
package future

import (
	"context"
	"sync"
)

type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Complete stores the outcome and releases all waiters. Only the first call
// has an effect; it reports whether this call completed the future.
func (f *Future[T]) Complete(v T, err error) (ok bool) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
		ok = true
	})
	return ok
}

func (f *Future[T]) Resolve(v T) bool { return f.Complete(v, nil) }

func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.Complete(zero, err)
}

// Done is closed once the future is completed.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future is completed or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false while the future
// is still pending.
func (f *Future[T]) Result() (v T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		return v, nil, false
	}
}
