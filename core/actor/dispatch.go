package actor

import (
	"context"
	"runtime/debug"

	"github.com/codewandler/actq-go/core/future"
)

// Act runs op on one of the actor's workers and returns its outcome.
//
// A lazy actor that is stopped is started first. If the actor does not accept
// tasks, Act fails with ErrNotAccepting. If ctx is done before op completed,
// Act returns the context error; op stays queued and still runs.
func Act[R any](ctx context.Context, a *Actor, op func() (R, error)) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	f, err := Submit(a, op)
	if err != nil {
		return zero, err
	}
	return f.Await(ctx)
}

// Do is Act for operations without a result.
func (a *Actor) Do(ctx context.Context, op func() error) error {
	_, err := Act(ctx, a, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// Submit enqueues op and returns the future it completes. It never blocks.
func Submit[R any](a *Actor, op func() (R, error)) (*future.Future[R], error) {
	if a.policy == Lazy && a.State() == Stopped {
		a.activate()
	}

	q := a.queue.Load()
	if q == nil || !a.accepting.Load() {
		a.metrics.TaskRejected(a.id)
		return nil, ErrNotAccepting
	}

	f := future.New[R]()
	t := task{
		run:  func() { f.Complete(call(a, op)) },
		fail: func(err error) { f.Reject(err) },
	}

	// the queue may have been closed since accepting was read
	if !q.Push(t) {
		a.metrics.TaskRejected(a.id)
		return nil, ErrNotAccepting
	}
	a.metrics.QueueDepth(a.id, q.Len())

	return f, nil
}

// call runs op, turning a panic into a *PanicError for its caller.
func call[R any](a *Actor, op func() (R, error)) (r R, err error) {
	defer a.metrics.TaskDuration(a.id).ObserveDuration()

	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			a.metrics.TaskPanic(a.id)
			a.onPanic(rec, stack)
			err = &PanicError{Value: rec, Stack: stack}
		}
		a.metrics.TaskCompleted(a.id, err == nil)
	}()

	return op()
}
