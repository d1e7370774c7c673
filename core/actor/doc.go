// Package actor confines mutable state to sequential execution.
//
// An [Actor] owns a FIFO queue and a group of workers. Callers never touch the
// protected state directly; they submit operations, which the workers execute
// one after another, and wait for the result:
//
//	ac, err := actor.New(exec.Goroutines(), actor.Options{})
//	if err != nil {
//	    return err
//	}
//
//	counter := 0
//	n, err := actor.Act(ctx, ac, func() (int, error) {
//	    counter++
//	    return counter, nil
//	})
//
// # Life-cycle
//
// An actor is in one of four states: [Stopped], [Starting], [Started] and
// [Stopping]. [Actor.Start] and [Actor.Cancel] are the only transitions and are
// serialized by an internal lock. A [Lazy] actor starts on its first
// submission, an [Eager] one is started by [New].
//
// [Actor.Cancel] with a nil cause refuses new submissions and waits until the
// workers drained the queue. With a non-nil cause the queue is poisoned
// instead: queued operations are not run and their callers receive an error
// matching [ErrPoisoned] and the cause. After an effective Cancel the actor
// stays stopped until [Actor.Start] is called, also when it is lazy.
//
// # Concurrency
//
// With [Options.Concurrency] set to 1 (the default) operations run strictly in
// arrival order and never overlap. Higher values trade this guarantee for
// throughput: operations may run in parallel and must synchronize any state
// they share.
//
// There is no per-operation timeout. An operation that never returns blocks
// its worker; with a single worker it blocks the actor. Callers bound their
// waiting with the context passed to [Act].
package actor
