// Package exec defines the execution context actors run their workers on.
//
// An [Executor] spawns a fixed number of independently progressing workers and
// hands back a [Group] that can be joined. The actor package never starts
// goroutines on its own; it always goes through an Executor supplied by the
// caller.
package exec

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type (
	// WorkerFunc is the body of a single worker. worker is its index in [0, n).
	WorkerFunc func(ctx context.Context, worker int) error

	Executor interface {
		// Spawn starts n workers running fn and returns immediately.
		Spawn(ctx context.Context, n int, fn WorkerFunc) Group
	}

	// Group is a handle to spawned workers.
	Group interface {
		// Wait blocks until every worker returned and reports the first
		// non-nil error.
		Wait() error
	}

	// ExecutorFunc adapts a function to the Executor interface.
	ExecutorFunc func(ctx context.Context, n int, fn WorkerFunc) Group
)

func (f ExecutorFunc) Spawn(ctx context.Context, n int, fn WorkerFunc) Group { return f(ctx, n, fn) }

type goroutines struct{}

// Goroutines returns an Executor that runs every worker on its own goroutine.
// Workers share a context that is canceled as soon as one of them fails.
func Goroutines() Executor { return goroutines{} }

func (goroutines) Spawn(ctx context.Context, n int, fn WorkerFunc) Group {
	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error { return fn(gctx, i) })
	}
	return g
}

var (
	_ Executor = goroutines{}
	_ Executor = ExecutorFunc(nil)
	_ Group    = (*errgroup.Group)(nil)
)
