package actor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/actq-go/core/exec"
	"github.com/codewandler/actq-go/core/queue"
)

type (
	// OnPanic is called on the worker goroutine after an operation panicked.
	OnPanic func(recovered any, stack []byte)

	Options struct {
		// ID identifies the actor in logs and metrics. Generated if empty.
		ID string
		// Start selects lazy (default) or eager activation.
		Start StartPolicy
		// Concurrency is the number of workers. 0 means 1. With more than one
		// worker, operations may run in parallel and no longer confine state.
		Concurrency int
		Logger      *slog.Logger
		Metrics     Metrics
		OnPanic     OnPanic
	}
)

// task is a submitted operation with its result type erased. run executes the
// operation and completes the future, fail completes it without running.
type task struct {
	run  func()
	fail func(error)
}

// Actor confines mutable state to operations executed by its workers.
type Actor struct {
	id          string
	log         *slog.Logger
	metrics     Metrics
	onPanic     OnPanic
	exec        exec.Executor
	concurrency int
	policy      StartPolicy

	// mu serializes Start and Cancel. state, accepting and queue are written
	// only while it is held; they are atomics so readers never take it.
	mu        sync.Mutex
	state     atomic.Int32
	accepting atomic.Bool
	queue     atomic.Pointer[queue.Queue[task]]
	group     exec.Group
	// halted is set by an effective Cancel and cleared by Start. A halted lazy
	// actor does not restart on submission.
	halted bool

	workers atomic.Int32
}

// New creates an actor running its workers on ex. An eager actor is started
// before New returns.
func New(ex exec.Executor, opt Options) (*Actor, error) {
	if ex == nil {
		return nil, ErrNilExecutor
	}
	if opt.Concurrency < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, opt.Concurrency)
	}
	if opt.Concurrency == 0 {
		opt.Concurrency = 1
	}
	if opt.ID == "" {
		opt.ID = gonanoid.Must(8)
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Metrics == nil {
		opt.Metrics = NopMetrics()
	}

	log := opt.Logger.With(slog.String("actor", opt.ID))

	if opt.OnPanic == nil {
		opt.OnPanic = func(recovered any, stack []byte) {
			log.Error("operation panicked", slog.Any("recovered", recovered), slog.String("stack", string(stack)))
		}
	}

	a := &Actor{
		id:          opt.ID,
		log:         log,
		metrics:     opt.Metrics,
		onPanic:     opt.OnPanic,
		exec:        ex,
		concurrency: opt.Concurrency,
		policy:      opt.Start,
	}

	if a.policy == Eager {
		a.Start()
	}

	return a, nil
}

// ID returns the actor's identifier used in logs and metrics.
func (a *Actor) ID() string { return a.id }

// Concurrency returns the fixed number of workers.
func (a *Actor) Concurrency() int { return a.concurrency }

// Policy returns the start policy the actor was created with.
func (a *Actor) Policy() StartPolicy { return a.policy }

// State returns the current life-cycle state. Starting and Stopping are
// transient; a concurrent reader may or may not observe them.
func (a *Actor) State() State { return State(a.state.Load()) }

// Accepting reports whether submissions are currently accepted.
func (a *Actor) Accepting() bool { return a.accepting.Load() }

// Pending returns the number of queued tasks no worker picked up yet.
func (a *Actor) Pending() int {
	if q := a.queue.Load(); q != nil {
		return q.Len()
	}
	return 0
}

func (a *Actor) setState(s State) {
	a.state.Store(int32(s))
	a.metrics.StateChanged(a.id, s)
}

// Start spawns the workers if the actor is stopped. It returns once the
// workers have been handed to the executor, not once they are running.
// Starting a started or starting actor is a no-op.
func (a *Actor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.halted = false
	a.startLocked()
}

// activate is the implicit start of a lazy actor.
func (a *Actor) activate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.halted {
		return
	}
	a.startLocked()
}

func (a *Actor) startLocked() {
	if a.State() != Stopped {
		return
	}

	a.setState(Starting)

	q := queue.New[task]()
	a.queue.Store(q)
	a.accepting.Store(true)

	a.group = a.exec.Spawn(context.Background(), a.concurrency, func(ctx context.Context, worker int) error {
		return a.work(ctx, q, worker)
	})

	a.setState(Started)
	a.log.Debug("actor started", slog.Int("concurrency", a.concurrency))
}

// Cancel stops a started actor and blocks until all of its workers returned.
//
// With a nil cause the shutdown is graceful: tasks already queued are still
// executed. With a non-nil cause the queue is poisoned: workers finish the
// task they are running, and every task still queued fails with an error
// matching both ErrPoisoned and cause.
//
// Cancel on an actor that is not started is a no-op. Cancel must not be called
// from an operation running on the same actor, as it would wait for itself.
func (a *Actor) Cancel(cause error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.State() != Started {
		return nil
	}

	a.setState(Stopping)
	a.accepting.Store(false)

	q := a.queue.Load()
	if cause == nil {
		q.Close()
	} else {
		rest := q.Poison()
		err := poisoned(cause)
		for _, t := range rest {
			t.fail(err)
		}
		a.metrics.TasksPoisoned(a.id, len(rest))
		a.log.Debug("actor poisoned", slog.Any("cause", cause), slog.Int("discarded", len(rest)))
	}

	err := a.group.Wait()

	a.group = nil
	a.queue.Store(nil)
	a.halted = true
	a.metrics.QueueDepth(a.id, 0)
	a.setState(Stopped)

	if err != nil {
		a.log.Error("actor workers failed", slog.Any("error", err))
		return fmt.Errorf("actor %s: %w", a.id, err)
	}
	a.log.Debug("actor stopped")
	return nil
}
