// Package perkey provides a scheduler that serializes work per key
// while allowing work for different keys to execute concurrently.
//
// Every key is served by its own single-worker [actor.Actor], created on the
// first task for that key.
//
// Typical use-case: per-entity state (accounts, counters, sessions), where
// commands for one entity must run sequentially but different entities can
// proceed in parallel.
package perkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codewandler/actq-go/core/actor"
	"github.com/codewandler/actq-go/core/exec"
)

// Option configures a Scheduler.
type Option func(*config)

type config struct {
	log     *slog.Logger
	metrics actor.Metrics
}

// WithLogger sets the logger handed to every per-key actor.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics sets the metrics shared by all per-key actors.
func WithMetrics(m actor.Metrics) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Scheduler runs tasks (functions) such that for any given key K,
// tasks are executed sequentially, in submission order.
// Tasks for *different* keys can proceed in parallel.
type Scheduler[K comparable] struct {
	mu     sync.Mutex
	actors map[K]*actor.Actor
	closed bool
	// evicting holds keys whose old actor is still draining; the channel is
	// closed once it stopped.
	evicting map[K]chan struct{}

	exec exec.Executor
	cfg  config
}

// New creates a new Scheduler running its actors on ex.
func New[K comparable](ex exec.Executor, opts ...Option) *Scheduler[K] {
	cfg := config{log: slog.Default(), metrics: actor.NopMetrics()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler[K]{
		actors:   make(map[K]*actor.Actor),
		evicting: make(map[K]chan struct{}),
		exec:     ex,
		cfg:      cfg,
	}
}

// Do schedules fn to run for the given key.
// It blocks until fn finishes and returns its error.
// All fn calls for the same key are executed sequentially.
//
// If ctx is done while fn is queued or running, Do returns the context error;
// fn still runs.
func (s *Scheduler[K]) Do(ctx context.Context, key K, fn func() error) error {
	for {
		a, err := s.actorFor(ctx, key)
		if err != nil {
			return err
		}

		err = a.Do(ctx, fn)
		if !errors.Is(err, actor.ErrNotAccepting) {
			return err
		}
		// evicted or closed after we picked the actor, actorFor tells which
	}
}

// Len returns the number of keys with a live actor.
func (s *Scheduler[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actors)
}

// Evict stops the actor of key after its queued tasks ran. The next task for
// key creates a fresh actor, but only once the old one has stopped.
func (s *Scheduler[K]) Evict(key K) error {
	s.mu.Lock()
	if wait, ok := s.evicting[key]; ok {
		s.mu.Unlock()
		<-wait
		return nil
	}
	a, ok := s.actors[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.actors, key)
	done := make(chan struct{})
	s.evicting[key] = done
	s.mu.Unlock()

	err := a.Cancel(nil)

	s.mu.Lock()
	delete(s.evicting, key)
	s.mu.Unlock()
	close(done)

	return err
}

// Close stops accepting new tasks and shuts down all actors.
// Tasks already queued are still processed before Close returns.
func (s *Scheduler[K]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	actors := s.actors
	s.actors = nil
	evictions := make([]chan struct{}, 0, len(s.evicting))
	for _, done := range s.evicting {
		evictions = append(evictions, done)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, a := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Cancel(nil); err != nil {
				s.cfg.log.Error("failed to stop actor", slog.String("actor", a.ID()), slog.Any("error", err))
			}
		}()
	}
	wg.Wait()

	for _, done := range evictions {
		<-done
	}
}

func (s *Scheduler[K]) actorFor(ctx context.Context, key K) (*actor.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed {
			return nil, ErrSchedulerClosed
		}

		a, ok := s.actors[key]
		if ok {
			return a, nil
		}

		wait, ok := s.evicting[key]
		if !ok {
			break
		}
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			s.mu.Lock()
			return nil, ctx.Err()
		}
		s.mu.Lock()
	}

	// Eager, so that a concurrent Close or Evict always halts it.
	a, err := actor.New(s.exec, actor.Options{
		ID:      fmt.Sprintf("%v", key),
		Start:   actor.Eager,
		Logger:  s.cfg.log,
		Metrics: s.cfg.metrics,
	})
	if err != nil {
		return nil, err
	}
	s.actors[key] = a
	return a, nil
}

// ----- Errors -----

// ErrSchedulerClosed is returned when Do is called on a closed scheduler.
var ErrSchedulerClosed = &SchedulerError{"scheduler is closed"}

// SchedulerError is a simple error implementation.
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string { return e.msg }
