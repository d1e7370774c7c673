package actor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/codewandler/actq-go/core/queue"
)

// Workers returns the number of worker loops currently running.
func (a *Actor) Workers() int { return int(a.workers.Load()) }

// work is the worker loop. It executes tasks until q is closed and drained or
// poisoned.
func (a *Actor) work(ctx context.Context, q *queue.Queue[task], worker int) error {
	a.metrics.WorkersActive(a.id, int(a.workers.Add(1)))
	defer func() {
		a.metrics.WorkersActive(a.id, int(a.workers.Add(-1)))
	}()

	log := a.log.With(slog.Int("worker", worker))
	log.Debug("worker started")

	for {
		t, err := q.Pop(ctx)
		switch {
		case err == nil:
		case errors.Is(err, queue.ErrClosed), errors.Is(err, queue.ErrPoisoned):
			log.Debug("worker stopped", slog.String("reason", err.Error()))
			return nil
		default:
			// executor canceled us while the queue is still open
			return err
		}

		a.metrics.QueueDepth(a.id, q.Len())
		t.run()
	}
}
