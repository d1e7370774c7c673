package actor

import "github.com/codewandler/actq-go/core/metrics"

// Metrics defines the instrumentation hooks of an actor. Implementations must
// be safe for concurrent use.
type Metrics interface {
	// Tasks
	TaskDuration(actorID string) metrics.Timer
	TaskCompleted(actorID string, success bool)
	TaskPanic(actorID string)
	TaskRejected(actorID string)
	TasksPoisoned(actorID string, n int)

	// Queue and workers
	QueueDepth(actorID string, depth int)
	WorkersActive(actorID string, n int)

	// Life-cycle
	StateChanged(actorID string, s State)
}

type nopMetrics struct{}

func (nopMetrics) TaskDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) TaskCompleted(string, bool)        {}
func (nopMetrics) TaskPanic(string)                  {}
func (nopMetrics) TaskRejected(string)               {}
func (nopMetrics) TasksPoisoned(string, int)         {}

func (nopMetrics) QueueDepth(string, int)    {}
func (nopMetrics) WorkersActive(string, int) {}

func (nopMetrics) StateChanged(string, State) {}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
