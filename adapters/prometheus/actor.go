package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/actq-go/core/actor"
	"github.com/codewandler/actq-go/core/metrics"
)

// actorMetrics implements actor.Metrics using Prometheus.
type actorMetrics struct {
	taskDuration  *prometheus.HistogramVec
	tasksTotal    *prometheus.CounterVec
	panicsTotal   *prometheus.CounterVec
	rejectedTotal *prometheus.CounterVec
	poisonedTotal *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
	workersActive *prometheus.GaugeVec
	state         *prometheus.GaugeVec
}

// NewActorMetrics creates a new Prometheus implementation of actor.Metrics.
func NewActorMetrics(reg prometheus.Registerer) actor.Metrics {
	m := &actorMetrics{
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "actq_actor_task_duration_seconds",
			Help:    "Task execution time in seconds",
			Buckets: defaultBuckets,
		}, []string{"actor_id"}),

		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actq_actor_tasks_total",
			Help: "Total number of executed tasks",
		}, []string{"actor_id", "success"}),

		panicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actq_actor_panics_total",
			Help: "Total number of panicking tasks",
		}, []string{"actor_id"}),

		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actq_actor_rejected_total",
			Help: "Total number of submissions refused because the actor was not accepting",
		}, []string{"actor_id"}),

		poisonedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actq_actor_poisoned_total",
			Help: "Total number of queued tasks failed by a poisoned cancel",
		}, []string{"actor_id"}),

		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actq_actor_queue_depth",
			Help: "Current number of queued tasks",
		}, []string{"actor_id"}),

		workersActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actq_actor_workers_active",
			Help: "Number of running worker loops",
		}, []string{"actor_id"}),

		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actq_actor_state",
			Help: "Life-cycle state (0=stopped, 1=starting, 2=started, 3=stopping)",
		}, []string{"actor_id"}),
	}

	reg.MustRegister(
		m.taskDuration,
		m.tasksTotal,
		m.panicsTotal,
		m.rejectedTotal,
		m.poisonedTotal,
		m.queueDepth,
		m.workersActive,
		m.state,
	)

	return m
}

func (m *actorMetrics) TaskDuration(actorID string) metrics.Timer {
	return newTimer(m.taskDuration.WithLabelValues(actorID))
}

func (m *actorMetrics) TaskCompleted(actorID string, success bool) {
	m.tasksTotal.WithLabelValues(actorID, strconv.FormatBool(success)).Inc()
}

func (m *actorMetrics) TaskPanic(actorID string) {
	m.panicsTotal.WithLabelValues(actorID).Inc()
}

func (m *actorMetrics) TaskRejected(actorID string) {
	m.rejectedTotal.WithLabelValues(actorID).Inc()
}

func (m *actorMetrics) TasksPoisoned(actorID string, n int) {
	m.poisonedTotal.WithLabelValues(actorID).Add(float64(n))
}

func (m *actorMetrics) QueueDepth(actorID string, depth int) {
	m.queueDepth.WithLabelValues(actorID).Set(float64(depth))
}

func (m *actorMetrics) WorkersActive(actorID string, n int) {
	m.workersActive.WithLabelValues(actorID).Set(float64(n))
}

func (m *actorMetrics) StateChanged(actorID string, s actor.State) {
	m.state.WithLabelValues(actorID).Set(float64(s))
}

var _ actor.Metrics = (*actorMetrics)(nil)
