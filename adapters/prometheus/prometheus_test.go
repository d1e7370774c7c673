package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/actq-go/core/actor"
	"github.com/codewandler/actq-go/core/exec"
)

func TestNewActorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewActorMetrics(reg)

	require.NotNil(t, m)

	timer := m.TaskDuration("actor-123")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.TaskCompleted("actor-123", true)
	m.TaskCompleted("actor-123", false)
	m.TaskPanic("actor-123")
	m.TaskRejected("actor-123")
	m.TasksPoisoned("actor-123", 3)
	m.QueueDepth("actor-123", 10)
	m.WorkersActive("actor-123", 2)
	m.StateChanged("actor-123", actor.Stopping)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["actq_actor_task_duration_seconds"])
	assert.True(t, names["actq_actor_tasks_total"])
	assert.True(t, names["actq_actor_queue_depth"])
	assert.True(t, names["actq_actor_state"])

	am := m.(*actorMetrics)
	assert.Equal(t, 3.0, testutil.ToFloat64(am.poisonedTotal.WithLabelValues("actor-123")))
	assert.Equal(t, 3.0, testutil.ToFloat64(am.state.WithLabelValues("actor-123")))
}

func TestActorMetrics_WithActor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewActorMetrics(reg)

	a, err := actor.New(exec.Goroutines(), actor.Options{ID: "counter", Metrics: m})
	require.NoError(t, err)

	counter := 0
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Do(t.Context(), func() error { counter++; return nil }))
	}
	require.NoError(t, a.Cancel(nil))

	am := m.(*actorMetrics)
	assert.Equal(t, 5.0, testutil.ToFloat64(am.tasksTotal.WithLabelValues("counter", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(am.workersActive.WithLabelValues("counter")))
	assert.Equal(t, float64(actor.Stopped), testutil.ToFloat64(am.state.WithLabelValues("counter")))
}
