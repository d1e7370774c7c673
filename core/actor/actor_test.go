package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/actq-go/core/exec"
	"github.com/codewandler/actq-go/core/future"
)

func newTestActor(t *testing.T, opt Options) *Actor {
	t.Helper()

	a, err := New(exec.Goroutines(), opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Cancel(nil) })
	return a
}

// countingExecutor records how many worker groups were spawned.
type countingExecutor struct {
	spawns atomic.Int32
}

func (c *countingExecutor) Spawn(ctx context.Context, n int, fn exec.WorkerFunc) exec.Group {
	c.spawns.Add(1)
	return exec.Goroutines().Spawn(ctx, n, fn)
}

func TestActor_New(t *testing.T) {
	_, err := New(nil, Options{})
	require.ErrorIs(t, err, ErrNilExecutor)

	_, err = New(exec.Goroutines(), Options{Concurrency: -1})
	require.ErrorIs(t, err, ErrInvalidConcurrency)

	a := newTestActor(t, Options{})
	require.Equal(t, 1, a.Concurrency())
	require.NotEmpty(t, a.ID())
	require.Equal(t, Lazy, a.Policy())

	a = newTestActor(t, Options{ID: "counter", Concurrency: 4})
	require.Equal(t, "counter", a.ID())
	require.Equal(t, 4, a.Concurrency())
}

func TestActor_sequential(t *testing.T) {
	a := newTestActor(t, Options{})

	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Do(t.Context(), func() error {
				counter += 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := Act(t.Context(), a, func() (int, error) { return counter, nil })
	require.NoError(t, err)
	require.Equal(t, 100, v)
}

func TestActor_concurrent_workers_interleave(t *testing.T) {
	a := newTestActor(t, Options{Concurrency: 2})

	// Both operations read before either writes, which can only happen when
	// they run on different workers at the same time.
	var (
		counter atomic.Int64
		loaded  sync.WaitGroup
	)
	loaded.Add(2)
	inc := func() error {
		v := counter.Load()
		loaded.Done()
		loaded.Wait()
		counter.Store(v + 1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Do(t.Context(), inc))
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), counter.Load(), "lost update expected with concurrency > 1")
}

func TestActor_state_transitions(t *testing.T) {
	a := newTestActor(t, Options{})

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, Stopped, a.State())
	require.False(t, a.Accepting())

	require.NoError(t, a.Do(t.Context(), func() error { return nil }))
	require.Equal(t, Started, a.State())
	require.True(t, a.Accepting())
	require.Eventually(t, func() bool { return a.Workers() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, a.Cancel(nil))
	require.Equal(t, Stopped, a.State())
	require.False(t, a.Accepting())
	require.Equal(t, 0, a.Workers())
	require.Equal(t, 0, a.Pending())
}

func TestActor_start_observes_transient_state(t *testing.T) {
	a := newTestActor(t, Options{Concurrency: 4})

	done := make(chan struct{})
	seen := make(chan State, 1024)
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			seen <- a.State()
		}
	}()
	a.Start()
	<-done
	close(seen)

	// Starting may or may not be observed; nothing else is valid.
	for s := range seen {
		require.Contains(t, []State{Stopped, Starting, Started}, s)
	}
	require.Equal(t, Started, a.State())
}

func TestActor_graceful_cancel_drains(t *testing.T) {
	a := newTestActor(t, Options{})

	release := make(chan struct{})
	blocked := make(chan struct{})
	first, err := Submit(a, func() (int, error) {
		close(blocked)
		<-release
		return -1, nil
	})
	require.NoError(t, err)
	<-blocked

	const n = 20
	futures := make([]*future.Future[int], n)
	for i := 0; i < n; i++ {
		futures[i], err = Submit(a, func() (int, error) { return i * 2, nil })
		require.NoError(t, err)
	}
	require.Equal(t, n, a.Pending())

	canceled := make(chan error, 1)
	go func() { canceled <- a.Cancel(nil) }()

	require.Eventually(t, func() bool { return a.State() == Stopping }, time.Second, time.Millisecond)
	require.False(t, a.Accepting())

	_, err = Submit(a, func() (int, error) { return 0, nil })
	require.ErrorIs(t, err, ErrNotAccepting)

	close(release)

	select {
	case err := <-canceled:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancel did not return")
	}

	v, err, ok := first.Result()
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, -1, v)

	for i, f := range futures {
		v, err, ok := f.Result()
		require.True(t, ok, "task %d not completed before cancel returned", i)
		require.NoError(t, err)
		require.Equal(t, i*2, v)
	}
	require.Equal(t, Stopped, a.State())
}

func TestActor_poisoned_cancel(t *testing.T) {
	a := newTestActor(t, Options{})
	cause := errors.New("shutdown")

	release := make(chan struct{})
	blocked := make(chan struct{})
	first, err := Submit(a, func() (string, error) {
		close(blocked)
		<-release
		return "finished", nil
	})
	require.NoError(t, err)
	<-blocked

	var ran atomic.Int32
	queued := make([]*future.Future[int], 10)
	for i := range queued {
		queued[i], err = Submit(a, func() (int, error) {
			ran.Add(1)
			return i, nil
		})
		require.NoError(t, err)
	}

	canceled := make(chan error, 1)
	go func() { canceled <- a.Cancel(cause) }()

	// queued tasks fail while the running one is still blocked
	for _, f := range queued {
		_, err := f.Await(t.Context())
		require.ErrorIs(t, err, ErrPoisoned)
		require.ErrorIs(t, err, cause)
	}
	require.Equal(t, Stopping, a.State())

	close(release)
	require.NoError(t, <-canceled)

	v, err := first.Await(t.Context())
	require.NoError(t, err)
	require.Equal(t, "finished", v)
	require.Equal(t, int32(0), ran.Load())
	require.Equal(t, Stopped, a.State())
}

func TestActor_idempotent_start_cancel(t *testing.T) {
	ex := &countingExecutor{}
	a, err := New(ex, Options{Concurrency: 3})
	require.NoError(t, err)

	a.Start()
	a.Start()
	require.Equal(t, int32(1), ex.spawns.Load())
	require.Equal(t, Started, a.State())

	require.NoError(t, a.Cancel(nil))
	require.NoError(t, a.Cancel(nil))
	require.NoError(t, a.Cancel(errors.New("ignored")))
	require.Equal(t, Stopped, a.State())

	// a new cycle gets a new group
	a.Start()
	require.Equal(t, int32(2), ex.spawns.Load())
	require.NoError(t, a.Do(t.Context(), func() error { return nil }))
	require.NoError(t, a.Cancel(nil))
}

func TestActor_cancel_stopped_is_noop(t *testing.T) {
	ex := &countingExecutor{}
	a, err := New(ex, Options{})
	require.NoError(t, err)

	require.NoError(t, a.Cancel(nil))
	require.Equal(t, Stopped, a.State())

	// no effective cancel happened, so the lazy start still applies
	require.NoError(t, a.Do(t.Context(), func() error { return nil }))
	require.Equal(t, int32(1), ex.spawns.Load())
	require.NoError(t, a.Cancel(nil))
}

func TestActor_end_to_end(t *testing.T) {
	a := newTestActor(t, Options{Start: Lazy, Concurrency: 1})

	counter := 0
	for i := 1; i <= 100; i++ {
		v, err := Act(t.Context(), a, func() (int, error) {
			counter += 1
			return counter, nil
		})
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	require.Equal(t, 100, counter)

	require.NoError(t, a.Cancel(nil))

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	_, err := Act(ctx, a, func() (int, error) { return 0, nil })
	require.ErrorIs(t, err, ErrNotAccepting)

	// explicit start re-enables the actor
	a.Start()
	v, err := Act(ctx, a, func() (int, error) { return counter, nil })
	require.NoError(t, err)
	require.Equal(t, 100, v)
}

func TestActor_eager(t *testing.T) {
	ex := &countingExecutor{}
	a, err := New(ex, Options{Start: Eager, Concurrency: 2})
	require.NoError(t, err)
	require.Equal(t, Started, a.State())
	require.Equal(t, int32(1), ex.spawns.Load())

	require.NoError(t, a.Cancel(nil))
	err = a.Do(t.Context(), func() error { return nil })
	require.ErrorIs(t, err, ErrNotAccepting)
	require.Equal(t, int32(1), ex.spawns.Load())
}

func TestActor_operation_errors_are_local(t *testing.T) {
	a := newTestActor(t, Options{})
	boom := errors.New("boom")

	err := a.Do(t.Context(), func() error { return boom })
	require.ErrorIs(t, err, boom)

	v, err := Act(t.Context(), a, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}

func TestActor_panic_containment(t *testing.T) {
	var (
		mu        sync.Mutex
		recovered []any
	)
	a := newTestActor(t, Options{
		OnPanic: func(r any, stack []byte) {
			mu.Lock()
			defer mu.Unlock()
			recovered = append(recovered, r)
		},
	})

	_, err := Act(t.Context(), a, func() (int, error) { panic("uups") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "uups", pe.Value)
	require.NotEmpty(t, pe.Stack)

	boom := errors.New("boom")
	err = a.Do(t.Context(), func() error { panic(boom) })
	require.ErrorIs(t, err, boom)

	// the worker survived
	v, err := Act(t.Context(), a, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, recovered, 2)
}

func TestActor_context(t *testing.T) {
	a := newTestActor(t, Options{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ran := false
	err := a.Do(ctx, func() error { ran = true; return nil })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Stopped, a.State(), "nothing submitted, no lazy start")

	// the caller gives up, the operation still runs
	release := make(chan struct{})
	done := make(chan struct{})
	ctx, cancel = context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	err = a.Do(ctx, func() error {
		<-release
		close(done)
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("operation did not run")
	}
	require.False(t, ran)
}

func TestActor_fifo_once_accepted(t *testing.T) {
	a := newTestActor(t, Options{})

	var order []int
	futures := make([]*future.Future[struct{}], 50)
	for i := range futures {
		f, err := Submit(a, func() (struct{}, error) {
			order = append(order, i)
			return struct{}{}, nil
		})
		require.NoError(t, err)
		futures[i] = f
	}
	for _, f := range futures {
		_, err := f.Await(t.Context())
		require.NoError(t, err)
	}

	for i, v := range order {
		require.Equal(t, i, v)
	}
}
