// Package confined wraps a value so that every access to it runs on a single
// actor worker.
//
// Typical use-case: in-memory state shared by many goroutines (counters,
// registries, caches) without a mutex in every method:
//
//	v, _ := confined.New(exec.Goroutines(), map[string]int{}, confined.Options[map[string]int]{})
//	_ = v.Update(ctx, func(m *map[string]int) { (*m)["hits"]++ })
//	hits, _ := confined.Read(ctx, v, func(m *map[string]int) int { return (*m)["hits"] })
package confined

import (
	"context"
	"encoding/json"

	"github.com/codewandler/actq-go/core/actor"
	"github.com/codewandler/actq-go/core/exec"
	"github.com/codewandler/actq-go/core/future"
)

type (
	// Op mutates the confined value.
	Op[T any] func(*T)

	Options[T any] struct {
		// Actor configures the underlying actor. Concurrency is forced to 1.
		Actor actor.Options
		// OnChange is called on the actor after every Update.
		OnChange func(*T)
	}

	Value[T any] struct {
		actor    *actor.Actor
		data     *T
		onChange func(*T)
	}
)

func New[T any](ex exec.Executor, initial T, opt Options[T]) (*Value[T], error) {
	opt.Actor.Concurrency = 1
	a, err := actor.New(ex, opt.Actor)
	if err != nil {
		return nil, err
	}
	return &Value[T]{
		actor:    a,
		data:     &initial,
		onChange: opt.OnChange,
	}, nil
}

// Actor returns the actor the value is confined to.
func (v *Value[T]) Actor() *actor.Actor { return v.actor }

// Update applies ops in order, as one unit, and waits for them.
func (v *Value[T]) Update(ctx context.Context, ops ...Op[T]) error {
	return v.actor.Do(ctx, v.apply(ops))
}

// Submit is Update without waiting. The returned future completes once ops
// were applied.
func (v *Value[T]) Submit(ops ...Op[T]) (*future.Future[struct{}], error) {
	apply := v.apply(ops)
	return actor.Submit(v.actor, func() (struct{}, error) {
		return struct{}{}, apply()
	})
}

func (v *Value[T]) apply(ops []Op[T]) func() error {
	return func() error {
		for _, op := range ops {
			op(v.data)
		}
		if v.onChange != nil {
			v.onChange(v.data)
		}
		return nil
	}
}

// Read runs fn against the value and returns its result. fn must not retain
// the pointer.
func Read[T any, R any](ctx context.Context, v *Value[T], fn func(*T) R) (R, error) {
	return actor.Act(ctx, v.actor, func() (R, error) {
		return fn(v.data), nil
	})
}

// Close stops the actor after pending operations ran.
func (v *Value[T]) Close() error { return v.actor.Cancel(nil) }

func (v *Value[T]) MarshalJSON() ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	r, err := Read(context.Background(), v, func(t *T) result {
		d, err := json.Marshal(t)
		return result{d, err}
	})
	if err != nil {
		return nil, err
	}
	return r.data, r.err
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	return v.actor.Do(context.Background(), func() error {
		return json.Unmarshal(data, v.data)
	})
}

var (
	_ json.Marshaler   = (*Value[int])(nil)
	_ json.Unmarshaler = (*Value[int])(nil)
)
