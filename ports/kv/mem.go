package kv

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/codewandler/actq-go/core/actor"
	"github.com/codewandler/actq-go/core/confined"
	"github.com/codewandler/actq-go/core/exec"
)

type memEntry struct {
	entry     Entry
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type memData map[string]memEntry

// MemStore keeps entries in a map owned by a single actor, so no locking is
// needed around it.
type MemStore struct {
	data *confined.Value[memData]
	now  func() time.Time
}

// NewMemStore creates a store whose map is owned by an actor configured with
// opt. An empty opt.ID gets a generated one.
func NewMemStore(ex exec.Executor, opt actor.Options) (*MemStore, error) {
	data, err := confined.New(ex, memData{}, confined.Options[memData]{Actor: opt})
	if err != nil {
		return nil, err
	}
	return &MemStore{data: data, now: time.Now}, nil
}

func (m *MemStore) Put(ctx context.Context, key string, entry Entry, opts PutOptions) error {
	// the store keeps its own copies so callers cannot mutate stored entries
	e := memEntry{entry: Entry{
		Data: slices.Clone(entry.Data),
		Meta: maps.Clone(entry.Meta),
	}}
	if opts.TTL > 0 {
		e.expiresAt = m.now().Add(opts.TTL)
	}
	return m.data.Update(ctx, func(d *memData) { (*d)[key] = e })
}

func (m *MemStore) Get(ctx context.Context, key string) (Entry, error) {
	type result struct {
		entry Entry
		ok    bool
	}
	now := m.now()
	r, err := confined.Read(ctx, m.data, func(d *memData) result {
		e, ok := (*d)[key]
		if !ok {
			return result{}
		}
		if e.expired(now) {
			delete(*d, key)
			return result{}
		}
		return result{Entry{Data: slices.Clone(e.entry.Data), Meta: maps.Clone(e.entry.Meta)}, true}
	})
	if err != nil {
		return Entry{}, err
	}
	if !r.ok {
		return Entry{}, ErrNotFound
	}
	return r.entry, nil
}

func (m *MemStore) Delete(ctx context.Context, key string) error {
	return m.data.Update(ctx, func(d *memData) { delete(*d, key) })
}

// Keys returns the live keys in sorted order.
func (m *MemStore) Keys(ctx context.Context) ([]string, error) {
	now := m.now()
	return confined.Read(ctx, m.data, func(d *memData) []string {
		keys := make([]string, 0, len(*d))
		for k, e := range *d {
			if e.expired(now) {
				delete(*d, k)
				continue
			}
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys
	})
}

// ID returns the ID of the actor owning the store, as used in logs and metrics.
func (m *MemStore) ID() string { return m.data.Actor().ID() }

// Close stops the store's actor after pending operations ran.
func (m *MemStore) Close() error { return m.data.Close() }

var _ Store = (*MemStore)(nil)
