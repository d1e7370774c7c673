// Package kv defines a small key/value store port with typed JSON helpers.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
)

// Entry is a stored value. Meta travels with Data and is returned as stored.
type Entry struct {
	Data []byte
	Meta map[string]any
}

type PutOptions struct {
	TTL time.Duration
}

type Store interface {
	Put(ctx context.Context, key string, entry Entry, opts PutOptions) error
	Get(ctx context.Context, key string) (entry Entry, err error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Put stores v as JSON. meta, if given, is attached to the entry.
func Put[T any](ctx context.Context, store Store, key string, v T, opts PutOptions, meta ...map[string]any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	entry := Entry{Data: data}
	if len(meta) > 0 {
		entry.Meta = meta[0]
	}
	return store.Put(ctx, key, entry, opts)
}

func Get[T any](ctx context.Context, store Store, key string) (out T, err error) {
	entry, err := store.Get(ctx, key)
	if err != nil {
		return
	}
	err = json.Unmarshal(entry.Data, &out)
	return
}
