package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("kv store closed")

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key. ok is false if key was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
