// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"
)

// SetCall records one Set on a FakeKV.
type SetCall struct {
	Key   string
	Value string
}

// FakeKV is an in-memory kv.Store with error injection for testing.
type FakeKV struct {
	mu     sync.Mutex
	values map[string]string
	sets   []SetCall

	// Error injection for testing
	GetErr error
	SetErr error
	// SetErrKeys fails Set only for the listed keys.
	SetErrKeys map[string]error

	// Gate, when non-nil, blocks every Set until a value is received.
	Gate chan struct{}
}

// NewFakeKV creates an empty FakeKV.
func NewFakeKV() *FakeKV {
	return &FakeKV{
		values:     make(map[string]string),
		SetErrKeys: make(map[string]error),
	}
}

// Put seeds a value without recording a Set call.
func (f *FakeKV) Put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}

// Value returns the stored value for key.
func (f *FakeKV) Value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// Sets returns a copy of every Set call, including failed ones, in order.
func (f *FakeKV) Sets() []SetCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SetCall, len(f.sets))
	copy(out, f.sets)
	return out
}

// Get implements kv.Store.
func (f *FakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return "", false, f.GetErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

// Set implements kv.Store.
func (f *FakeKV) Set(ctx context.Context, key, value string) error {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, SetCall{Key: key, Value: value})
	if f.SetErr != nil {
		return f.SetErr
	}
	if err := f.SetErrKeys[key]; err != nil {
		return err
	}
	f.values[key] = value
	return nil
}
