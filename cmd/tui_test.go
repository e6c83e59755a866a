package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/taskstore"
	"github.com/nibzard/todo-go/internal/testutil"
	"github.com/nibzard/todo-go/internal/todo"
)

func newTestSession(fake *testutil.FakeKV) *session {
	return &session{
		Store:   taskstore.New(fake, taskstore.WithPersistMode(taskstore.PersistSync)),
		release: func() error { return nil },
		logger:  logging.Discard(),
	}
}

func TestLoadForTUIStopsOnReadError(t *testing.T) {
	fake := testutil.NewFakeKV()
	fake.Put(taskstore.DefaultKey, `[{"id":"1","title":"keep me","completed":false}]`)
	fake.GetErr = errors.New("connection refused")
	s := newTestSession(fake)
	defer s.close()

	opts, err := loadForTUI(context.Background(), s)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("loadForTUI: got %v, want the read error", err)
	}
	if errors.Is(err, todo.ErrCorrupt) {
		t.Error("read error should not be reported as corruption")
	}
	if opts != nil {
		t.Errorf("no screen options expected on failure, got %d", len(opts))
	}
	if sets := fake.Sets(); len(sets) != 0 {
		t.Errorf("nothing should be written after a read failure, got %+v", sets)
	}
	if v, _ := fake.Value(taskstore.DefaultKey); !strings.Contains(v, "keep me") {
		t.Errorf("stored list changed: %s", v)
	}
}

func TestLoadForTUIContinuesOnCorruptValue(t *testing.T) {
	fake := testutil.NewFakeKV()
	fake.Put(taskstore.DefaultKey, "{not json")
	s := newTestSession(fake)
	defer s.close()

	opts, err := loadForTUI(context.Background(), s)
	if err != nil {
		t.Fatalf("loadForTUI: got %v, want nil for a corrupt value", err)
	}
	if len(opts) != 1 {
		t.Errorf("expected the load error to reach the status line, got %d options", len(opts))
	}
	if len(s.Tasks()) != 0 {
		t.Errorf("corrupt value should start empty, got %+v", s.Tasks())
	}
}

func TestLoadForTUIClean(t *testing.T) {
	s := newTestSession(testutil.NewFakeKV())
	defer s.close()

	opts, err := loadForTUI(context.Background(), s)
	if err != nil || opts != nil {
		t.Errorf("loadForTUI on an empty store: got %v, %v", opts, err)
	}
}
