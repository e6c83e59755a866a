package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// exerciseStore runs the behavior every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "@tasks"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set(ctx, "@tasks", `[]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := s.Get(ctx, "@tasks")
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if v != `[]` {
		t.Errorf("Get: got %q, want []", v)
	}

	if err := s.Set(ctx, "@tasks", `[{"id":"1","title":"a","completed":false}]`); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}
	v, _, _ = s.Get(ctx, "@tasks")
	if !strings.Contains(v, `"id":"1"`) {
		t.Errorf("Get after overwrite: got %q", v)
	}

	if _, ok, _ := s.Get(ctx, "@other"); ok {
		t.Error("unrelated key should be absent")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	s, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if err := first.Set(ctx, "@tasks", "persisted"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	second, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile (reopen) failed: %v", err)
	}
	v, ok, err := second.Get(ctx, "@tasks")
	if err != nil || !ok || v != "persisted" {
		t.Errorf("Get after reopen: got (%q, %v, %v), want (persisted, true, nil)", v, ok, err)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Set(context.Background(), "@tasks", "v"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected exactly one file, got %v", names)
	}
}

func TestFileStoreEmptyDir(t *testing.T) {
	if _, err := NewFile(""); err == nil {
		t.Error("NewFile(\"\") should fail")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"tasks", "tasks.json"},
		{"@tasks", "%40tasks.json"},
		{"@tasks.corrupt", "%40tasks.corrupt.json"},
		{"a/b", "a%2Fb.json"},
		{".hidden", "%2Ehidden.json"},
		{"100%", "100%25.json"},
	}

	for _, tt := range tests {
		if got := fileName(tt.key); got != tt.want {
			t.Errorf("fileName(%q): got %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFileStorePathStaysInDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	p := s.Path("../../etc/passwd")
	if filepath.Dir(p) != dir {
		t.Errorf("Path escaped dir: %s", p)
	}
}

func TestStoresRespectCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	for name, s := range map[string]Store{"memory": NewMemory(), "file": f} {
		if err := s.Set(ctx, "k", "v"); !errors.Is(err, context.Canceled) {
			t.Errorf("%s Set: got %v, want context.Canceled", name, err)
		}
		if _, _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
			t.Errorf("%s Get: got %v, want context.Canceled", name, err)
		}
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(ctx, "k", "v")
			_, _, _ = s.Get(ctx, "k")
		}(i)
	}
	wg.Wait()

	if s.Keys() != 1 {
		t.Errorf("Keys: got %d, want 1", s.Keys())
	}
}
