package taskstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todo-go/internal/testutil"
	"github.com/nibzard/todo-go/internal/todo"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

// newTestStore returns a loaded store in the given mode and closes it on cleanup.
func newTestStore(t *testing.T, fake *testutil.FakeKV, mode PersistMode, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithPersistMode(mode), WithClock(fixedClock(1718000000000))}, opts...)
	s := New(fake, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

// assertPersisted checks that the stored value equals the encoded in-memory list.
func assertPersisted(t *testing.T, fake *testutil.FakeKV, s *Store) {
	t.Helper()
	flush(t, s)
	want, err := todo.Encode(s.Tasks())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, ok := fake.Value(DefaultKey)
	if !ok {
		t.Fatal("nothing persisted")
	}
	if got != string(want) {
		t.Errorf("persisted value:\ngot  %s\nwant %s", got, want)
	}
}

var modes = []PersistMode{PersistAsync, PersistSync}

func TestAdd(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			fake := testutil.NewFakeKV()
			s := newTestStore(t, fake, mode)

			for i, title := range []string{"Buy milk", "Call mom", "  padded  "} {
				got := s.Add(title)
				if len(got) != i+1 {
					t.Fatalf("Add(%q): len %d, want %d", title, len(got), i+1)
				}
				last := got[len(got)-1]
				if last.Title != title {
					t.Errorf("Title: got %q, want %q", last.Title, title)
				}
				if last.Completed {
					t.Error("new task should not be completed")
				}
				if last.ID == "" {
					t.Error("new task should have an id")
				}
				assertPersisted(t, fake, s)
			}
		})
	}
}

func TestAddBlankIsNoop(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			fake := testutil.NewFakeKV()
			s := newTestStore(t, fake, mode)
			before := s.Add("Keep")
			flush(t, s)
			setsBefore := len(fake.Sets())

			for _, title := range []string{"", "   ", "\t\n"} {
				if got := s.Add(title); !reflect.DeepEqual(got, before) {
					t.Errorf("Add(%q) changed the list: %+v", title, got)
				}
			}
			flush(t, s)
			if n := len(fake.Sets()); n != setsBefore {
				t.Errorf("blank Add wrote to storage: %d sets, want %d", n, setsBefore)
			}
		})
	}
}

func TestAddAssignsUniqueIncreasingIDs(t *testing.T) {
	fake := testutil.NewFakeKV()
	// Frozen clock: every add happens in the same millisecond.
	s := newTestStore(t, fake, PersistSync)

	var list []todo.Task
	for i := 0; i < 50; i++ {
		list = s.Add(fmt.Sprintf("task %d", i))
	}
	seen := map[string]bool{}
	prev := ""
	for _, task := range list {
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
		if prev != "" && !(len(task.ID) > len(prev) || (len(task.ID) == len(prev) && task.ID > prev)) {
			t.Errorf("id %s not greater than previous %s", task.ID, prev)
		}
		prev = task.ID
	}
	if list[0].ID != "1718000000000" {
		t.Errorf("first id: got %s, want creation timestamp 1718000000000", list[0].ID)
	}
}

func TestToggleCompleted(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			fake := testutil.NewFakeKV()
			s := newTestStore(t, fake, mode)
			s.Add("First")
			s.Add("Second")
			before := s.Add("Third")

			target := before[1].ID
			got := s.ToggleCompleted(target)
			if !got[1].Completed {
				t.Error("toggled task should be completed")
			}
			if got[0] != before[0] || got[2] != before[2] {
				t.Errorf("other tasks changed:\ngot  %+v\nwant %+v", got, before)
			}
			assertPersisted(t, fake, s)

			got = s.ToggleCompleted(target)
			if got[1].Completed {
				t.Error("second toggle should clear completed")
			}
			if !reflect.DeepEqual(got, before) {
				t.Errorf("double toggle should restore the list:\ngot  %+v\nwant %+v", got, before)
			}
			assertPersisted(t, fake, s)
		})
	}
}

func TestToggleUnknownIsNoop(t *testing.T) {
	fake := testutil.NewFakeKV()
	s := newTestStore(t, fake, PersistAsync)
	before := s.Add("Only")
	flush(t, s)
	setsBefore := len(fake.Sets())

	if got := s.ToggleCompleted("nope"); !reflect.DeepEqual(got, before) {
		t.Errorf("ToggleCompleted(nope) changed the list: %+v", got)
	}
	flush(t, s)
	if n := len(fake.Sets()); n != setsBefore {
		t.Errorf("no-op toggle wrote to storage")
	}
}

func TestUpdateTitle(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			fake := testutil.NewFakeKV()
			s := newTestStore(t, fake, mode)
			s.Add("First")
			s.Add("Second")
			before := s.ToggleCompleted(s.Tasks()[1].ID)
			id := before[1].ID

			got := s.UpdateTitle(id, "Renamed")
			if got[1].Title != "Renamed" {
				t.Errorf("Title: got %q, want Renamed", got[1].Title)
			}
			if got[1].ID != id || !got[1].Completed {
				t.Errorf("only the title should change: %+v", got[1])
			}
			if got[0] != before[0] {
				t.Errorf("other task changed: %+v", got[0])
			}
			assertPersisted(t, fake, s)

			for _, blank := range []string{"", "  "} {
				if after := s.UpdateTitle(id, blank); !reflect.DeepEqual(after, got) {
					t.Errorf("UpdateTitle(%q) changed the list: %+v", blank, after)
				}
			}
			if after := s.UpdateTitle("nope", "Whatever"); !reflect.DeepEqual(after, got) {
				t.Errorf("UpdateTitle(nope) changed the list: %+v", after)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			fake := testutil.NewFakeKV()
			s := newTestStore(t, fake, mode)
			s.Add("First")
			s.Add("Second")
			before := s.Add("Third")

			got := s.Delete(before[1].ID)
			want := []todo.Task{before[0], before[2]}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Delete:\ngot  %+v\nwant %+v", got, want)
			}
			assertPersisted(t, fake, s)

			if after := s.Delete(before[1].ID); !reflect.DeepEqual(after, want) {
				t.Errorf("second Delete should be a no-op: %+v", after)
			}
		})
	}
}

func TestEndToEndScenario(t *testing.T) {
	fake := testutil.NewFakeKV()
	s := newTestStore(t, fake, PersistAsync)

	list := s.Add("Buy milk")
	if len(list) != 1 || list[0].Title != "Buy milk" || list[0].Completed {
		t.Fatalf("after add: %+v", list)
	}
	id := list[0].ID
	assertPersisted(t, fake, s)

	list = s.ToggleCompleted(id)
	if !list[0].Completed {
		t.Fatalf("after toggle: %+v", list)
	}
	assertPersisted(t, fake, s)

	list = s.UpdateTitle(id, "Buy oat milk")
	if list[0].Title != "Buy oat milk" || !list[0].Completed {
		t.Fatalf("after update: %+v", list)
	}
	assertPersisted(t, fake, s)

	list = s.Delete(id)
	if len(list) != 0 {
		t.Fatalf("after delete: %+v", list)
	}
	assertPersisted(t, fake, s)
	if v, _ := fake.Value(DefaultKey); v != "[]" {
		t.Errorf("persisted after delete: got %s, want []", v)
	}
}

func TestReturnedListsAreCopies(t *testing.T) {
	s := newTestStore(t, testutil.NewFakeKV(), PersistSync)
	list := s.Add("Original")
	list[0].Title = "Mutated by caller"

	if got := s.Tasks()[0].Title; got != "Original" {
		t.Errorf("store state changed through returned slice: %q", got)
	}
}

func TestLoad(t *testing.T) {
	stored := `[{"id":"10","title":"Stored","completed":true},{"id":"20","title":"Second","completed":false}]`

	fake := testutil.NewFakeKV()
	fake.Put(DefaultKey, stored)
	s := New(fake, WithPersistMode(PersistSync), WithClock(fixedClock(5)))

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []todo.Task{
		{ID: "10", Title: "Stored", Completed: true},
		{ID: "20", Title: "Second", Completed: false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load:\ngot  %+v\nwant %+v", got, want)
	}

	// The clock is behind the stored ids, so new ids continue after them.
	list := s.Add("New")
	if id := list[2].ID; id != "21" {
		t.Errorf("new id after load: got %s, want 21", id)
	}
}

func TestLoadAbsent(t *testing.T) {
	s := New(testutil.NewFakeKV(), WithPersistMode(PersistSync))
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load on empty store: got %#v, want empty list", got)
	}
}

func TestLoadCorruptFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"garbage", "{not json"},
		{"wrong shape", `{"tasks":[]}`},
		{"blank title", `[{"id":"1","title":" ","completed":false}]`},
		{"duplicate ids", `[{"id":"1","title":"a","completed":false},{"id":"1","title":"b","completed":false}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeKV()
			fake.Put(DefaultKey, tt.value)
			s := New(fake, WithPersistMode(PersistSync), WithClock(fixedClock(1718000000000)))

			got, err := s.Load(context.Background())
			if !errors.Is(err, todo.ErrCorrupt) {
				t.Fatalf("Load error: got %v, want ErrCorrupt", err)
			}
			var ce *todo.CorruptError
			if !errors.As(err, &ce) {
				t.Errorf("error should carry *todo.CorruptError: %v", err)
			}
			if len(got) != 0 || len(s.Tasks()) != 0 {
				t.Errorf("corrupt load should leave an empty list, got %+v", got)
			}
			if backup, ok := fake.Value(BackupKey(DefaultKey, time.UnixMilli(1718000000000))); !ok || backup != tt.value {
				t.Errorf("backup: got (%q, %v), want original value", backup, ok)
			}

			// The store stays usable and overwrites the bad value.
			s.Add("Fresh start")
			if v, _ := fake.Value(DefaultKey); !strings.Contains(v, "Fresh start") {
				t.Errorf("persisted after recovery: %s", v)
			}
		})
	}
}

func TestCorruptBackupsDoNotOverwriteEachOther(t *testing.T) {
	fake := testutil.NewFakeKV()
	ms := int64(1718000000000)
	s := New(fake, WithPersistMode(PersistSync), WithClock(func() time.Time { return time.UnixMilli(ms) }))

	fake.Put(DefaultKey, "first bad value")
	if _, err := s.Load(context.Background()); !errors.Is(err, todo.ErrCorrupt) {
		t.Fatalf("first Load: got %v, want ErrCorrupt", err)
	}
	ms += 5000
	fake.Put(DefaultKey, "second bad value")
	if _, err := s.Load(context.Background()); !errors.Is(err, todo.ErrCorrupt) {
		t.Fatalf("second Load: got %v, want ErrCorrupt", err)
	}

	for at, want := range map[int64]string{
		1718000000000: "first bad value",
		1718000005000: "second bad value",
	} {
		key := BackupKey(DefaultKey, time.UnixMilli(at))
		if got, ok := fake.Value(key); !ok || got != want {
			t.Errorf("backup %s: got (%q, %v), want %q", key, got, ok, want)
		}
	}
}

func TestBackupKey(t *testing.T) {
	got := BackupKey("@tasks", time.UnixMilli(1718000000123))
	if want := "@tasks.corrupt.1718000000123"; got != want {
		t.Errorf("BackupKey: got %q, want %q", got, want)
	}
}

func TestLoadReadError(t *testing.T) {
	fake := testutil.NewFakeKV()
	fake.GetErr = errors.New("disk on fire")
	s := New(fake, WithPersistMode(PersistSync))

	got, err := s.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("Load error: got %v, want wrapped read error", err)
	}
	if errors.Is(err, todo.ErrCorrupt) {
		t.Error("read error should not report corruption")
	}
	if len(got) != 0 {
		t.Errorf("read error should leave an empty list, got %+v", got)
	}
}

func TestWriteFailureKeepsMemoryState(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := log.NewWithOptions(&logBuf, log.Options{Level: log.DebugLevel})

			var mu sync.Mutex
			var handled []error
			fake := testutil.NewFakeKV()
			fake.SetErr = errors.New("storage full")
			s := newTestStore(t, fake, mode,
				WithLogger(logger),
				WithErrorHandler(func(err error) {
					mu.Lock()
					handled = append(handled, err)
					mu.Unlock()
				}),
			)

			list := s.Add("Survives")
			if len(list) != 1 {
				t.Fatalf("Add should succeed in memory: %+v", list)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := s.Flush(ctx)
			if err == nil || !strings.Contains(err.Error(), "storage full") {
				t.Errorf("Flush: got %v, want the write error", err)
			}
			if got := s.LastError(); got == nil {
				t.Error("LastError should be set")
			}
			if len(s.Tasks()) != 1 {
				t.Error("in-memory list should keep the mutation")
			}

			mu.Lock()
			n := len(handled)
			mu.Unlock()
			if n != 1 {
				t.Errorf("error handler calls: got %d, want 1", n)
			}
			if !strings.Contains(logBuf.String(), "persist task list failed") {
				t.Errorf("expected error log, got: %s", logBuf.String())
			}
		})
	}
}

func TestErrorHandlerMayReadStoreUnderBackpressure(t *testing.T) {
	fake := testutil.NewFakeKV()
	fake.SetErr = errors.New("storage full")

	var mu sync.Mutex
	calls := 0
	var s *Store
	s = newTestStore(t, fake, PersistAsync,
		WithQueueSize(1),
		WithErrorHandler(func(error) {
			time.Sleep(time.Millisecond)
			_ = s.Tasks()
			mu.Lock()
			calls++
			mu.Unlock()
		}),
	)

	const adds = 10
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < adds; i++ {
			s.Add(fmt.Sprintf("task %d", i))
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Add blocked while the error handler read the store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err == nil || !strings.Contains(err.Error(), "storage full") {
		t.Fatalf("Flush: got %v, want the write error", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != adds {
		t.Errorf("error handler calls: got %d, want %d", calls, adds)
	}
}

func TestAsyncDoesNotWaitForStorage(t *testing.T) {
	fake := testutil.NewFakeKV()
	fake.Gate = make(chan struct{})
	s := newTestStore(t, fake, PersistAsync)

	done := make(chan []todo.Task, 1)
	go func() {
		s.Add("One")
		s.Add("Two")
		done <- s.Add("Three")
	}()

	select {
	case list := <-done:
		if len(list) != 3 {
			t.Fatalf("list: %+v", list)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mutations blocked on a stalled store")
	}

	if _, ok := fake.Value(DefaultKey); ok {
		t.Error("nothing should be persisted while the store is stalled")
	}

	close(fake.Gate)
	flush(t, s)

	sets := fake.Sets()
	if len(sets) != 3 {
		t.Fatalf("sets: got %d, want 3", len(sets))
	}
	for i, call := range sets {
		tasks, err := todo.Decode([]byte(call.Value))
		if err != nil {
			t.Fatalf("set %d not decodable: %v", i, err)
		}
		if len(tasks) != i+1 {
			t.Errorf("set %d: %d tasks, want %d (writes out of order)", i, len(tasks), i+1)
		}
	}
	assertPersisted(t, fake, s)
}

func TestSyncWaitsForStorage(t *testing.T) {
	fake := testutil.NewFakeKV()
	s := newTestStore(t, fake, PersistSync)

	s.Add("Durable")
	// No Flush: sync mode has already written.
	if v, ok := fake.Value(DefaultKey); !ok || !strings.Contains(v, "Durable") {
		t.Errorf("sync Add should have persisted, got %q", v)
	}
}

func TestConcurrentMutations(t *testing.T) {
	fake := testutil.NewFakeKV()
	s := newTestStore(t, fake, PersistAsync, WithQueueSize(4))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			list := s.Add(fmt.Sprintf("task %d", i))
			s.ToggleCompleted(list[len(list)-1].ID)
		}(i)
	}
	wg.Wait()

	tasks := s.Tasks()
	if len(tasks) != 20 {
		t.Fatalf("tasks: got %d, want 20", len(tasks))
	}
	seen := map[string]bool{}
	for _, task := range tasks {
		if seen[task.ID] {
			t.Errorf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
	assertPersisted(t, fake, s)
}

func TestCloseSwitchesToSync(t *testing.T) {
	fake := testutil.NewFakeKV()
	s := New(fake, WithPersistMode(PersistAsync))
	s.Add("Before close")

	ctx := context.Background()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if v, _ := fake.Value(DefaultKey); !strings.Contains(v, "Before close") {
		t.Errorf("Close should drain pending writes, got %q", v)
	}

	s.Add("After close")
	if v, _ := fake.Value(DefaultKey); !strings.Contains(v, "After close") {
		t.Errorf("post-Close mutation should persist synchronously, got %q", v)
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestFlushHonorsContext(t *testing.T) {
	fake := testutil.NewFakeKV()
	fake.Gate = make(chan struct{})
	s := New(fake, WithPersistMode(PersistAsync))
	defer func() {
		close(fake.Gate)
		_ = s.Close(context.Background())
	}()

	s.Add("Stuck")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush: got %v, want DeadlineExceeded", err)
	}
}

func TestWithKey(t *testing.T) {
	fake := testutil.NewFakeKV()
	s := New(fake, WithKey("lists/home"), WithPersistMode(PersistSync))
	s.Add("Keyed")

	if s.Key() != "lists/home" {
		t.Errorf("Key: got %s", s.Key())
	}
	if _, ok := fake.Value("lists/home"); !ok {
		t.Error("value not stored under custom key")
	}
	if _, ok := fake.Value(DefaultKey); ok {
		t.Error("value should not be stored under default key")
	}
}

func TestGet(t *testing.T) {
	s := newTestStore(t, testutil.NewFakeKV(), PersistSync)
	list := s.Add("Findable")

	task, ok := s.Get(list[0].ID)
	if !ok || task.Title != "Findable" {
		t.Errorf("Get: got (%+v, %v)", task, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
}
