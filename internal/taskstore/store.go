package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todo-go/internal/kv"
	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/todo"
)

// Store is the task list and its write-through persistence.
type Store struct {
	kv        kv.Store
	key       string
	logger    *log.Logger
	ids       *idSource
	mode      PersistMode
	queueSize int
	onError   func(error)

	mu    sync.Mutex
	tasks []todo.Task
	w     *writer // nil when writing synchronously

	errMu   sync.Mutex
	lastErr error
}

// New creates a Store over store. Call Load before the first mutation to pick
// up a previously saved list, and Close when done.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:        store,
		key:       DefaultKey,
		logger:    logging.Discard(),
		ids:       newIDSource(),
		mode:      PersistAsync,
		queueSize: DefaultQueueSize,
		tasks:     []todo.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("key", s.key)
	if s.mode == PersistAsync {
		s.startWriter()
	}
	return s
}

// Key returns the kv key holding the list.
func (s *Store) Key() string {
	return s.key
}

// Mode returns the persistence mode.
func (s *Store) Mode() PersistMode {
	return s.mode
}

// Load replaces the in-memory list with the stored one. The returned list is
// always usable; a non-nil error reports why it is empty.
func (s *Store) Load(ctx context.Context) ([]todo.Task, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = []todo.Task{}
	if err != nil {
		s.logger.Error("read task list failed, starting empty", "err", err)
		return todo.Clone(s.tasks), fmt.Errorf("load %q: %w", s.key, err)
	}
	if !ok {
		s.logger.Debug("no stored task list, starting empty")
		return todo.Clone(s.tasks), nil
	}

	tasks, err := todo.Decode([]byte(raw))
	if err != nil {
		backup := BackupKey(s.key, s.ids.now())
		s.logger.Warn("stored task list is corrupt, starting empty", "backup", backup, "err", err)
		if berr := s.kv.Set(ctx, backup, raw); berr != nil {
			s.logger.Error("backup of corrupt task list failed", "backup", backup, "err", berr)
		}
		return todo.Clone(s.tasks), fmt.Errorf("load %q: %w", s.key, err)
	}

	s.tasks = tasks
	s.ids.observe(tasks)
	s.logger.Debug("task list loaded", "count", len(tasks))
	return todo.Clone(s.tasks), nil
}

// Tasks returns a copy of the current list.
func (s *Store) Tasks() []todo.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return todo.Clone(s.tasks)
}

// Get returns the task with id.
func (s *Store) Get(id string) (todo.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := todo.Index(s.tasks, id); i >= 0 {
		return s.tasks[i], true
	}
	return todo.Task{}, false
}

// Add appends a new incomplete task. A blank title is ignored.
func (s *Store) Add(title string) []todo.Task {
	return s.mutate("add", func(cur []todo.Task) ([]todo.Task, bool) {
		if todo.IsBlank(title) {
			return nil, false
		}
		next := make([]todo.Task, len(cur), len(cur)+1)
		copy(next, cur)
		task := todo.Task{ID: s.ids.next(cur), Title: title, Completed: false}
		s.logger.Debug("task added", "id", task.ID)
		return append(next, task), true
	})
}

// ToggleCompleted flips the completed flag of the task with id. Unknown ids are ignored.
func (s *Store) ToggleCompleted(id string) []todo.Task {
	return s.mutate("toggle", func(cur []todo.Task) ([]todo.Task, bool) {
		i := todo.Index(cur, id)
		if i < 0 {
			return nil, false
		}
		next := todo.Clone(cur)
		next[i].Completed = !next[i].Completed
		s.logger.Debug("task toggled", "id", id, "completed", next[i].Completed)
		return next, true
	})
}

// UpdateTitle replaces the title of the task with id. A blank title or an
// unknown id is ignored.
func (s *Store) UpdateTitle(id, title string) []todo.Task {
	return s.mutate("update", func(cur []todo.Task) ([]todo.Task, bool) {
		if todo.IsBlank(title) {
			return nil, false
		}
		i := todo.Index(cur, id)
		if i < 0 {
			return nil, false
		}
		next := todo.Clone(cur)
		next[i].Title = title
		s.logger.Debug("task retitled", "id", id)
		return next, true
	})
}

// Delete removes the task with id. Unknown ids are ignored.
func (s *Store) Delete(id string) []todo.Task {
	return s.mutate("delete", func(cur []todo.Task) ([]todo.Task, bool) {
		i := todo.Index(cur, id)
		if i < 0 {
			return nil, false
		}
		next := make([]todo.Task, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		s.logger.Debug("task deleted", "id", id)
		return next, true
	})
}

// mutate applies fn to the current list. When fn reports a change, the new
// list becomes current and is persisted.
func (s *Store) mutate(op string, fn func([]todo.Task) ([]todo.Task, bool)) []todo.Task {
	s.mu.Lock()
	next, changed := fn(s.tasks)
	if !changed {
		out := todo.Clone(s.tasks)
		s.mu.Unlock()
		s.logger.Debug("no-op", "op", op)
		return out
	}
	s.tasks = next
	out := todo.Clone(next)
	err := s.persistLocked(next)
	s.mu.Unlock()

	if err != nil {
		s.fail(err)
	}
	return out
}

// persistLocked hands the serialized list to the writer, or writes it in
// sync mode. s.mu must be held so snapshots are queued in mutation order.
func (s *Store) persistLocked(tasks []todo.Task) error {
	data, err := todo.Encode(tasks)
	if err != nil {
		return err
	}
	if s.w != nil {
		s.w.queue <- writeJob{value: string(data)}
		return nil
	}
	return s.write(context.Background(), string(data))
}

func (s *Store) write(ctx context.Context, value string) error {
	if err := s.kv.Set(ctx, s.key, value); err != nil {
		return fmt.Errorf("persist %q: %w", s.key, err)
	}
	return nil
}

// fail records a synchronous write failure and reports it. It runs on the
// mutating goroutine after s.mu is released.
func (s *Store) fail(err error) {
	s.record(err)
	if s.onError != nil {
		s.onError(err)
	}
}

// record logs err and keeps it as LastError.
func (s *Store) record(err error) {
	s.logger.Error("persist task list failed", "err", err)
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

// LastError returns the most recent write failure, or nil.
func (s *Store) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// Flush waits until every write queued so far has been attempted, and the
// error handler has seen its failures, then returns LastError. In sync mode
// it returns immediately.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	w := s.w
	if w == nil {
		s.mu.Unlock()
		return s.LastError()
	}
	ack := make(chan struct{})
	select {
	case w.queue <- writeJob{ack: ack}:
	case <-ctx.Done():
		s.mu.Unlock()
		return ctx.Err()
	}
	s.mu.Unlock()

	select {
	case <-ack:
		return s.LastError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the writer. Mutations after Close
// are written synchronously.
func (s *Store) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	s.mu.Lock()
	w := s.w
	s.w = nil
	s.mu.Unlock()
	if w == nil {
		return err
	}

	close(w.queue)
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
