package taskstore

import (
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// PersistMode selects when a mutation's write reaches the kv store.
type PersistMode string

const (
	// PersistAsync queues writes and returns immediately.
	PersistAsync PersistMode = "async"
	// PersistSync writes before returning.
	PersistSync PersistMode = "sync"
)

// Defaults.
const (
	DefaultKey       = "@tasks"
	DefaultQueueSize = 64

	// CorruptSuffix marks backups of unreadable values.
	CorruptSuffix = ".corrupt"
)

// BackupKey returns the key a corrupt value under key is copied to at t:
// key + CorruptSuffix + "." + t in Unix milliseconds. Each load keeps its own copy.
func BackupKey(key string, t time.Time) string {
	return key + CorruptSuffix + "." + strconv.FormatInt(t.UnixMilli(), 10)
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the kv key holding the list.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for new task ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.ids.now = now
		}
	}
}

// WithPersistMode selects async or sync writes.
func WithPersistMode(mode PersistMode) Option {
	return func(s *Store) {
		if mode == PersistSync || mode == PersistAsync {
			s.mode = mode
		}
	}
}

// WithQueueSize bounds the async write queue. A full queue blocks mutations.
func WithQueueSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithErrorHandler is called with every write failure, in write order. In
// async mode it runs on a dedicated goroutine and may read or mutate the
// Store, but must not call Flush or Close. In sync mode it runs on the
// mutating goroutine after the Store is unlocked.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Store) {
		s.onError = fn
	}
}
