package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/nibzard/todo-go/internal/config"
	"github.com/nibzard/todo-go/internal/kv"
	"github.com/nibzard/todo-go/internal/kv/mysql"
	"github.com/nibzard/todo-go/internal/logging"
	"github.com/nibzard/todo-go/internal/taskstore"
	"github.com/nibzard/todo-go/internal/tododir"
)

// session is a task store bound to its backend for one command.
type session struct {
	*taskstore.Store
	release func() error
	logger  *log.Logger
}

// openStore builds the configured backend and a task store over it. One-shot
// commands pass sync so writes land before the process exits.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger, sync bool) (*session, error) {
	backend, release, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mode := taskstore.PersistMode(cfg.PersistMode)
	if sync {
		mode = taskstore.PersistSync
	}
	store := taskstore.New(backend,
		taskstore.WithKey(cfg.Key),
		taskstore.WithLogger(logger),
		taskstore.WithPersistMode(mode),
		taskstore.WithQueueSize(cfg.QueueSize),
	)
	logger.Debug("store opened", "backend", cfg.Backend, "key", cfg.Key, "mode", mode)
	return &session{Store: store, release: release, logger: logger}, nil
}

// close drains pending writes and releases the backend.
func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := s.Close(ctx)
	if err != nil {
		s.logger.Error("closing store", "err", err)
	}
	if rerr := s.release(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func openBackend(ctx context.Context, cfg *config.Config) (kv.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemory(), noop, nil
	case config.BackendFile:
		s, err := kv.NewFile(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening data dir: %w", err)
		}
		return s, noop, nil
	case config.BackendMySQL:
		s, err := mysql.Open(ctx, cfg.MySQLDSN, cfg.MySQLTable)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// newLogger writes to stderr, or to a file when one is configured. The
// terminal UI always logs to a file so output does not tear the screen.
func newLogger(cfg *config.Config, tui bool) (*log.Logger, func(), error) {
	path := cfg.LogFile
	if path == "" && tui {
		home, err := tododir.Home()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving state dir: %w", err)
		}
		path = tododir.LogPath(home)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	logger := logging.NewFromConfig(w, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
	return logger, closeFn, nil
}
