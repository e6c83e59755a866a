// Package mysql implements kv.Store on a MySQL table.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"

	"github.com/nibzard/todo-go/internal/kv"
)

var _ kv.Store = (*Store)(nil)

// DefaultTable is the table used when none is configured.
const DefaultTable = "todo_kv"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// Store keeps key-value pairs in one MySQL table.
type Store struct {
	db     *sql.DB
	table  string
	closed atomic.Bool
}

// Open connects to dsn, checks the connection, and creates table if missing.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql dsn is empty")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	s, err := New(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool.
func New(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid mysql table name %q", table)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	s := &Store{db: db, table: table}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate mysql: %w", err)
	}
	return s, nil
}

// Close closes the connection pool. Get and Set then return kv.ErrClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createTableSQL(s.table))
	return err
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, kv.ErrClosed
	}
	var v string
	err := s.db.QueryRowContext(ctx, selectSQL(s.table), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get key %q: %w", key, err)
	}
	return v, true, nil
}

// Set implements kv.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return kv.ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL(s.table), key, value); err != nil {
		return fmt.Errorf("set key %q: %w", key, err)
	}
	return nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n"+
		"    k VARCHAR(191) NOT NULL PRIMARY KEY,\n"+
		"    v LONGTEXT NOT NULL,\n"+
		"    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP\n"+
		") DEFAULT CHARSET=utf8mb4", table)
}

func selectSQL(table string) string {
	return fmt.Sprintf("SELECT v FROM `%s` WHERE k = ?", table)
}

func upsertSQL(table string) string {
	return fmt.Sprintf("INSERT INTO `%s` (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", table)
}
