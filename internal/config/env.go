package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadFromEnv overrides config from TODO_* environment variables.
// If sources is non-nil, it tracks the source of each value.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	set := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}

	strVars := []struct {
		env    string
		field  string
		target *string
	}{
		{"TODO_BACKEND", "backend", &cfg.Backend},
		{"TODO_DATA_DIR", "data_dir", &cfg.DataDir},
		{"TODO_KEY", "key", &cfg.Key},
		{"TODO_MYSQL_DSN", "mysql_dsn", &cfg.MySQLDSN},
		{"TODO_MYSQL_TABLE", "mysql_table", &cfg.MySQLTable},
		{"TODO_PERSIST_MODE", "persist_mode", &cfg.PersistMode},
		{"TODO_LOG_LEVEL", "log_level", &cfg.LogLevel},
		{"TODO_LOG_FORMAT", "log_format", &cfg.LogFormat},
		{"TODO_LOG_FILE", "log_file", &cfg.LogFile},
	}
	for _, v := range strVars {
		if val := os.Getenv(v.env); val != "" {
			*v.target = val
			set(v.field)
		}
	}

	if v := os.Getenv("TODO_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TODO_QUEUE_SIZE: %w", err)
		}
		cfg.QueueSize = n
		set("queue_size")
	}
	if v := os.Getenv("TODO_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = boolFromString(v)
		set("log_timestamps")
	}
	if v := os.Getenv("TODO_LOG_CALLER"); v != "" {
		cfg.LogCaller = boolFromString(v)
		set("log_caller")
	}
	return nil
}

func boolFromString(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func btoa(b bool) string {
	return strconv.FormatBool(b)
}

// redactDSN hides the password in a user:pass@tcp(...)/db DSN.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	creds := dsn[:at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return dsn
	}
	return creds[:colon] + ":****" + dsn[at:]
}
