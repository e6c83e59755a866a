package config

import (
	"flag"
)

// parseFlags defines the global flags on fs, parses args, and applies only
// the flags that were explicitly set. If sources is non-nil, it tracks them.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("todo", flag.ContinueOnError)
	}

	// Bind to a copy; only flags that were set are applied to cfg.
	v := *cfg

	// Storage
	fs.StringVar(&v.Backend, "backend", cfg.Backend, "Storage backend (file, memory, mysql)")
	fs.StringVar(&v.DataDir, "data-dir", cfg.DataDir, "Directory for the file backend")
	fs.StringVar(&v.Key, "key", cfg.Key, "Storage key holding the task list")
	fs.StringVar(&v.MySQLDSN, "mysql-dsn", cfg.MySQLDSN, "MySQL DSN for the mysql backend")
	fs.StringVar(&v.MySQLTable, "mysql-table", cfg.MySQLTable, "MySQL table for the mysql backend")

	// Persistence
	fs.StringVar(&v.PersistMode, "persist", cfg.PersistMode, "Persist mode (async, sync)")
	fs.IntVar(&v.QueueSize, "queue-size", cfg.QueueSize, "Pending async writes before mutations block")

	// Logging
	fs.StringVar(&v.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&v.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&v.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&v.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")
	fs.StringVar(&v.LogFile, "log-file", cfg.LogFile, "Write logs to this file instead of stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Map flag names to source field names
	flagToSource := map[string]string{
		"backend":        "backend",
		"data-dir":       "data_dir",
		"key":            "key",
		"mysql-dsn":      "mysql_dsn",
		"mysql-table":    "mysql_table",
		"persist":        "persist_mode",
		"queue-size":     "queue_size",
		"log-level":      "log_level",
		"log-format":     "log_format",
		"log-timestamps": "log_timestamps",
		"log-caller":     "log_caller",
		"log-file":       "log_file",
	}

	fs.Visit(func(f *flag.Flag) {
		field, ok := flagToSource[f.Name]
		if !ok {
			return
		}
		applyField(cfg, &v, field)
		if sources != nil {
			sources[field] = SourceFlag
		}
	})

	return nil
}

// applyField copies one field from src to dst.
func applyField(dst, src *Config, field string) {
	switch field {
	case "backend":
		dst.Backend = src.Backend
	case "data_dir":
		dst.DataDir = src.DataDir
	case "key":
		dst.Key = src.Key
	case "mysql_dsn":
		dst.MySQLDSN = src.MySQLDSN
	case "mysql_table":
		dst.MySQLTable = src.MySQLTable
	case "persist_mode":
		dst.PersistMode = src.PersistMode
	case "queue_size":
		dst.QueueSize = src.QueueSize
	case "log_level":
		dst.LogLevel = src.LogLevel
	case "log_format":
		dst.LogFormat = src.LogFormat
	case "log_timestamps":
		dst.LogTimestamps = src.LogTimestamps
	case "log_caller":
		dst.LogCaller = src.LogCaller
	case "log_file":
		dst.LogFile = src.LogFile
	}
}
