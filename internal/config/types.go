package config

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// Persist modes.
const (
	PersistAsync = "async"
	PersistSync  = "sync"
)

// Default values.
const (
	DefaultBackend     = BackendFile
	DefaultDataDir     = "~/.todo/data"
	DefaultKey         = "@tasks"
	DefaultMySQLTable  = "todo_kv"
	DefaultPersistMode = PersistAsync
	DefaultQueueSize   = 64
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Config holds the full configuration for todo.
type Config struct {
	// Storage
	Backend    string `toml:"backend"`
	DataDir    string `toml:"data_dir"`
	Key        string `toml:"key"`
	MySQLDSN   string `toml:"mysql_dsn"`
	MySQLTable string `toml:"mysql_table"`

	// Persistence
	PersistMode string `toml:"persist_mode"`
	QueueSize   int    `toml:"queue_size"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`
	LogFile       string `toml:"log_file"`
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"backend",
		"data_dir",
		"key",
		"mysql_dsn",
		"mysql_table",
		"persist_mode",
		"queue_size",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
		"log_file",
	}
}

// Fields returns the configurable field names in display order.
func Fields() []string {
	return configFields()
}

// Value returns the string form of a field by its TOML name.
func (c *Config) Value(field string) string {
	switch field {
	case "backend":
		return c.Backend
	case "data_dir":
		return c.DataDir
	case "key":
		return c.Key
	case "mysql_dsn":
		return redactDSN(c.MySQLDSN)
	case "mysql_table":
		return c.MySQLTable
	case "persist_mode":
		return c.PersistMode
	case "queue_size":
		return itoa(c.QueueSize)
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_timestamps":
		return btoa(c.LogTimestamps)
	case "log_caller":
		return btoa(c.LogCaller)
	case "log_file":
		return c.LogFile
	}
	return ""
}
