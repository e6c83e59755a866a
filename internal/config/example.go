package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# todo configuration file
# Values can be overridden by TODO_* environment variables or CLI flags

# Storage backend: file, memory, or mysql
backend = "file"

# Directory for the file backend (supports ~ expansion and %VAR% on Windows)
data_dir = "~/.todo/data"

# Key holding the serialized task list
key = "@tasks"

# MySQL backend settings
# mysql_dsn = "user:pass@tcp(127.0.0.1:3306)/todo?parseTime=true"
mysql_table = "todo_kv"

# async returns before the write lands; sync waits for it
persist_mode = "async"

# Pending async writes before mutations block
queue_size = 64

# Logging
log_level = "info"      # debug, info, warn, error
log_format = "text"     # text, json, logfmt
log_timestamps = false
log_caller = false
# log_file = "~/.todo/todo.log"
`
}
