// Package tododir provides constants and utilities for the .todo state directory.
package tododir

import (
	"os"
	"path/filepath"
)

const (
	// Dir is the name of the todo state directory.
	Dir = ".todo"

	// DefaultConfigFile is the default config file name (inside .todo).
	DefaultConfigFile = "todo.toml"

	// DefaultDataDir holds file-backend values (inside .todo).
	DefaultDataDir = "data"

	// DefaultLogFile receives logs while the terminal UI owns the screen.
	DefaultLogFile = "todo.log"
)

// Home returns the user's state directory, ~/.todo.
func Home() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, Dir), nil
}

// ConfigPath returns the config file inside base, a .todo directory.
func ConfigPath(base string) string {
	return filepath.Join(base, DefaultConfigFile)
}

// DataPath returns the data directory inside base.
func DataPath(base string) string {
	return filepath.Join(base, DefaultDataDir)
}

// LogPath returns the log file inside base.
func LogPath(base string) string {
	return filepath.Join(base, DefaultLogFile)
}
