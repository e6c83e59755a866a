// Package kv defines the key-value store that holds the serialized task list
// and provides in-memory and file-backed implementations.
//
// A Store maps string keys to string values. Get reports absence with ok=false
// rather than an error. Implementations must be safe for concurrent use.
//
// The mysql subpackage provides a SQL-backed Store.
package kv
