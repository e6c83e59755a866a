// Package taskstore owns the authoritative task list and keeps it durable.
//
// A Store holds the list in memory and, after every mutation that changes it,
// writes the whole serialized list to a kv.Store under a single key. Inputs that
// fail a precondition (blank title, unknown id) are silent no-ops: the list is
// returned unchanged and nothing is written.
//
// # Persistence
//
// In PersistAsync mode (the default) a mutation updates memory, queues the
// serialized snapshot, and returns without waiting. One goroutine drains the
// queue in order, so the stored value always moves forward through the same
// sequence of lists the caller saw. If the process dies before the queue
// drains, the latest mutations are lost. Flush waits for the queue.
//
// PersistSync writes before the mutation returns.
//
// Write failures never reach the caller of a mutation. They are logged, passed
// to the handler set with WithErrorHandler, and kept for LastError. The
// in-memory list stays as mutated.
//
// # Loading
//
// Load reads the key once at startup. A missing key yields an empty list. A
// value that does not decode (see todo.Decode) also yields an empty list; the
// bad value is copied to BackupKey(key, now), "<key>.corrupt.<unix ms>", so
// earlier backups survive, and a non-fatal error matching
// todo.ErrCorrupt is returned.
//
// All methods are safe for concurrent use; mutations are applied one at a time.
package taskstore
