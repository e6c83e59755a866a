// Package todo defines the task record and its persisted encoding.
//
// A task list is stored as a single JSON array under one key:
//
//	[
//	  {"id": "1718000000000", "title": "Buy milk", "completed": false},
//	  {"id": "1718000000001", "title": "Call mom", "completed": true}
//	]
//
// # Validation
//
// Decode checks a stored value in two passes:
//
// 1. JSON Schema validation against the embedded tasks.schema.json
// (draft 2020-12): array of objects, required id/title/completed, string id,
// title with at least one non-space character, no extra properties.
//
// 2. Integrity checks the schema cannot express: ids must be unique.
//
// Any failure is reported as a *CorruptError, which matches ErrCorrupt.
//
// # Encoding
//
// Encode writes compact JSON in list order. An empty or nil list encodes as [].
package todo
