package todo

import (
	"errors"
	"fmt"
	"strings"
)

// Task is a single to-do item.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// IsZero returns true if the task is empty (has no ID).
func (t *Task) IsZero() bool {
	return t.ID == ""
}

// IsBlank reports whether a title is empty once surrounding whitespace is removed.
func IsBlank(title string) bool {
	return strings.TrimSpace(title) == ""
}

// Index returns the position of the task with id, or -1.
func Index(tasks []Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy of tasks that shares no backing array. A nil slice
// clones to an empty, non-nil slice.
func Clone(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// ErrCorrupt is matched by errors returned when a persisted value cannot be trusted.
var ErrCorrupt = errors.New("corrupt task list")

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // dot path to the offending value, e.g. "[2].title"
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CorruptError describes why a stored value was rejected.
type CorruptError struct {
	// Cause is set when the value is not JSON at all.
	Cause error
	// Problems lists schema and integrity violations.
	Problems []error
}

func (e *CorruptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", ErrCorrupt, e.Cause)
	}
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return fmt.Sprintf("%s: %s", ErrCorrupt, strings.Join(msgs, "; "))
}

// Is lets errors.Is match ErrCorrupt.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// Unwrap returns the parse error, if any.
func (e *CorruptError) Unwrap() error {
	return e.Cause
}
