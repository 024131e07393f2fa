package store

import "errors"

var (
	// ErrNotFound is returned when a row does not exist in the caller's
	// agent partition.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an optimistic-concurrency update
	// observes a stale version. Callers must re-read and retry; the store
	// never retries writes itself.
	ErrVersionConflict = errors.New("version conflict")
)
