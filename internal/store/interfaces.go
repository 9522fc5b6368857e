// Package store defines the persistence interfaces shared by the history
// log and the report cache, plus their data models.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ObjectStore.Get for missing keys.
var ErrNotFound = errors.New("object not found")

// ObjectStore is a flat key/value object store. Keys are slash-separated
// paths; writes replace the whole object.
type ObjectStore interface {
	// Get returns the object bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the object, replacing any previous version.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Exists reports whether the key holds an object.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the viewer-facing URL for a key.
	URL(key string) string
}

// HistoryStore persists the capped, newest-first history log.
type HistoryStore interface {
	// Load returns the current history. A missing log is an empty
	// slice, not an error.
	Load(ctx context.Context) ([]HistoryEntry, error)

	// Replace writes the full history as one document replace.
	Replace(ctx context.Context, entries []HistoryEntry) error
}

// HistoryMerger is an optional HistoryStore capability. Stores with atomic
// upsert semantics merge completed runs server-side, which removes the
// read-modify-write race the document-backed store has between concurrent
// reconciliations.
type HistoryMerger interface {
	MergeCompleted(ctx context.Context, entries []HistoryEntry) (merged int, err error)
}
