// Package docstore defines the per-user document collection that tasks are
// synced from, and provides a SQLite-backed implementation of it.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Fields holds the data of one document.
type Fields map[string]any

// Document is one entry of a snapshot.
type Document struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// SnapshotFunc receives the full contents of a collection after every change.
type SnapshotFunc func(docs []Document)

// Client is a per-user document collection with live snapshots.
type Client interface {
	// Subscribe delivers the current snapshot, then a new one after every
	// change, until the returned unsubscribe function is called. Snapshots
	// are delivered one at a time from a single goroutine.
	Subscribe(ctx context.Context, userID string, fn SnapshotFunc) (unsubscribe func(), err error)

	// Create adds a document and returns its assigned id.
	Create(ctx context.Context, userID string, fields Fields) (string, error)

	// Update merges fields into an existing document.
	Update(ctx context.Context, userID, id string, fields Fields) error

	// Delete removes a document.
	Delete(ctx context.Context, userID, id string) error
}
