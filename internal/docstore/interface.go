// Package docstore defines the durable document-collection contract the
// categorizer persists through, plus a SQLite-backed implementation and an
// in-memory implementation for tests.
package docstore

import (
	"context"

	"github.com/dietmate/categorizer/internal/model"
)

// DefaultChunkLimit is the provider-imposed cap on operations per committed
// batch. Writers must split larger write sets into chunks of at most this
// size and commit them one by one.
const DefaultChunkLimit = 500

// Store is a document collection addressable by opaque identifiers.
type Store interface {
	// GetAll fetches every document in the collection.
	GetAll(ctx context.Context) ([]model.Document, error)

	// FindByField fetches documents whose stored field equals value.
	FindByField(ctx context.Context, field, value string) ([]model.Document, error)

	// NewBatch starts an empty write batch. Operations queue locally until
	// Commit; a committed batch stays committed even if a later one fails.
	NewBatch() Batch

	// ChunkLimit reports the maximum operations a single batch may commit.
	ChunkLimit() int

	// Count reports the number of documents currently stored.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Batch accumulates write operations for a single chunked commit.
type Batch interface {
	// Upsert queues a merge-write of doc under doc.ID: fields carried by
	// doc are written, fields the document model does not carry are left
	// untouched on the stored document.
	Upsert(doc model.Document)

	// Delete queues removal of the document with the given id.
	Delete(id string)

	// Len reports the number of queued operations.
	Len() int

	// Commit applies all queued operations. Fails without applying
	// anything when Len exceeds the store's chunk limit.
	Commit(ctx context.Context) error
}
