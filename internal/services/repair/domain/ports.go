package domain

import (
	"context"

	"docmend/internal/core/value"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, targets []string) Summary
	List(ctx context.Context) []CollectionCount
}

// DocStore is the document database seam
type DocStore interface {
	// Scan returns every document of collection ordered by id
	Scan(ctx context.Context, collection string) ([]value.Document, error)

	// Count returns the number of documents in collection
	Count(ctx context.Context, collection string) (int, error)

	// NewWriteGroup starts an empty atomic write group
	NewWriteGroup() WriteGroup
}

// WriteGroup buffers writes and applies them atomically on Commit
type WriteGroup interface {
	// Update merges patch into an existing document
	Update(collection, id string, patch value.Fields)

	// Set creates or replaces a document
	Set(collection, id string, fields value.Fields)

	// Len returns the number of buffered writes
	Len() int

	// Commit applies every buffered write or none
	Commit(ctx context.Context) error
}

// DocQueries is the statement level surface a transaction binds to
type DocQueries interface {
	EnsureSchema(ctx context.Context) error
	ScanPage(ctx context.Context, collection, afterID string, limit int) ([]value.Document, error)
	Count(ctx context.Context, collection string) (int, error)
	Now(ctx context.Context) (value.Timestamp, error)
	Update(ctx context.Context, collection, id string, patch value.Fields) error
	Set(ctx context.Context, collection, id string, fields value.Fields) error
}

// Ledger records one row per collection run
type Ledger interface {
	Record(ctx context.Context, runID string, out CollectionOutcome) error
}

// Ports are optional overrides a caller can inject with modkit.WithPorts
type Ports struct {
	Store  DocStore
	Ledger Ledger
}
