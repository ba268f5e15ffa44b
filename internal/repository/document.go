package repository

import (
	"context"
	"errors"

	"docarchive/internal/model"
)

// ErrNotFound is returned when the targeted row does not exist.
var ErrNotFound = errors.New("record not found")

// NewFile describes a blob already written to the blob store that must be
// recorded alongside its document.
type NewFile struct {
	Filename     string
	OriginalName string
	MimeType     string
	SizeBytes    int64
}

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts the document and one row per file in a single transaction
	// and returns the new document ID. Nothing is persisted when it fails.
	Create(ctx context.Context, meta model.Metadata, files []NewFile, ownerID int64) (int64, error)

	// List returns documents matching every non-zero filter field, newest date
	// first (ties by ID descending), each with its files nested.
	List(ctx context.Context, f model.ListFilter) ([]model.DocumentSummary, error)

	// Update overwrites all metadata fields. Returns ErrNotFound when no row matches.
	Update(ctx context.Context, id int64, meta model.Metadata) error

	// Delete removes the document (files cascade) in one transaction and
	// returns the stored filenames of the files it owned.
	// Returns ErrNotFound, with nothing deleted, when no row matches.
	Delete(ctx context.Context, id int64) ([]string, error)
}
