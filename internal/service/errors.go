package service

import (
	"errors"
	"fmt"

	"docarchive/internal/repository"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrInvalidID          = errors.New("invalid document id")
	ErrTooManyFiles       = fmt.Errorf("at most %d files per document", MaxFiles)
	ErrReaderNil          = errors.New("reader is nil")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStorage marks failures of the relational or blob store.
	ErrStorage = errors.New("storage failure")
)

// storageErr maps repository errors onto the service taxonomy.
func storageErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
