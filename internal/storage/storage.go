// Package storage holds the blob store used for uploaded document files.
// Blobs are addressed by flat, server-generated names.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"docarchive/internal/config"
)

// ErrNotFound is returned by Get when the blob does not exist.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for keys that are empty or try to escape the store.
var ErrInvalidKey = errors.New("invalid blob key")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the blob store interface shared by the filesystem and S3-compatible backends.
type Storage interface {
	// Put stores the content of r under key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the blob store selected by cfg.Backend.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.UploadDir)
	case "minio":
		return NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
