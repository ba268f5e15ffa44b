package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docarchive/internal/model"
	"docarchive/internal/repository"
	"docarchive/internal/storage"
)

// MaxFiles is the maximum number of files attached to one document.
const MaxFiles = 10

// FileUpload is one uploaded file as received from the client.
type FileUpload struct {
	Reader       io.Reader
	OriginalName string
	ContentType  string
	Size         int64
}

// CleanupFailure records a blob that outlived its document row.
type CleanupFailure struct {
	Filename string
	Err      error
}

// DeleteResult separates the authoritative outcome of a delete (the relational
// row is gone) from the best-effort blob cleanup that follows it.
type DeleteResult struct {
	ID              int64
	RemovedFiles    int
	CleanupFailures []CleanupFailure
}

// DocumentService keeps document rows, file rows and blobs consistent.
type DocumentService interface {
	// Create stores the blobs, then the document and file rows in one transaction.
	// Blobs already written are removed again when any later step fails.
	Create(ctx context.Context, meta model.Metadata, files []FileUpload, ownerID int64) (int64, error)

	// List returns documents matching the filter with their files nested.
	List(ctx context.Context, f model.ListFilter) ([]model.DocumentSummary, error)

	// Update overwrites the document metadata. Files are left untouched.
	Update(ctx context.Context, id int64, meta model.Metadata) error

	// Delete removes the document and its file rows, then its blobs.
	// Blob removal failures are reported in the result, never as an error.
	Delete(ctx context.Context, id int64) (*DeleteResult, error)
}

type documentService struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	log     *zap.Logger
	metrics *Metrics
}

// Option customizes a DocumentService.
type Option func(*documentService)

// WithLogger sets the logger used for cleanup warnings and lifecycle events.
func WithLogger(log *zap.Logger) Option {
	return func(s *documentService) { s.log = log }
}

// WithMetrics enables operation counters.
func WithMetrics(m *Metrics) Option {
	return func(s *documentService) { s.metrics = m }
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts ...Option) DocumentService {
	s := &documentService{store: store, repo: repo, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *documentService) Create(ctx context.Context, meta model.Metadata, files []FileUpload, ownerID int64) (id int64, err error) {
	defer func() { s.metrics.observe("create", err) }()

	if len(files) > MaxFiles {
		return 0, ErrTooManyFiles
	}

	written := make([]string, 0, len(files))
	records := make([]repository.NewFile, 0, len(files))
	for _, f := range files {
		if f.Reader == nil {
			return 0, s.rollbackBlobs(ctx, written, ErrReaderNil)
		}

		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		name := uuid.NewString() + safeExt(f.OriginalName)

		info, err := s.store.Put(ctx, name, f.Reader, storage.PutObjectOptions{
			Size:        f.Size,
			ContentType: ct,
			Metadata: map[string]string{
				"original-filename": mime.QEncoding.Encode("utf-8", f.OriginalName),
			},
		})
		if err != nil {
			return 0, s.rollbackBlobs(ctx, written, fmt.Errorf("%w: upload to storage: %w", ErrStorage, err))
		}
		written = append(written, name)
		records = append(records, repository.NewFile{
			Filename:     name,
			OriginalName: f.OriginalName,
			MimeType:     ct,
			SizeBytes:    info.Size,
		})
	}

	id, err = s.repo.Create(ctx, meta, records, ownerID)
	if err != nil {
		return 0, s.rollbackBlobs(ctx, written, fmt.Errorf("%w: db save failed: %w", ErrStorage, err))
	}

	s.log.Info("document_created",
		zap.Int64("document_id", id),
		zap.Int("files", len(records)),
		zap.Int64("user_id", ownerID),
	)
	return id, nil
}

// rollbackBlobs deletes blobs written by a failed Create and returns cause,
// joined with any deletion failure.
func (s *documentService) rollbackBlobs(ctx context.Context, names []string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for _, name := range names {
		if err := s.store.Delete(ctx, name); err != nil {
			s.metrics.cleanupFailed()
			s.log.Warn("blob_rollback_failed", zap.String("filename", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("rollback delete failed: %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *documentService) List(ctx context.Context, f model.ListFilter) (items []model.DocumentSummary, err error) {
	defer func() { s.metrics.observe("list", err) }()

	items, err = s.repo.List(ctx, f)
	if err != nil {
		return nil, storageErr("list documents", err)
	}
	return items, nil
}

func (s *documentService) Update(ctx context.Context, id int64, meta model.Metadata) (err error) {
	defer func() { s.metrics.observe("update", err) }()

	if id <= 0 {
		return ErrInvalidID
	}
	if err := s.repo.Update(ctx, id, meta); err != nil {
		return storageErr("update document", err)
	}
	return nil
}

func (s *documentService) Delete(ctx context.Context, id int64) (res *DeleteResult, err error) {
	defer func() { s.metrics.observe("delete", err) }()

	if id <= 0 {
		return nil, ErrInvalidID
	}

	filenames, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, storageErr("delete document", err)
	}

	// The row is gone; from here on nothing fails the operation.
	ctx = context.WithoutCancel(ctx)
	res = &DeleteResult{ID: id}
	for _, name := range filenames {
		if err := s.store.Delete(ctx, name); err != nil {
			s.metrics.cleanupFailed()
			s.log.Warn("blob_cleanup_failed",
				zap.Int64("document_id", id),
				zap.String("filename", name),
				zap.Error(err),
			)
			res.CleanupFailures = append(res.CleanupFailures, CleanupFailure{Filename: name, Err: err})
			continue
		}
		res.RemovedFiles++
	}

	s.log.Info("document_deleted",
		zap.Int64("document_id", id),
		zap.Int("files_removed", res.RemovedFiles),
		zap.Int("cleanup_failures", len(res.CleanupFailures)),
	)
	return res, nil
}

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)

// safeExt keeps the original extension only when it is plain alphanumerics.
func safeExt(name string) string {
	ext := filepath.Ext(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext)
}
