package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"docarchive/internal/model"
	"docarchive/internal/repository"
	repoMocks "docarchive/internal/repository/mocks"
	"docarchive/internal/storage"
	storeMocks "docarchive/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var blobName = regexp.MustCompile(`^[0-9a-f-]{36}(\.[a-z0-9]+)?$`)

func testMeta() model.Metadata {
	return model.Metadata{
		Recipient: "Dept A",
		Origin:    "Dept B",
		Date:      model.NewDate(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		Place:     "HQ",
	}
}

func echoPut(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
	return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
}

func uploads(n int) []FileUpload {
	out := make([]FileUpload, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, FileUpload{
			Reader:       strings.NewReader("content"),
			OriginalName: "Scan.PDF",
			ContentType:  "application/pdf",
			Size:         7,
		})
	}
	return out
}

func TestDocumentService_Create(t *testing.T) {
	ctx := context.Background()
	meta := testMeta()

	tests := []struct {
		name       string
		files      []FileUpload
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantID     int64
		wantErr    error
		wantErrMsg string
	}{
		{
			name:  "happy path with files",
			files: uploads(2),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
					return blobName.MatchString(key) && strings.HasSuffix(key, ".pdf")
				}), mock.Anything, storage.PutObjectOptions{
					Size:        7,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "Scan.PDF"},
				}).Return(echoPut, nil).Twice()

				mRepo.On("Create", ctx, meta, mock.MatchedBy(func(files []repository.NewFile) bool {
					return len(files) == 2 &&
						files[0].Filename != files[1].Filename &&
						files[0].OriginalName == "Scan.PDF" &&
						files[0].MimeType == "application/pdf" &&
						files[0].SizeBytes == 7
				}), int64(3)).Return(int64(1), nil)
			},
			wantID: 1,
		},
		{
			name:  "no files",
			files: nil,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Create", ctx, meta, mock.MatchedBy(func(files []repository.NewFile) bool {
					return len(files) == 0
				}), int64(3)).Return(int64(1), nil)
			},
			wantID: 1,
		},
		{
			name:       "too many files",
			files:      uploads(MaxFiles + 1),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrTooManyFiles,
		},
		{
			name:       "nil reader",
			files:      []FileUpload{{OriginalName: "a.txt"}},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrReaderNil,
		},
		{
			name:  "blob write failure removes earlier blobs",
			files: uploads(2),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("disk full")).Once()
				mStore.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantErr:    ErrStorage,
			wantErrMsg: "upload to storage: disk full",
		},
		{
			name:  "repository error removes all blobs",
			files: uploads(2),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Twice()
				mRepo.On("Create", ctx, meta, mock.Anything, int64(3)).Return(int64(0), errors.New("db fail"))
				mStore.On("Delete", mock.Anything, mock.Anything).Return(nil).Twice()
			},
			wantErr:    ErrStorage,
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:  "repository error with failed rollback",
			files: uploads(1),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
				mRepo.On("Create", ctx, meta, mock.Anything, int64(3)).Return(int64(0), errors.New("db fail"))
				mStore.On("Delete", mock.Anything, mock.Anything).Return(errors.New("delete fail")).Once()
			},
			wantErr:    ErrStorage,
			wantErrMsg: "rollback delete failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo)

			tt.setupMocks(mStore, mRepo)

			id, err := svc.Create(ctx, meta, tt.files, 3)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantErrMsg != "" {
					assert.Contains(t, err.Error(), tt.wantErrMsg)
				}
				assert.Zero(t, id)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Create_RollbackTargetsWrittenBlobs(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(mStore, mRepo)

	var written, deleted []string
	mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { written = append(written, args.String(1)) }).
		Return(echoPut, nil)
	mRepo.On("Create", ctx, mock.Anything, mock.Anything, int64(1)).Return(int64(0), errors.New("fk violation"))
	mStore.On("Delete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { deleted = append(deleted, args.String(1)) }).
		Return(nil)

	_, err := svc.Create(ctx, testMeta(), uploads(3), 1)

	require.Error(t, err)
	assert.Len(t, written, 3)
	assert.Equal(t, written, deleted)
}

func TestDocumentService_Create_EncodesOriginalName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		want     string
	}{
		{name: "ascii unchanged", original: "Scan.PDF", want: "Scan.PDF"},
		{name: "non-ascii", original: "Año 2024.pdf", want: "=?utf-8?q?A=C3=B1o_2024.pdf?="},
		{name: "control character", original: "bad\x01name.pdf", want: "=?utf-8?q?bad=01name.pdf?="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo)

			var meta map[string]string
			mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { meta = args.Get(3).(storage.PutObjectOptions).Metadata }).
				Return(echoPut, nil)
			mRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(files []repository.NewFile) bool {
				return len(files) == 1 && files[0].OriginalName == tt.original
			}), int64(1)).Return(int64(5), nil)

			id, err := svc.Create(ctx, testMeta(), []FileUpload{{
				Reader:       strings.NewReader("content"),
				OriginalName: tt.original,
				ContentType:  "application/pdf",
				Size:         7,
			}}, 1)

			require.NoError(t, err)
			assert.Equal(t, int64(5), id)
			assert.Equal(t, tt.want, meta["original-filename"])
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	from := model.NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	filter := model.ListFilter{Place: "X", DateFrom: &from}

	t.Run("happy path", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo)

		mRepo.On("List", ctx, filter).Return([]model.DocumentSummary{{ID: 2}, {ID: 1}}, nil)

		res, err := svc.List(ctx, filter)

		assert.NoError(t, err)
		assert.Len(t, res, 2)
		mRepo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo)

		mRepo.On("List", ctx, filter).Return(nil, errors.New("db fail"))

		res, err := svc.List(ctx, filter)

		assert.ErrorIs(t, err, ErrStorage)
		assert.Nil(t, res)
	})
}

func TestDocumentService_Update(t *testing.T) {
	ctx := context.Background()
	meta := testMeta()

	tests := []struct {
		name       string
		id         int64
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Update", ctx, int64(1), meta).Return(nil)
			},
		},
		{
			name:       "validation - non positive id",
			id:         0,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrInvalidID,
		},
		{
			name: "not found",
			id:   404,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Update", ctx, int64(404), meta).Return(repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "storage error",
			id:   1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Update", ctx, int64(1), meta).Return(errors.New("db fail"))
			},
			wantErr: ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo)

			tt.setupMocks(mRepo)

			err := svc.Update(ctx, tt.id, meta)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		id           int64
		setupMocks   func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr      error
		wantRemoved  int
		wantFailures []string
	}{
		{
			name: "happy path",
			id:   1,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Delete", ctx, int64(1)).Return([]string{"a.pdf", "b.pdf"}, nil)
				mStore.On("Delete", mock.Anything, "a.pdf").Return(nil)
				mStore.On("Delete", mock.Anything, "b.pdf").Return(nil)
			},
			wantRemoved: 2,
		},
		{
			name: "document without files",
			id:   2,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Delete", ctx, int64(2)).Return([]string{}, nil)
			},
		},
		{
			name: "one blob failure does not stop the others",
			id:   3,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Delete", ctx, int64(3)).Return([]string{"a.pdf", "b.pdf", "c.pdf"}, nil)
				mStore.On("Delete", mock.Anything, "a.pdf").Return(nil)
				mStore.On("Delete", mock.Anything, "b.pdf").Return(errors.New("permission denied"))
				mStore.On("Delete", mock.Anything, "c.pdf").Return(nil)
			},
			wantRemoved:  2,
			wantFailures: []string{"b.pdf"},
		},
		{
			name:       "validation - non positive id",
			id:         -1,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrInvalidID,
		},
		{
			name: "not found skips blob deletion",
			id:   404,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Delete", ctx, int64(404)).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "repository error",
			id:   5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Delete", ctx, int64(5)).Return(nil, errors.New("db fail"))
			},
			wantErr: ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo)

			tt.setupMocks(mStore, mRepo)

			res, err := svc.Delete(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.id, res.ID)
				assert.Equal(t, tt.wantRemoved, res.RemovedFiles)
				var failed []string
				for _, f := range res.CleanupFailures {
					failed = append(failed, f.Filename)
					assert.Error(t, f.Err)
				}
				assert.Equal(t, tt.wantFailures, failed)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Delete_LocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := storage.NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.pdf"), []byte("x"), 0o644))

	mRepo := new(repoMocks.MockDocumentRepository)
	mRepo.On("Delete", ctx, int64(1)).Return([]string{"present.pdf", "already-gone.pdf"}, nil).Once()
	mRepo.On("Delete", ctx, int64(1)).Return(nil, repository.ErrNotFound).Once()

	svc := NewDocumentService(store, mRepo)

	res, err := svc.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, res.CleanupFailures)
	assert.Equal(t, 2, res.RemovedFiles)
	_, statErr := os.Stat(filepath.Join(dir, "present.pdf"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = svc.Delete(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentService_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(mStore, mRepo, WithMetrics(m))

	mRepo.On("Update", ctx, int64(9), mock.Anything).Return(repository.ErrNotFound)
	mRepo.On("Delete", ctx, int64(1)).Return([]string{"a.pdf"}, nil)
	mStore.On("Delete", mock.Anything, "a.pdf").Return(errors.New("io error"))

	_ = svc.Update(ctx, 9, testMeta())
	_, _ = svc.Delete(ctx, 1)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("update", "not_found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("delete", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cleanupFailures))

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestSafeExt(t *testing.T) {
	assert.Equal(t, ".pdf", safeExt("Report.PDF"))
	assert.Equal(t, ".gz", safeExt("archive.tar.gz"))
	assert.Equal(t, "", safeExt("noext"))
	assert.Equal(t, "", safeExt("weird.p df"))
	assert.Equal(t, ".txt", safeExt(`C:\Users\me\notes.txt`))
	assert.Equal(t, "", safeExt("../../etc/passwd"))
}
