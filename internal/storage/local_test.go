package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docarchive/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := NewLocal(dir)
	require.NoError(t, err)

	info, err := st.Put(ctx, "abc.txt", strings.NewReader("hello"), PutObjectOptions{Size: 5, ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "abc.txt", info.Key)
	assert.Equal(t, int64(5), info.Size)

	rc, got, err := st.Get(ctx, "abc.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), got.Size)
	assert.True(t, strings.HasPrefix(got.ContentType, "text/plain"))

	require.NoError(t, st.Delete(ctx, "abc.txt"))
	_, err = os.Stat(filepath.Join(dir, "abc.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_PutDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = st.Put(ctx, "dup.bin", strings.NewReader("one"), PutObjectOptions{})
	require.NoError(t, err)
	_, err = st.Put(ctx, "dup.bin", strings.NewReader("two"), PutObjectOptions{})
	assert.Error(t, err)
}

func TestLocalStorage_DeleteMissingIsSkipped(t *testing.T) {
	st, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, st.Delete(context.Background(), "never-written.pdf"))
}

func TestLocalStorage_GetMissing(t *testing.T) {
	st, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, _, err = st.Get(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "a/b.txt", ".hidden", ".."} {
		_, err := st.Put(ctx, key, strings.NewReader("x"), PutObjectOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		assert.ErrorIs(t, st.Delete(ctx, key), ErrInvalidKey, key)
	}
}

func TestNewLocal_RequiresDir(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)
}

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{name: "missing endpoint", cfg: config.MinIOConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"}, want: "endpoint is required"},
		{name: "missing credentials", cfg: config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"}, want: "credentials are required"},
		{name: "missing bucket", cfg: config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, want: "bucket is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := NewMinIO(tt.cfg)
			assert.Nil(t, st)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	st, err := New(config.StorageConfig{Backend: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, st)

	_, err = New(config.StorageConfig{Backend: "ftp"})
	assert.ErrorContains(t, err, `unknown storage backend "ftp"`)
}
