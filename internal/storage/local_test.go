package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, s.UploadDir())
}

func TestNewLocalStorage_DefaultDirectory(t *testing.T) {
	s, err := NewLocalStorage("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.TempDir(), "meetingnotes"), s.UploadDir())
}

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := s.SaveUpload(ctx, "abc.mp3", strings.NewReader("audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.UploadDir(), "abc.mp3"), path)

	f, err := s.Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(data))
}

func TestLocalStorage_SaveUpload_SanitizesName(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	// Path traversal in the name must not escape the upload dir.
	path, err := s.SaveUpload(context.Background(), "../../etc/evil.mp3", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.UploadDir(), "evil.mp3"), path)
}

func TestLocalStorage_SaveUpload_CancelledContext(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.SaveUpload(ctx, "abc.mp3", strings.NewReader("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStorage_Remove(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := s.SaveUpload(ctx, "abc.mp3", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Removing an already-missing file is not an error.
	assert.NoError(t, s.Remove(ctx, path))
}

func TestLocalStorage_UploadToS3_NotConfigured(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.UploadToS3(context.Background(), "key", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrS3NotConfigured)
}
