package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage implements the Storage interface using local disk only.
// S3 operations fail with ErrS3NotConfigured unless wrapped by S3Storage.
type LocalStorage struct {
	uploadDir string
}

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage instance.
// The uploadDir parameter specifies where uploads are stored; if empty, a
// "meetingnotes" directory under os.TempDir() is used. The directory is
// created if it doesn't exist.
func NewLocalStorage(uploadDir string) (*LocalStorage, error) {
	if uploadDir == "" {
		uploadDir = filepath.Join(os.TempDir(), "meetingnotes")
	}

	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &LocalStorage{uploadDir: uploadDir}, nil
}

// UploadDir returns the upload directory path.
func (s *LocalStorage) UploadDir() string {
	return s.uploadDir
}

// SaveUpload writes data to uploadDir under the given name.
func (s *LocalStorage) SaveUpload(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path := filepath.Join(s.uploadDir, filepath.Base(name))
	f, err := os.Create(path) // #nosec G304 - name is sanitized to its base
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return path, nil
}

// Open reads a previously saved upload.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}

	return f, nil
}

// Remove deletes a previously saved upload.
func (s *LocalStorage) Remove(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// UploadToS3 is unavailable on plain local storage.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
