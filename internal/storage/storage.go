// Package storage provides persistence for uploaded recording files.
// It defines the Storage interface (port) with implementations for local
// disk and, optionally, S3 mirroring.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for storing uploaded recordings.
// Uploads always land on local disk, where the audio chunker needs them;
// implementations may additionally mirror them to a bucket.
type Storage interface {
	// SaveUpload writes an uploaded file under the given name and returns
	// its path on disk. The name must already be collision-free (the
	// callers use the recording's file ID plus extension).
	SaveUpload(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open reads a previously saved upload.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes a previously saved upload.
	Remove(ctx context.Context, path string) error

	// UploadToS3 mirrors data to the configured bucket and returns the
	// object URL. Returns ErrS3NotConfigured when no bucket is set up.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
