// Package storage provides temporary and durable file storage capabilities.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for local disk and S3 object storage.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary scratch files and durable
// object storage. Temporary files back ffmpeg processing; durable objects
// hold ingested audio, per-voice clips and mixed artifacts.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Upload writes data durably under key and returns a public URL.
	Upload(ctx context.Context, key string, data io.Reader) (url string, err error)

	// Download reads a durable object by key.
	// The caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a durable object by key. Deleting a missing object
	// is not an error.
	Delete(ctx context.Context, key string) error
}
