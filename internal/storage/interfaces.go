// Package storage defines interfaces for media blob storage backends.
// The storage layer persists and retrieves raw file data by its
// storage-relative path (e.g. "uploads/2024/01/15/image.jpg").
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sonartis/panelshop/internal/domain"
)

// Backend defines the interface for media storage backends.
// Implementations include the local filesystem and S3-compatible object
// stores (the production deployment runs against Cloudflare R2).
type Backend interface {
	// Store writes content at the given storage-relative path,
	// overwriting any existing blob there.
	Store(ctx context.Context, path string, reader io.Reader, size int64) error

	// Retrieve opens the blob at the given path.
	// Returns domain.ErrBlobNotFound if no blob exists there.
	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks whether a blob exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the blob at the given path. Returns whether a blob
	// was actually removed; a missing blob is not an error. Transport
	// failures wrap domain.ErrStorageUnavailable.
	Delete(ctx context.Context, path string) (bool, error)

	// List returns the storage-relative paths of all blobs under the
	// given prefix. Used by full-store audits.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ObjectInfo describes one stored blob in a List result.
type ObjectInfo struct {
	// Path is the storage-relative path of the blob.
	Path string

	// Size is the blob size in bytes.
	Size int64

	// LastModified is the backend's modification timestamp.
	LastModified time.Time
}

// IsNotFound reports whether the error indicates a missing blob.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrBlobNotFound)
}

// IsUnavailable reports whether the error is a transport-level storage
// failure. Callers in the reconciliation path log these and continue.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrStorageUnavailable)
}
