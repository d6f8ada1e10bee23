package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/domain"
)

// LocalBackend stores blobs on the local filesystem under a base
// directory. Used in development and single-node deployments.
type LocalBackend struct {
	baseDir string
	logger  zerolog.Logger
}

// NewLocalBackend creates a filesystem backend rooted at baseDir.
// The directory is created if it does not exist.
func NewLocalBackend(baseDir string, logger zerolog.Logger) (*LocalBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalBackend{
		baseDir: baseDir,
		logger:  logger.With().Str("backend", "local").Logger(),
	}, nil
}

// fullPath maps a storage-relative path onto the base directory,
// rejecting anything that would escape it.
func (b *LocalBackend) fullPath(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return filepath.Join(b.baseDir, cleaned), nil
}

// Store writes content at the given path, creating parent directories.
func (b *LocalBackend) Store(ctx context.Context, path string, reader io.Reader, size int64) error {
	full, err := b.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	// Write to a temp file first so a failed write never leaves a
	// partial blob at the final path.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	b.logger.Debug().Str("path", path).Int64("size", size).Msg("stored blob")
	return nil
}

// Retrieve opens the blob at the given path.
func (b *LocalBackend) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := b.fullPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return f, nil
}

// Exists checks whether a blob exists at the given path.
func (b *LocalBackend) Exists(ctx context.Context, path string) (bool, error) {
	full, err := b.fullPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return true, nil
}

// Delete removes the blob at the given path. A missing blob is not an
// error.
func (b *LocalBackend) Delete(ctx context.Context, path string) (bool, error) {
	full, err := b.fullPath(path)
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	b.logger.Debug().Str("path", path).Msg("deleted blob")
	return true, nil
}

// List walks the base directory and returns all blobs under the prefix.
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	root := b.baseDir
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		relSlash := filepath.ToSlash(rel)
		if !strings.HasPrefix(relSlash, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Path:         relSlash,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	return objects, nil
}

// Ensure LocalBackend implements Backend.
var _ Backend = (*LocalBackend)(nil)
