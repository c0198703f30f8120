// Package fs implements the blob store on a local filesystem directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkoutsias/stashfs/pkg/content"
)

// maxNameAttempts bounds the collision-retry loop in Put. With 64-bit
// random names, more than a couple of attempts means the Namer is broken.
const maxNameAttempts = 10

// Store implements content.Store using the local filesystem.
//
// Blobs live under a base directory in a two-level fan-out derived from the
// blob name (see content.BlobPath), which keeps per-directory entry counts
// small even with millions of blobs.
//
// Thread Safety:
// Blob files are created with O_EXCL, so two concurrent Puts can never open
// the same file; name collisions surface as a retry with a fresh name.
// Blobs are immutable after Put, making concurrent reads safe.
type Store struct {
	basePath string
	namer    content.Namer
}

// New creates a filesystem-backed blob store rooted at basePath, creating
// the directory if needed.
func New(ctx context.Context, basePath string, namer content.Namer) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if namer == nil {
		return nil, fmt.Errorf("namer is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{basePath: basePath, namer: namer}, nil
}

// Put writes the blob under a freshly generated name and returns its
// relative path. A partial file left by a failed copy is removed before the
// error is returned.
func (s *Store) Put(ctx context.Context, data io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	var (
		rel  string
		file *os.File
	)
	for attempt := 0; ; attempt++ {
		if attempt == maxNameAttempts {
			return "", 0, fmt.Errorf("blob name generation exhausted: %w", content.ErrBlobExists)
		}
		rel = content.BlobPath(s.namer.Next())
		full := filepath.Join(s.basePath, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", 0, fmt.Errorf("failed to create blob directory: %w", err)
		}
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("failed to create blob file: %w", err)
		}
		file = f
		break
	}

	size, err := io.Copy(file, data)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", 0, fmt.Errorf("failed to write blob %s: %w", rel, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", 0, fmt.Errorf("failed to close blob %s: %w", rel, err)
	}
	return rel, size, nil
}

// Open returns a reader for the blob at path.
func (s *Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.fullPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", path, content.ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", path, err)
	}
	return f, nil
}

// Size stats the blob without reading it.
func (s *Store) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := os.Stat(s.fullPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("blob %s: %w", path, content.ErrBlobNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat blob %s: %w", path, err)
	}
	return info.Size(), nil
}

// Delete removes the blob file. The fan-out directories are left in place;
// they are shared with other blobs and cheap to keep.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.fullPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob %s: %w", path, content.ErrBlobNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", path, err)
	}
	return nil
}

func (s *Store) fullPath(rel string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(rel))
}

var _ content.Store = (*Store)(nil)
