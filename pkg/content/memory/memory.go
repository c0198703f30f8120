// Package memory implements the blob store on an in-memory map, for tests
// and ephemeral deployments.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkoutsias/stashfs/pkg/content"
)

const maxNameAttempts = 10

// Store implements content.Store backed by a map. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	namer content.Namer
}

// New creates an empty in-memory blob store.
func New(namer content.Namer) *Store {
	return &Store{
		blobs: make(map[string][]byte),
		namer: namer,
	}
}

func (s *Store) Put(ctx context.Context, data io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read blob data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		rel := content.BlobPath(s.namer.Next())
		if _, exists := s.blobs[rel]; exists {
			continue
		}
		s.blobs[rel] = buf
		return rel, int64(len(buf)), nil
	}
	return "", 0, fmt.Errorf("blob name generation exhausted: %w", content.ErrBlobExists)
}

func (s *Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", path, content.ErrBlobNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	if !ok {
		return 0, fmt.Errorf("blob %s: %w", path, content.ErrBlobNotFound)
	}
	return int64(len(data)), nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return fmt.Errorf("blob %s: %w", path, content.ErrBlobNotFound)
	}
	delete(s.blobs, path)
	return nil
}

// Len reports the number of stored blobs. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

var _ content.Store = (*Store)(nil)
