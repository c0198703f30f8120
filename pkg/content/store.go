// Package content defines the blob store boundary: raw file bytes addressed
// by an opaque relative path, kept entirely separate from the metadata
// catalog.
package content

import (
	"context"
	"io"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store provides storage-agnostic access to file body blobs.
//
// The store manages only raw bytes. It does NOT manage:
//   - File names, versions, permissions, ownership → metadata catalog
//   - Which blob a file version points at → FileBody.StoredPath
//   - Access control → evaluated before the service layer touches content
//
// Blob Addressing:
// Put generates a random blob name through the store's Namer and returns the
// blob's relative path, which the caller records in the file version's
// metadata. The path format is "<c0>/<c1>/<name>" where c0 and c1 are the
// name's first two characters; the fan-out keeps directory sizes bounded on
// filesystem backends and is carried unchanged to the other backends so
// blobs are portable between them. Callers treat the path as opaque.
//
// Failure Semantics:
// A failed Put must leave no partial blob behind: implementations clean up
// whatever they wrote before returning the error. Delete of a missing blob
// returns ErrBlobNotFound; callers that remove blobs best-effort log and
// continue.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Two Puts never collide on a name (the store retries name generation), and
// blobs are immutable once written, so concurrent reads need no coordination.
type Store interface {
	// Put stores the bytes read from data as a new blob and returns the
	// blob's relative path and size. On error no blob remains.
	Put(ctx context.Context, data io.Reader) (string, int64, error)

	// Open returns a reader for the blob at path. The caller closes it.
	// Returns ErrBlobNotFound if no blob exists at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Size returns the blob's size in bytes without reading it.
	Size(ctx context.Context, path string) (int64, error)

	// Delete removes the blob at path. Returns ErrBlobNotFound if no blob
	// exists there.
	Delete(ctx context.Context, path string) error
}
