package content

import "errors"

// These errors give every backend a consistent failure vocabulary. Callers
// check them with errors.Is; implementations wrap them with context:
//
//	return fmt.Errorf("blob %s: %w", path, content.ErrBlobNotFound)

var (
	// ErrBlobNotFound indicates no blob exists at the requested path.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrBlobExists indicates a freshly generated blob name collided with
	// an existing blob. Put retries internally; seeing this error from Put
	// means name generation is exhausted or broken.
	ErrBlobExists = errors.New("blob already exists")
)
