// Package index decouples the storage core from downstream search indexing.
// The service announces file changes after commit; what happens to the
// announcements is the notifier's business.
package index

import (
	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/internal/logger"
)

// Notifier receives file change announcements.
//
// Calls are fire-and-forget: they happen after the owning transaction has
// committed, must not block the caller, and their failures never affect the
// outcome of the operation that triggered them. Implementations that do real
// work should hand off to their own goroutine or queue.
type Notifier interface {
	// FileUpdated announces that the file's content or metadata changed
	// and it should be (re)indexed.
	FileUpdated(id uuid.UUID)

	// FileDeleted announces that the file is gone and should leave the
	// index.
	FileDeleted(id uuid.UUID)
}

// Noop discards all announcements. The default when no indexing pipeline is
// configured.
type Noop struct{}

func (Noop) FileUpdated(uuid.UUID) {}
func (Noop) FileDeleted(uuid.UUID) {}

// Logging writes announcements to the debug log. Useful in development to
// see what an indexing pipeline would receive.
type Logging struct{}

func (Logging) FileUpdated(id uuid.UUID) {
	logger.Debug("index: file updated: %s", id)
}

func (Logging) FileDeleted(id uuid.UUID) {
	logger.Debug("index: file deleted: %s", id)
}

var (
	_ Notifier = Noop{}
	_ Notifier = Logging{}
)
