// Package service implements the storage core's public operations: the
// folder tree, file versions, groups, identity and quota, and path
// resolution. Every public operation takes a principal, runs inside exactly
// one store transaction, consults the permission evaluator before mutating,
// touches the ancestor chain after mutations, and announces index changes
// only after the transaction has committed.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/internal/logger"
	"github.com/pkoutsias/stashfs/pkg/content"
	"github.com/pkoutsias/stashfs/pkg/index"
	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// Service is the storage core. Construct with New.
type Service struct {
	store    metadata.Store
	blobs    content.Store
	notifier index.Notifier

	// now is injectable for deterministic audit timestamps in tests.
	now func() time.Time
}

// Options configures a Service.
type Options struct {
	// Store is the metadata catalog. Required.
	Store metadata.Store

	// Blobs is the content store holding file bodies. Required.
	Blobs content.Store

	// Notifier receives post-commit file change announcements.
	// Defaults to index.Noop.
	Notifier index.Notifier

	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time
}

// New creates a Service.
func New(opts Options) *Service {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = index.Noop{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:    opts.Store,
		blobs:    opts.Blobs,
		notifier: notifier,
		now:      clock,
	}
}

// ============================================================================
// Shared helpers
// ============================================================================

// requireRead returns ErrPermissionDenied unless the principal can read the
// entity. The entity name goes into the error for caller-facing context.
func requireRead(tx metadata.Tx, principal uuid.UUID, entity metadata.Securable, name string) error {
	ok, err := metadata.CanRead(tx, principal, entity)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.PermissionDenied("read denied", name)
	}
	return nil
}

func requireWrite(tx metadata.Tx, principal uuid.UUID, entity metadata.Securable, name string) error {
	ok, err := metadata.CanWrite(tx, principal, entity)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.PermissionDenied("write denied", name)
	}
	return nil
}

// requireDelete is write capability; no separate delete bit exists.
func requireDelete(tx metadata.Tx, principal uuid.UUID, entity metadata.Securable, name string) error {
	ok, err := metadata.CanDelete(tx, principal, entity)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.PermissionDenied("delete denied", name)
	}
	return nil
}

func requireModifyACL(tx metadata.Tx, principal uuid.UUID, entity metadata.Securable, name string) error {
	ok, err := metadata.CanModifyACL(tx, principal, entity)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.PermissionDenied("permission change denied", name)
	}
	return nil
}

// checkEntryName rejects names that cannot round-trip through path
// resolution: an empty name and any name containing the path separator.
func checkEntryName(name string) error {
	if name == "" {
		return metadata.Invariant("name must not be empty", name)
	}
	if strings.Contains(name, "/") {
		return metadata.Invariant("name must not contain '/'", name)
	}
	return nil
}

// siblingNameTaken reports whether any child of the folder, file or
// subfolder, already uses the name. Folders and files share one name
// namespace per level.
func siblingNameTaken(tx metadata.Tx, folderID uuid.UUID, name string) (bool, error) {
	taken, err := tx.FolderExists(folderID, name)
	if err != nil || taken {
		return taken, err
	}
	return tx.FileExists(folderID, name)
}

// touchAncestors walks the parent chain from the folder upward,
// unconditionally updating modification audit fields, so "last modified" is
// visible at every ancestor level without a subtree scan on read.
func (s *Service) touchAncestors(tx metadata.Tx, folderID uuid.UUID, principal uuid.UUID, now time.Time) error {
	current := folderID
	for {
		f, err := tx.Folder(current)
		if err != nil {
			return err
		}
		f.Audit.Touch(principal, now)
		if err := tx.SaveFolder(f); err != nil {
			return err
		}
		if f.ParentID == nil {
			return nil
		}
		current = *f.ParentID
	}
}

// deleteBlob removes a blob best-effort: a missing or undeletable blob is a
// recoverable leak, not a correctness problem for the metadata layer, so
// failures are logged and swallowed.
func (s *Service) deleteBlob(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.blobs.Delete(ctx, path); err != nil {
		logger.Warn("blob delete failed for %s: %v", path, err)
	}
}

// deleteBlobs removes a batch of blobs best-effort, after the owning
// transaction has committed. Filesystem deletion has no transactional undo,
// so blobs are only removed once the metadata that referenced them is gone
// for sure.
func (s *Service) deleteBlobs(ctx context.Context, paths []string) {
	for _, p := range paths {
		s.deleteBlob(ctx, p)
	}
}
