package service

import (
	"context"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// headCapture retains the first sniffLimit bytes flowing through a tee, so
// content-type detection can look at the payload without buffering it all.
type headCapture struct {
	buf []byte
}

func (h *headCapture) Write(p []byte) (int, error) {
	if len(h.buf) < sniffLimit {
		n := sniffLimit - len(h.buf)
		if n > len(p) {
			n = len(p)
		}
		h.buf = append(h.buf, p[:n]...)
	}
	return len(p), nil
}

// uploadBlob streams the payload into the blob store, capturing the leading
// bytes for MIME sniffing. The returned path refers to a committed blob that
// the caller must delete if the owning operation fails.
func (s *Service) uploadBlob(ctx context.Context, data io.Reader) (string, int64, []byte, error) {
	head := &headCapture{}
	path, size, err := s.blobs.Put(ctx, io.TeeReader(data, head))
	if err != nil {
		return "", 0, nil, err
	}
	return path, size, head.buf, nil
}

// CreateFile uploads a new file into a folder.
//
// The payload is uploaded before quota is confirmed: on a quota rejection
// (or any other failure) the freshly written blob is deleted again. Upload-
// then-check-then-maybe-rollback is the explicit ordering, since the
// payload size is only known after streaming it.
//
// The new file belongs to the folder's owner, starts at version 1, and
// carries an independent snapshot of the folder's permission entries.
func (s *Service) CreateFile(ctx context.Context, principal, folderID uuid.UUID, name, mimeType string, data io.Reader) (*metadata.FileHeader, error) {
	if err := checkEntryName(name); err != nil {
		return nil, err
	}
	blobPath, size, head, err := s.uploadBlob(ctx, data)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var file *metadata.FileHeader
	err = s.store.Update(ctx, func(tx metadata.Tx) error {
		folder, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if err := requireWrite(tx, principal, folder, folder.Name); err != nil {
			return err
		}
		taken, err := siblingNameTaken(tx, folderID, name)
		if err != nil {
			return err
		}
		if taken {
			return metadata.DuplicateName("an entry with this name already exists", name)
		}
		avail, err := s.availableQuota(tx, folder.OwnerID)
		if err != nil {
			return err
		}
		if avail < size {
			return metadata.QuotaExceeded("insufficient quota for upload")
		}

		file = &metadata.FileHeader{
			ID:             uuid.New(),
			Name:           name,
			OwnerID:        folder.OwnerID,
			FolderID:       folderID,
			Permissions:    metadata.SnapshotACL(folder.Permissions),
			CurrentVersion: 1,
			Bodies: []metadata.FileBody{{
				Version:      1,
				MimeType:     resolveMimeType(name, mimeType, head),
				Size:         size,
				OriginalName: name,
				StoredPath:   blobPath,
				Audit:        metadata.NewAuditInfo(principal, now),
			}},
			Audit: metadata.NewAuditInfo(principal, now),
		}
		if err := tx.SaveFile(file); err != nil {
			return err
		}
		return s.touchAncestors(tx, folderID, principal, now)
	})
	if err != nil {
		s.deleteBlob(ctx, blobPath)
		return nil, err
	}
	s.notifier.FileUpdated(file.ID)
	return file, nil
}

// GetFile retrieves a file header the principal can read.
func (s *Service) GetFile(ctx context.Context, principal, fileID uuid.UUID) (*metadata.FileHeader, error) {
	var file *metadata.FileHeader
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, h, h.Name); err != nil {
			return err
		}
		file = h
		return nil
	})
	return file, err
}

// FileContents opens the file's content for reading. Version 0 means the
// current body. The blob is opened after the metadata transaction ends so
// no transaction stays open across content I/O.
func (s *Service) FileContents(ctx context.Context, principal, fileID uuid.UUID, version int) (io.ReadCloser, *metadata.FileBody, error) {
	var body *metadata.FileBody
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, h, h.Name); err != nil {
			return err
		}
		b := h.CurrentBody()
		if version != 0 {
			b = h.Body(version)
		}
		if b == nil {
			return metadata.NotFound("version not found", h.Name)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.blobs.Open(ctx, body.StoredPath)
	if err != nil {
		return nil, nil, err
	}
	return reader, body, nil
}

// Versions returns the file's bodies, most recent first.
func (s *Service) Versions(ctx context.Context, principal, fileID uuid.UUID) ([]metadata.FileBody, error) {
	var versions []metadata.FileBody
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, h, h.Name); err != nil {
			return err
		}
		versions = append([]metadata.FileBody(nil), h.Bodies...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version > versions[j].Version })
	return versions, nil
}

// UpdateFileRequest carries the mutable file attributes. Nil pointers and
// nil slices leave the corresponding attribute unchanged.
type UpdateFileRequest struct {
	Name        *string
	Tags        []string
	Versioned   *bool
	ReadForAll  *bool
	Permissions []metadata.Permission
}

// UpdateFile changes file attributes under per-field permission rules:
// write capability for name, tags and the versioned flag; ownership for
// readForAll; modify-ACL capability for the permission list, which must
// retain the owner's full grant.
//
// Turning versioning off on a file with multiple bodies immediately prunes
// every non-current body and renumbers the survivor to version 1.
func (s *Service) UpdateFile(ctx context.Context, principal, fileID uuid.UUID, req UpdateFileRequest) (*metadata.FileHeader, error) {
	if req.Name != nil {
		if err := checkEntryName(*req.Name); err != nil {
			return nil, err
		}
	}
	now := s.now().UTC()
	var file *metadata.FileHeader
	var prunedBlobs []string
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		prunedBlobs = nil
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}

		if req.Name != nil || req.Tags != nil || req.Versioned != nil {
			if err := requireWrite(tx, principal, h, h.Name); err != nil {
				return err
			}
		}

		if req.Name != nil && *req.Name != h.Name {
			taken, err := siblingNameTaken(tx, h.FolderID, *req.Name)
			if err != nil {
				return err
			}
			if taken {
				return metadata.DuplicateName("an entry with this name already exists", *req.Name)
			}
			h.Name = *req.Name
		}

		if req.Tags != nil {
			h.Tags = append([]string(nil), req.Tags...)
		}

		if req.Versioned != nil && *req.Versioned != h.Versioned {
			h.Versioned = *req.Versioned
			if !h.Versioned && len(h.Bodies) > 1 {
				prunedBlobs = pruneToCurrent(h)
			}
		}

		if req.ReadForAll != nil && *req.ReadForAll != h.ReadForAll {
			if h.OwnerID != principal {
				return metadata.PermissionDenied("only the owner may change public readability", h.Name)
			}
			h.ReadForAll = *req.ReadForAll
		}

		if req.Permissions != nil {
			if err := requireModifyACL(tx, principal, h, h.Name); err != nil {
				return err
			}
			if err := metadata.ValidateACL(req.Permissions, h.OwnerID); err != nil {
				return err
			}
			h.Permissions = dropEmptyEntries(metadata.SnapshotACL(req.Permissions))
		}

		h.Audit.Touch(principal, now)
		if err := tx.SaveFile(h); err != nil {
			return err
		}
		if err := s.touchAncestors(tx, h.FolderID, principal, now); err != nil {
			return err
		}
		file = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deleteBlobs(ctx, prunedBlobs)
	s.notifier.FileUpdated(fileID)
	return file, nil
}

// pruneToCurrent drops every body except the current one, renumbers the
// survivor to version 1, and returns the dropped bodies' blob paths.
func pruneToCurrent(h *metadata.FileHeader) []string {
	current := h.CurrentBody()
	var dropped []string
	for _, b := range h.Bodies {
		if b.Version != current.Version {
			dropped = append(dropped, b.StoredPath)
		}
	}
	keep := *current
	keep.Version = 1
	h.Bodies = []metadata.FileBody{keep}
	h.CurrentVersion = 1
	return dropped
}

// UpdateFileContents uploads new content for the file. A versioned file
// appends a new current version; a non-versioned file replaces its current
// body and the old blob is deleted once the transaction commits.
//
// The quota check charges the delta: for a replacement the current body's
// size is subtracted first, so a same-size overwrite never fails on quota.
func (s *Service) UpdateFileContents(ctx context.Context, principal, fileID uuid.UUID, mimeType string, data io.Reader) (*metadata.FileHeader, error) {
	blobPath, size, head, err := s.uploadBlob(ctx, data)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var file *metadata.FileHeader
	var replacedBlob string
	err = s.store.Update(ctx, func(tx metadata.Tx) error {
		replacedBlob = ""
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireWrite(tx, principal, h, h.Name); err != nil {
			return err
		}

		avail, err := s.availableQuota(tx, h.OwnerID)
		if err != nil {
			return err
		}
		if !h.Versioned {
			// The replaced body's bytes come back before the new ones
			// are charged.
			avail += h.TotalSize()
		}
		if avail < size {
			return metadata.QuotaExceeded("insufficient quota for upload")
		}

		body := metadata.FileBody{
			MimeType:     resolveMimeType(h.Name, mimeType, head),
			Size:         size,
			OriginalName: h.Name,
			StoredPath:   blobPath,
			Audit:        metadata.NewAuditInfo(principal, now),
		}
		if h.Versioned {
			body.Version = h.MaxVersion() + 1
			h.Bodies = append(h.Bodies, body)
			h.CurrentVersion = body.Version
		} else {
			current := h.CurrentBody()
			if current == nil {
				return metadata.Invariant("file has no current body", h.Name)
			}
			replacedBlob = current.StoredPath
			body.Version = current.Version
			*current = body
		}

		h.Audit.Touch(principal, now)
		if err := tx.SaveFile(h); err != nil {
			return err
		}
		if err := s.touchAncestors(tx, h.FolderID, principal, now); err != nil {
			return err
		}
		file = h
		return nil
	})
	if err != nil {
		s.deleteBlob(ctx, blobPath)
		return nil, err
	}
	s.deleteBlob(ctx, replacedBlob)
	s.notifier.FileUpdated(fileID)
	return file, nil
}

// RemoveVersion deletes one historical body. Removing the only body is
// forbidden (delete the file instead). Removing the current body promotes
// the immediately preceding version to current.
func (s *Service) RemoveVersion(ctx context.Context, principal, fileID uuid.UUID, version int) error {
	now := s.now().UTC()
	var removedBlob string
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireWrite(tx, principal, h, h.Name); err != nil {
			return err
		}
		if len(h.Bodies) <= 1 {
			return metadata.Invariant("cannot remove the only version", h.Name)
		}

		idx := -1
		for i, b := range h.Bodies {
			if b.Version == version {
				idx = i
				break
			}
		}
		if idx < 0 {
			return metadata.NotFound("version not found", h.Name)
		}

		removedBlob = h.Bodies[idx].StoredPath
		if h.CurrentVersion == version {
			// Removing the current version promotes its predecessor.
			// When the current version is also the oldest, the next
			// newer one is promoted instead; the current pointer must
			// always land on a surviving body.
			promote := idx - 1
			if promote < 0 {
				promote = idx + 1
			}
			h.CurrentVersion = h.Bodies[promote].Version
		}
		h.Bodies = append(h.Bodies[:idx], h.Bodies[idx+1:]...)

		h.Audit.Touch(principal, now)
		if err := tx.SaveFile(h); err != nil {
			return err
		}
		return s.touchAncestors(tx, h.FolderID, principal, now)
	})
	if err != nil {
		return err
	}
	s.deleteBlob(ctx, removedBlob)
	s.notifier.FileUpdated(fileID)
	return nil
}

// RestoreVersion re-uploads a historical body's bytes as a brand new
// version instead of reverting pointers, keeping version history linear.
func (s *Service) RestoreVersion(ctx context.Context, principal, fileID uuid.UUID, version int) (*metadata.FileHeader, error) {
	var body *metadata.FileBody
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireWrite(tx, principal, h, h.Name); err != nil {
			return err
		}
		b := h.Body(version)
		if b == nil {
			return metadata.NotFound("version not found", h.Name)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	reader, err := s.blobs.Open(ctx, body.StoredPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return s.UpdateFileContents(ctx, principal, fileID, body.MimeType, reader)
}

// RemoveOldVersions prunes every body except the current one and renumbers
// it to version 1. The versioned flag is left alone.
func (s *Service) RemoveOldVersions(ctx context.Context, principal, fileID uuid.UUID) error {
	now := s.now().UTC()
	var prunedBlobs []string
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		prunedBlobs = nil
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireWrite(tx, principal, h, h.Name); err != nil {
			return err
		}
		if len(h.Bodies) > 1 {
			prunedBlobs = pruneToCurrent(h)
		}
		h.Audit.Touch(principal, now)
		if err := tx.SaveFile(h); err != nil {
			return err
		}
		return s.touchAncestors(tx, h.FolderID, principal, now)
	})
	if err != nil {
		return err
	}
	s.deleteBlobs(ctx, prunedBlobs)
	s.notifier.FileUpdated(fileID)
	return nil
}

// DeleteFile hard-deletes the file: every body's blob and the record.
func (s *Service) DeleteFile(ctx context.Context, principal, fileID uuid.UUID) error {
	now := s.now().UTC()
	var orphanBlobs []string
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		orphanBlobs = nil
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireDelete(tx, principal, h, h.Name); err != nil {
			return err
		}
		for _, b := range h.Bodies {
			orphanBlobs = append(orphanBlobs, b.StoredPath)
		}
		if err := tx.DeleteFile(fileID); err != nil {
			return err
		}
		return s.touchAncestors(tx, h.FolderID, principal, now)
	})
	if err != nil {
		return err
	}
	s.deleteBlobs(ctx, orphanBlobs)
	s.notifier.FileDeleted(fileID)
	return nil
}

// MoveFile moves a file into another folder, renaming it when destName is
// non-empty. A trashed file is left where it is (no-op). A cross-owner move
// reassigns ownership to the destination folder's owner, charges the file's
// bytes against that owner's quota in the same transaction, and ensures the
// new owner holds a full permission entry on the file.
func (s *Service) MoveFile(ctx context.Context, principal, fileID, destFolderID uuid.UUID, destName string) error {
	if destName != "" {
		if err := checkEntryName(destName); err != nil {
			return err
		}
	}
	now := s.now().UTC()
	moved := false
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if h.Deleted {
			return nil
		}
		dest, err := tx.Folder(destFolderID)
		if err != nil {
			return err
		}
		if err := requireDelete(tx, principal, h, h.Name); err != nil {
			return err
		}
		if err := requireWrite(tx, principal, dest, dest.Name); err != nil {
			return err
		}

		name := destName
		if name == "" {
			name = h.Name
		}
		taken, err := siblingNameTaken(tx, destFolderID, name)
		if err != nil {
			return err
		}
		if taken {
			return metadata.DuplicateName("an entry with this name already exists", name)
		}

		if h.OwnerID != dest.OwnerID {
			avail, err := s.availableQuota(tx, dest.OwnerID)
			if err != nil {
				return err
			}
			if avail < h.TotalSize() {
				return metadata.QuotaExceeded("destination owner's quota is insufficient")
			}
			h.OwnerID = dest.OwnerID
			h.Permissions = ensureOwnerEntry(h.Permissions, dest.OwnerID)
		}

		oldFolder := h.FolderID
		h.FolderID = destFolderID
		h.Name = name
		h.Audit.Touch(principal, now)
		if err := tx.SaveFile(h); err != nil {
			return err
		}
		if err := s.touchAncestors(tx, oldFolder, principal, now); err != nil {
			return err
		}
		if err := s.touchAncestors(tx, destFolderID, principal, now); err != nil {
			return err
		}
		moved = true
		return nil
	})
	if err != nil {
		return err
	}
	if moved {
		s.notifier.FileUpdated(fileID)
	}
	return nil
}

// CopyFile duplicates a file into a destination folder. Every retained
// body's blob is copied, oldest version first, so the copy has the same
// version history; the versioned flag and tags carry over, while the
// permission set is a fresh snapshot of the destination folder's ACL and
// the copy belongs to the destination folder's owner.
func (s *Service) CopyFile(ctx context.Context, principal, fileID, destFolderID uuid.UUID, destName string) (*metadata.FileHeader, error) {
	if destName != "" {
		if err := checkEntryName(destName); err != nil {
			return nil, err
		}
	}
	var source *metadata.FileHeader
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, h, h.Name); err != nil {
			return err
		}
		source = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Duplicate blobs outside any metadata transaction, oldest first.
	type copiedBody struct {
		metadata.FileBody
		newPath string
	}
	copies := make([]copiedBody, 0, len(source.Bodies))
	cleanup := func() {
		for _, c := range copies {
			s.deleteBlob(ctx, c.newPath)
		}
	}
	for _, b := range source.Bodies {
		reader, err := s.blobs.Open(ctx, b.StoredPath)
		if err != nil {
			cleanup()
			return nil, err
		}
		newPath, _, err := s.blobs.Put(ctx, reader)
		_ = reader.Close()
		if err != nil {
			cleanup()
			return nil, err
		}
		copies = append(copies, copiedBody{FileBody: b, newPath: newPath})
	}

	now := s.now().UTC()
	var file *metadata.FileHeader
	err = s.store.Update(ctx, func(tx metadata.Tx) error {
		dest, err := tx.Folder(destFolderID)
		if err != nil {
			return err
		}
		if err := requireWrite(tx, principal, dest, dest.Name); err != nil {
			return err
		}

		name := destName
		if name == "" {
			name = source.Name
		}
		taken, err := siblingNameTaken(tx, destFolderID, name)
		if err != nil {
			return err
		}
		if taken {
			return metadata.DuplicateName("an entry with this name already exists", name)
		}

		var copiedSize int64
		bodies := make([]metadata.FileBody, 0, len(copies))
		for _, c := range copies {
			body := c.FileBody
			body.StoredPath = c.newPath
			body.Audit = metadata.NewAuditInfo(principal, now)
			bodies = append(bodies, body)
		}
		if source.Versioned {
			for _, b := range bodies {
				copiedSize += b.Size
			}
		} else if cur := source.CurrentBody(); cur != nil {
			copiedSize = cur.Size
		}

		avail, err := s.availableQuota(tx, dest.OwnerID)
		if err != nil {
			return err
		}
		if avail < copiedSize {
			return metadata.QuotaExceeded("insufficient quota for copy")
		}

		file = &metadata.FileHeader{
			ID:             uuid.New(),
			Name:           name,
			OwnerID:        dest.OwnerID,
			FolderID:       destFolderID,
			Versioned:      source.Versioned,
			Permissions:    metadata.SnapshotACL(dest.Permissions),
			Tags:           append([]string(nil), source.Tags...),
			Bodies:         bodies,
			CurrentVersion: source.CurrentVersion,
			Audit:          metadata.NewAuditInfo(principal, now),
		}
		if err := tx.SaveFile(file); err != nil {
			return err
		}
		return s.touchAncestors(tx, destFolderID, principal, now)
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	s.notifier.FileUpdated(file.ID)
	return file, nil
}

// MoveFileToTrash soft-deletes the file. Blobs stay untouched.
func (s *Service) MoveFileToTrash(ctx context.Context, principal, fileID uuid.UUID) error {
	return s.setFileTrashed(ctx, principal, fileID, true)
}

// RemoveFileFromTrash restores a trashed file.
func (s *Service) RemoveFileFromTrash(ctx context.Context, principal, fileID uuid.UUID) error {
	return s.setFileTrashed(ctx, principal, fileID, false)
}

func (s *Service) setFileTrashed(ctx context.Context, principal, fileID uuid.UUID, trashed bool) error {
	now := s.now().UTC()
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		h, err := tx.File(fileID)
		if err != nil {
			return err
		}
		if err := requireDelete(tx, principal, h, h.Name); err != nil {
			return err
		}
		if h.Deleted == trashed {
			return nil
		}
		h.Deleted = trashed
		h.Audit.Touch(principal, now)
		if err := tx.SaveFile(h); err != nil {
			return err
		}
		return s.touchAncestors(tx, h.FolderID, principal, now)
	})
	if err != nil {
		return err
	}
	s.notifier.FileUpdated(fileID)
	return nil
}

// ============================================================================
// Batch variants
// ============================================================================
//
// Each element runs as its own operation (and transaction); the batch stops
// at the first failure, leaving earlier elements applied.

// DeleteFiles hard-deletes several files.
func (s *Service) DeleteFiles(ctx context.Context, principal uuid.UUID, fileIDs []uuid.UUID) error {
	for _, id := range fileIDs {
		if err := s.DeleteFile(ctx, principal, id); err != nil {
			return err
		}
	}
	return nil
}

// MoveFiles moves several files into one destination folder.
func (s *Service) MoveFiles(ctx context.Context, principal uuid.UUID, fileIDs []uuid.UUID, destFolderID uuid.UUID) error {
	for _, id := range fileIDs {
		if err := s.MoveFile(ctx, principal, id, destFolderID, ""); err != nil {
			return err
		}
	}
	return nil
}

// CopyFiles copies several files into one destination folder under their
// own names.
func (s *Service) CopyFiles(ctx context.Context, principal uuid.UUID, fileIDs []uuid.UUID, destFolderID uuid.UUID) error {
	for _, id := range fileIDs {
		if _, err := s.CopyFile(ctx, principal, id, destFolderID, ""); err != nil {
			return err
		}
	}
	return nil
}

// MoveFilesToTrash soft-deletes several files.
func (s *Service) MoveFilesToTrash(ctx context.Context, principal uuid.UUID, fileIDs []uuid.UUID) error {
	for _, id := range fileIDs {
		if err := s.MoveFileToTrash(ctx, principal, id); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFilesFromTrash restores several trashed files.
func (s *Service) RemoveFilesFromTrash(ctx context.Context, principal uuid.UUID, fileIDs []uuid.UUID) error {
	for _, id := range fileIDs {
		if err := s.RemoveFileFromTrash(ctx, principal, id); err != nil {
			return err
		}
	}
	return nil
}

// ensureOwnerEntry guarantees the ACL carries a full-capability entry for
// the owner, appending one when missing.
func ensureOwnerEntry(acl []metadata.Permission, ownerID uuid.UUID) []metadata.Permission {
	for i, p := range acl {
		if p.IsFor(ownerID) {
			acl[i].Read = true
			acl[i].Write = true
			acl[i].ModifyACL = true
			return acl
		}
	}
	return append(acl, metadata.OwnerPermission(ownerID))
}

// dropEmptyEntries removes entries that grant nothing.
func dropEmptyEntries(acl []metadata.Permission) []metadata.Permission {
	kept := acl[:0:0]
	for _, p := range acl {
		if !p.Empty() {
			kept = append(kept, p)
		}
	}
	return kept
}
