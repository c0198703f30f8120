package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// CreateFolder creates a subfolder. Ownership follows the parent, not the
// creator, so everything in a shared tree stays owned (and billed) to the
// tree's owner. The new folder starts with an independent snapshot of the
// parent's ACL.
func (s *Service) CreateFolder(ctx context.Context, principal, parentID uuid.UUID, name string) (*metadata.Folder, error) {
	if err := checkEntryName(name); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var folder *metadata.Folder
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		parent, err := tx.Folder(parentID)
		if err != nil {
			return err
		}
		if err := requireWrite(tx, principal, parent, parent.Name); err != nil {
			return err
		}
		taken, err := siblingNameTaken(tx, parentID, name)
		if err != nil {
			return err
		}
		if taken {
			return metadata.DuplicateName("an entry with this name already exists", name)
		}

		pid := parentID
		folder = &metadata.Folder{
			ID:          uuid.New(),
			Name:        name,
			OwnerID:     parent.OwnerID,
			ParentID:    &pid,
			Permissions: metadata.SnapshotACL(parent.Permissions),
			Audit:       metadata.NewAuditInfo(principal, now),
		}
		if err := tx.SaveFolder(folder); err != nil {
			return err
		}
		return s.touchAncestors(tx, parentID, principal, now)
	})
	return folder, err
}

// GetFolder retrieves a folder the principal can read.
func (s *Service) GetFolder(ctx context.Context, principal, folderID uuid.UUID) (*metadata.Folder, error) {
	var folder *metadata.Folder
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, f, f.Name); err != nil {
			return err
		}
		folder = f
		return nil
	})
	return folder, err
}

// UserRootFolder retrieves a user's root folder, subject to the usual read
// check so a root shared through its ACL is reachable by other principals.
func (s *Service) UserRootFolder(ctx context.Context, principal, ownerID uuid.UUID) (*metadata.Folder, error) {
	var folder *metadata.Folder
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		f, err := tx.RootFolder(ownerID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, f, f.Name); err != nil {
			return err
		}
		folder = f
		return nil
	})
	return folder, err
}

// Subfolders lists the non-trashed subfolders the principal can read.
// Children the principal cannot read are filtered out, not errors.
func (s *Service) Subfolders(ctx context.Context, principal, folderID uuid.UUID) ([]*metadata.Folder, error) {
	var visible []*metadata.Folder
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, f, f.Name); err != nil {
			return err
		}
		children, err := tx.Subfolders(folderID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.Deleted {
				continue
			}
			if ok, err := metadata.CanRead(tx, principal, child); err != nil {
				return err
			} else if ok {
				visible = append(visible, child)
			}
		}
		return nil
	})
	return visible, err
}

// Files lists the non-trashed files of a folder the principal can read,
// with the same per-child read filtering as Subfolders.
func (s *Service) Files(ctx context.Context, principal, folderID uuid.UUID) ([]*metadata.FileHeader, error) {
	var visible []*metadata.FileHeader
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, f, f.Name); err != nil {
			return err
		}
		files, err := tx.FilesInFolder(folderID)
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.Deleted {
				continue
			}
			if ok, err := metadata.CanRead(tx, principal, file); err != nil {
				return err
			} else if ok {
				visible = append(visible, file)
			}
		}
		return nil
	})
	return visible, err
}

// UpdateFolderRequest carries the mutable folder attributes. Nil pointers
// and nil slices leave the corresponding attribute unchanged.
type UpdateFolderRequest struct {
	Name        *string
	ReadForAll  *bool
	Permissions []metadata.Permission

	// Propagate pushes a replaced permission set down the whole subtree,
	// overwriting the ACL of every descendant folder and file with an
	// independent copy.
	Propagate bool
}

// UpdateFolder changes folder attributes: write capability for renames,
// ownership for readForAll, modify-ACL capability for permission changes.
func (s *Service) UpdateFolder(ctx context.Context, principal, folderID uuid.UUID, req UpdateFolderRequest) (*metadata.Folder, error) {
	if req.Name != nil {
		if err := checkEntryName(*req.Name); err != nil {
			return nil, err
		}
	}
	now := s.now().UTC()
	var folder *metadata.Folder
	var touchedFiles []uuid.UUID
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		touchedFiles = nil
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}

		if req.Name != nil && *req.Name != f.Name {
			if err := requireWrite(tx, principal, f, f.Name); err != nil {
				return err
			}
			if f.ParentID != nil {
				taken, err := siblingNameTaken(tx, *f.ParentID, *req.Name)
				if err != nil {
					return err
				}
				if taken {
					return metadata.DuplicateName("an entry with this name already exists", *req.Name)
				}
			}
			f.Name = *req.Name
		}

		if req.ReadForAll != nil && *req.ReadForAll != f.ReadForAll {
			if f.OwnerID != principal {
				return metadata.PermissionDenied("only the owner may change public readability", f.Name)
			}
			f.ReadForAll = *req.ReadForAll
		}

		if req.Permissions != nil {
			if err := requireModifyACL(tx, principal, f, f.Name); err != nil {
				return err
			}
			if err := metadata.ValidateACL(req.Permissions, f.OwnerID); err != nil {
				return err
			}
			f.Permissions = dropEmptyEntries(metadata.SnapshotACL(req.Permissions))
			if req.Propagate {
				ids, err := s.propagateACL(tx, f, principal, now)
				if err != nil {
					return err
				}
				touchedFiles = ids
			}
		}

		f.Audit.Touch(principal, now)
		if err := tx.SaveFolder(f); err != nil {
			return err
		}
		if f.ParentID != nil {
			if err := s.touchAncestors(tx, *f.ParentID, principal, now); err != nil {
				return err
			}
		}
		folder = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, id := range touchedFiles {
		s.notifier.FileUpdated(id)
	}
	return folder, nil
}

// propagateACL overwrites every descendant's ACL with an independent copy
// of the folder's new permission set. Returns the IDs of affected files.
func (s *Service) propagateACL(tx metadata.Tx, root *metadata.Folder, principal uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	var fileIDs []uuid.UUID
	queue := []uuid.UUID{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		files, err := tx.FilesInFolder(id)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			file.Permissions = metadata.SnapshotACL(root.Permissions)
			file.Audit.Touch(principal, now)
			if err := tx.SaveFile(file); err != nil {
				return nil, err
			}
			fileIDs = append(fileIDs, file.ID)
		}

		children, err := tx.Subfolders(id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			child.Permissions = metadata.SnapshotACL(root.Permissions)
			child.Audit.Touch(principal, now)
			if err := tx.SaveFolder(child); err != nil {
				return nil, err
			}
			queue = append(queue, child.ID)
		}
	}
	return fileIDs, nil
}

// DeleteFolder hard-deletes a folder and its entire subtree: every
// descendant folder, file record and blob. The delete check applies to the
// target folder only; descendants go with it. Root folders cannot be
// deleted.
func (s *Service) DeleteFolder(ctx context.Context, principal, folderID uuid.UUID) error {
	now := s.now().UTC()
	var orphanBlobs []string
	var deletedFiles []uuid.UUID
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		orphanBlobs = nil
		deletedFiles = nil
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if f.IsRoot() {
			return metadata.Invariant("root folder cannot be deleted", f.Name)
		}
		if err := requireDelete(tx, principal, f, f.Name); err != nil {
			return err
		}

		subtree, err := collectSubtree(tx, f)
		if err != nil {
			return err
		}
		// Files first, then folders children-before-parents.
		for _, folder := range subtree {
			files, err := tx.FilesInFolder(folder.ID)
			if err != nil {
				return err
			}
			for _, file := range files {
				for _, b := range file.Bodies {
					orphanBlobs = append(orphanBlobs, b.StoredPath)
				}
				if err := tx.DeleteFile(file.ID); err != nil {
					return err
				}
				deletedFiles = append(deletedFiles, file.ID)
			}
		}
		for i := len(subtree) - 1; i >= 0; i-- {
			if err := tx.DeleteFolder(subtree[i].ID); err != nil {
				return err
			}
		}
		return s.touchAncestors(tx, *f.ParentID, principal, now)
	})
	if err != nil {
		return err
	}
	s.deleteBlobs(ctx, orphanBlobs)
	for _, id := range deletedFiles {
		s.notifier.FileDeleted(id)
	}
	return nil
}

// MoveFolder reparents a folder under a destination folder. A trashed
// source is left in place (no-op). Moving a folder into its own subtree,
// or moving a root, is rejected.
//
// A cross-owner move hands the whole subtree to the destination's owner:
// every descendant folder and file is reassigned, the incoming file bytes
// are charged against the new owner's quota in the same transaction, and
// each reassigned entity's ACL is patched to grant the new owner full
// capabilities.
func (s *Service) MoveFolder(ctx context.Context, principal, folderID, destID uuid.UUID) error {
	now := s.now().UTC()
	var movedFiles []uuid.UUID
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		movedFiles = nil
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if f.Deleted {
			return nil
		}
		if f.IsRoot() {
			return metadata.Invariant("root folder cannot be moved", f.Name)
		}
		dest, err := tx.Folder(destID)
		if err != nil {
			return err
		}
		if inside, err := isWithinSubtree(tx, destID, folderID); err != nil {
			return err
		} else if inside {
			return metadata.Invariant("cannot move a folder into its own subtree", f.Name)
		}
		if err := requireDelete(tx, principal, f, f.Name); err != nil {
			return err
		}
		if err := requireWrite(tx, principal, dest, dest.Name); err != nil {
			return err
		}
		taken, err := siblingNameTaken(tx, destID, f.Name)
		if err != nil {
			return err
		}
		if taken {
			return metadata.DuplicateName("an entry with this name already exists", f.Name)
		}

		if f.OwnerID != dest.OwnerID {
			ids, err := s.reassignSubtree(tx, f, dest.OwnerID, principal, now)
			if err != nil {
				return err
			}
			movedFiles = ids
		}

		oldParent := *f.ParentID
		pid := destID
		f.ParentID = &pid
		f.Audit.Touch(principal, now)
		if err := tx.SaveFolder(f); err != nil {
			return err
		}
		if err := s.touchAncestors(tx, oldParent, principal, now); err != nil {
			return err
		}
		return s.touchAncestors(tx, destID, principal, now)
	})
	if err != nil {
		return err
	}
	for _, id := range movedFiles {
		s.notifier.FileUpdated(id)
	}
	return nil
}

// reassignSubtree transfers ownership of every folder and file in the
// subtree to newOwner. The combined size of files changing hands is checked
// against newOwner's remaining quota before anything is written.
func (s *Service) reassignSubtree(tx metadata.Tx, root *metadata.Folder, newOwner, principal uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	subtree, err := collectSubtree(tx, root)
	if err != nil {
		return nil, err
	}

	var incoming int64
	var files []*metadata.FileHeader
	for _, folder := range subtree {
		inFolder, err := tx.FilesInFolder(folder.ID)
		if err != nil {
			return nil, err
		}
		for _, file := range inFolder {
			if file.OwnerID != newOwner {
				incoming += file.TotalSize()
			}
			files = append(files, file)
		}
	}

	avail, err := s.availableQuota(tx, newOwner)
	if err != nil {
		return nil, err
	}
	if avail < incoming {
		return nil, metadata.QuotaExceeded("destination owner's quota is insufficient")
	}

	for _, folder := range subtree {
		folder.OwnerID = newOwner
		folder.Permissions = ensureOwnerEntry(folder.Permissions, newOwner)
		folder.Audit.Touch(principal, now)
		if err := tx.SaveFolder(folder); err != nil {
			return nil, err
		}
	}
	fileIDs := make([]uuid.UUID, 0, len(files))
	for _, file := range files {
		file.OwnerID = newOwner
		file.Permissions = ensureOwnerEntry(file.Permissions, newOwner)
		file.Audit.Touch(principal, now)
		if err := tx.SaveFile(file); err != nil {
			return nil, err
		}
		fileIDs = append(fileIDs, file.ID)
	}
	return fileIDs, nil
}

// CopyFolder creates a shallow copy of a folder (no contents) under the
// destination. The copy behaves like a freshly created folder: it belongs
// to the destination's owner and inherits the destination's ACL.
func (s *Service) CopyFolder(ctx context.Context, principal, folderID, destID uuid.UUID, destName string) (*metadata.Folder, error) {
	var name string
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if err := requireRead(tx, principal, f, f.Name); err != nil {
			return err
		}
		name = f.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	if destName != "" {
		name = destName
	}
	return s.CreateFolder(ctx, principal, destID, name)
}

// CopyFolderStructure deep-copies a folder: the folder itself, every
// readable non-trashed descendant folder, and every readable non-trashed
// file (contents included, quota-checked per file).
//
// The copy proceeds node by node, each node its own operation; a failure
// partway leaves the nodes already copied in place.
func (s *Service) CopyFolderStructure(ctx context.Context, principal, folderID, destID uuid.UUID, destName string) (*metadata.Folder, error) {
	top, err := s.CopyFolder(ctx, principal, folderID, destID, destName)
	if err != nil {
		return nil, err
	}

	type pair struct{ src, dst uuid.UUID }
	queue := []pair{{src: folderID, dst: top.ID}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		files, err := s.Files(ctx, principal, p.src)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if _, err := s.CopyFile(ctx, principal, file.ID, p.dst, ""); err != nil {
				return nil, err
			}
		}

		subfolders, err := s.Subfolders(ctx, principal, p.src)
		if err != nil {
			return nil, err
		}
		for _, sub := range subfolders {
			copied, err := s.CreateFolder(ctx, principal, p.dst, sub.Name)
			if err != nil {
				return nil, err
			}
			queue = append(queue, pair{src: sub.ID, dst: copied.ID})
		}
	}
	return top, nil
}

// MoveFolderToTrash soft-deletes the folder and its entire subtree. Blobs
// and records stay; only visibility changes, recoverably.
func (s *Service) MoveFolderToTrash(ctx context.Context, principal, folderID uuid.UUID) error {
	return s.setFolderTrashed(ctx, principal, folderID, true)
}

// RemoveFolderFromTrash restores the folder and its subtree from trash.
func (s *Service) RemoveFolderFromTrash(ctx context.Context, principal, folderID uuid.UUID) error {
	return s.setFolderTrashed(ctx, principal, folderID, false)
}

func (s *Service) setFolderTrashed(ctx context.Context, principal, folderID uuid.UUID, trashed bool) error {
	now := s.now().UTC()
	var touchedFiles []uuid.UUID
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		touchedFiles = nil
		f, err := tx.Folder(folderID)
		if err != nil {
			return err
		}
		if f.IsRoot() {
			return metadata.Invariant("root folder cannot be trashed", f.Name)
		}
		if err := requireDelete(tx, principal, f, f.Name); err != nil {
			return err
		}
		ids, err := s.markSubtree(tx, f, trashed, principal, now)
		if err != nil {
			return err
		}
		touchedFiles = ids
		return s.touchAncestors(tx, *f.ParentID, principal, now)
	})
	if err != nil {
		return err
	}
	for _, id := range touchedFiles {
		s.notifier.FileUpdated(id)
	}
	return nil
}

// markSubtree flips the trash flag on every folder and file of the subtree.
func (s *Service) markSubtree(tx metadata.Tx, root *metadata.Folder, trashed bool, principal uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	subtree, err := collectSubtree(tx, root)
	if err != nil {
		return nil, err
	}
	var fileIDs []uuid.UUID
	for _, folder := range subtree {
		folder.Deleted = trashed
		folder.Audit.Touch(principal, now)
		if err := tx.SaveFolder(folder); err != nil {
			return nil, err
		}
		files, err := tx.FilesInFolder(folder.ID)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			file.Deleted = trashed
			file.Audit.Touch(principal, now)
			if err := tx.SaveFile(file); err != nil {
				return nil, err
			}
			fileIDs = append(fileIDs, file.ID)
		}
	}
	return fileIDs, nil
}

// TrashedFolders lists the principal's trash roots among folders: trashed
// folders they own whose parent is not itself trashed.
func (s *Service) TrashedFolders(ctx context.Context, principal uuid.UUID) ([]*metadata.Folder, error) {
	var roots []*metadata.Folder
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		roots = nil
		owned, err := tx.FoldersOwnedBy(principal)
		if err != nil {
			return err
		}
		for _, f := range owned {
			if !f.Deleted || f.ParentID == nil {
				continue
			}
			parent, err := tx.Folder(*f.ParentID)
			if err != nil {
				return err
			}
			if !parent.Deleted {
				roots = append(roots, f)
			}
		}
		return nil
	})
	return roots, err
}

// TrashedFiles lists the principal's trash roots among files: trashed files
// they own whose folder is not itself trashed.
func (s *Service) TrashedFiles(ctx context.Context, principal uuid.UUID) ([]*metadata.FileHeader, error) {
	var roots []*metadata.FileHeader
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		roots = nil
		owned, err := tx.FilesOwnedBy(principal)
		if err != nil {
			return err
		}
		for _, h := range owned {
			if !h.Deleted {
				continue
			}
			folder, err := tx.Folder(h.FolderID)
			if err != nil {
				return err
			}
			if !folder.Deleted {
				roots = append(roots, h)
			}
		}
		return nil
	})
	return roots, err
}

// EmptyTrash hard-deletes everything in the principal's trash: each trashed
// root folder with its subtree, and each individually trashed file.
func (s *Service) EmptyTrash(ctx context.Context, principal uuid.UUID) error {
	folders, err := s.TrashedFolders(ctx, principal)
	if err != nil {
		return err
	}
	for _, f := range folders {
		if err := s.DeleteFolder(ctx, principal, f.ID); err != nil {
			return err
		}
	}
	files, err := s.TrashedFiles(ctx, principal)
	if err != nil {
		return err
	}
	for _, h := range files {
		if err := s.DeleteFile(ctx, principal, h.ID); err != nil {
			return err
		}
	}
	return nil
}

// RestoreTrash brings everything in the principal's trash back: each
// trashed root folder with its subtree, and each individually trashed file.
func (s *Service) RestoreTrash(ctx context.Context, principal uuid.UUID) error {
	folders, err := s.TrashedFolders(ctx, principal)
	if err != nil {
		return err
	}
	for _, f := range folders {
		if err := s.RemoveFolderFromTrash(ctx, principal, f.ID); err != nil {
			return err
		}
	}
	files, err := s.TrashedFiles(ctx, principal)
	if err != nil {
		return err
	}
	for _, h := range files {
		if err := s.RemoveFileFromTrash(ctx, principal, h.ID); err != nil {
			return err
		}
	}
	return nil
}

// collectSubtree returns the subtree rooted at the folder, parents before
// children, via worklist traversal. The hierarchy has no cycles (folders
// have one parent and moves into the own subtree are rejected), so no
// visited set is kept.
func collectSubtree(tx metadata.Tx, root *metadata.Folder) ([]*metadata.Folder, error) {
	out := []*metadata.Folder{root}
	for i := 0; i < len(out); i++ {
		children, err := tx.Subfolders(out[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

// isWithinSubtree reports whether candidate sits at or below root, by
// walking candidate's parent chain upward.
func isWithinSubtree(tx metadata.Tx, candidate, root uuid.UUID) (bool, error) {
	current := candidate
	for {
		if current == root {
			return true, nil
		}
		f, err := tx.Folder(current)
		if err != nil {
			return false, err
		}
		if f.ParentID == nil {
			return false, nil
		}
		current = *f.ParentID
	}
}
