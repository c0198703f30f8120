package badger

import (
	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// ============================================================================
// Folders
// ============================================================================

func (t *tx) Folder(id uuid.UUID) (*metadata.Folder, error) {
	var f metadata.Folder
	if err := t.getRecord(folderKey(id), &f, metadata.NotFound("folder not found", id.String())); err != nil {
		return nil, err
	}
	return &f, nil
}

func (t *tx) RootFolder(ownerID uuid.UUID) (*metadata.Folder, error) {
	id, err := t.getIndexID(rootFolderKey(ownerID), metadata.NotFound("root folder not found", ownerID.String()))
	if err != nil {
		return nil, err
	}
	return t.Folder(id)
}

func (t *tx) ChildFolder(parentID uuid.UUID, name string) (*metadata.Folder, error) {
	id, err := t.getIndexID(folderChildKey(parentID, name), metadata.NotFound("folder not found", name))
	if err != nil {
		return nil, err
	}
	return t.Folder(id)
}

func (t *tx) FolderExists(parentID uuid.UUID, name string) (bool, error) {
	return t.exists(folderChildKey(parentID, name))
}

func (t *tx) Subfolders(parentID uuid.UUID) ([]*metadata.Folder, error) {
	var out []*metadata.Folder
	err := t.scan(folderChildScanPrefix(parentID), func(_, value []byte) (bool, error) {
		id, err := decodeID(value)
		if err != nil {
			return false, err
		}
		f, err := t.Folder(id)
		if err != nil {
			return false, err
		}
		out = append(out, f)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) FoldersOwnedBy(ownerID uuid.UUID) ([]*metadata.Folder, error) {
	var out []*metadata.Folder
	err := t.scanIDs(folderOwnerScanPrefix(ownerID), func(id uuid.UUID) error {
		f, err := t.Folder(id)
		if err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) AllFolders() ([]*metadata.Folder, error) {
	var out []*metadata.Folder
	err := t.scan([]byte(prefixFolder), func(_, value []byte) (bool, error) {
		var f metadata.Folder
		if err := decodeJSON(value, &f); err != nil {
			return false, err
		}
		out = append(out, &f)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) SaveFolder(f *metadata.Folder) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	old, err := t.Folder(f.ID)
	if err != nil && !metadata.IsCode(err, metadata.ErrNotFound) {
		return err
	}
	if old != nil {
		if err := t.dropFolderIndexes(old, f); err != nil {
			return err
		}
	}

	if f.IsRoot() {
		dup := metadata.DuplicateName("owner already has a root folder", f.OwnerID.String())
		if err := t.setUniqueIndex(rootFolderKey(f.OwnerID), f.ID, dup); err != nil {
			return err
		}
	} else {
		dup := metadata.DuplicateName("folder name already used in parent", f.Name)
		if err := t.setUniqueIndex(folderChildKey(*f.ParentID, f.Name), f.ID, dup); err != nil {
			return err
		}
	}
	if err := t.setFlag(folderOwnerKey(f.OwnerID, f.ID)); err != nil {
		return err
	}
	return t.setRecord(folderKey(f.ID), f)
}

// dropFolderIndexes removes the index keys derived from the previously
// stored state that the new state no longer produces.
func (t *tx) dropFolderIndexes(old, updated *metadata.Folder) error {
	sameLocation := old.IsRoot() == updated.IsRoot() &&
		(old.IsRoot() || (*old.ParentID == *updated.ParentID && old.Name == updated.Name))
	if !sameLocation || (old.IsRoot() && old.OwnerID != updated.OwnerID) {
		if old.IsRoot() {
			if err := t.deleteKey(rootFolderKey(old.OwnerID)); err != nil {
				return err
			}
		} else {
			if err := t.deleteKey(folderChildKey(*old.ParentID, old.Name)); err != nil {
				return err
			}
		}
	}
	if old.OwnerID != updated.OwnerID {
		if err := t.deleteKey(folderOwnerKey(old.OwnerID, old.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) DeleteFolder(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	f, err := t.Folder(id)
	if err != nil {
		return err
	}
	if f.IsRoot() {
		if err := t.deleteKey(rootFolderKey(f.OwnerID)); err != nil {
			return err
		}
	} else {
		if err := t.deleteKey(folderChildKey(*f.ParentID, f.Name)); err != nil {
			return err
		}
	}
	if err := t.deleteKey(folderOwnerKey(f.OwnerID, f.ID)); err != nil {
		return err
	}
	return t.deleteKey(folderKey(id))
}

// ============================================================================
// Files
// ============================================================================

func (t *tx) File(id uuid.UUID) (*metadata.FileHeader, error) {
	var h metadata.FileHeader
	if err := t.getRecord(fileKey(id), &h, metadata.NotFound("file not found", id.String())); err != nil {
		return nil, err
	}
	return &h, nil
}

func (t *tx) ChildFile(folderID uuid.UUID, name string) (*metadata.FileHeader, error) {
	id, err := t.getIndexID(fileChildKey(folderID, name), metadata.NotFound("file not found", name))
	if err != nil {
		return nil, err
	}
	return t.File(id)
}

func (t *tx) FileExists(folderID uuid.UUID, name string) (bool, error) {
	return t.exists(fileChildKey(folderID, name))
}

func (t *tx) FilesInFolder(folderID uuid.UUID) ([]*metadata.FileHeader, error) {
	var out []*metadata.FileHeader
	err := t.scan(fileChildScanPrefix(folderID), func(_, value []byte) (bool, error) {
		id, err := decodeID(value)
		if err != nil {
			return false, err
		}
		h, err := t.File(id)
		if err != nil {
			return false, err
		}
		out = append(out, h)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) FilesOwnedBy(ownerID uuid.UUID) ([]*metadata.FileHeader, error) {
	var out []*metadata.FileHeader
	err := t.scanIDs(fileOwnerScanPrefix(ownerID), func(id uuid.UUID) error {
		h, err := t.File(id)
		if err != nil {
			return err
		}
		out = append(out, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) AllFiles() ([]*metadata.FileHeader, error) {
	var out []*metadata.FileHeader
	err := t.scan([]byte(prefixFile), func(_, value []byte) (bool, error) {
		var h metadata.FileHeader
		if err := decodeJSON(value, &h); err != nil {
			return false, err
		}
		out = append(out, &h)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) TotalFileSize(ownerID uuid.UUID) (int64, error) {
	var total int64
	err := t.scanIDs(fileOwnerScanPrefix(ownerID), func(id uuid.UUID) error {
		h, err := t.File(id)
		if err != nil {
			return err
		}
		total += h.TotalSize()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (t *tx) FileCount(ownerID uuid.UUID) (int64, error) {
	var count int64
	err := t.scanIDs(fileOwnerScanPrefix(ownerID), func(uuid.UUID) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (t *tx) SaveFile(h *metadata.FileHeader) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	old, err := t.File(h.ID)
	if err != nil && !metadata.IsCode(err, metadata.ErrNotFound) {
		return err
	}
	if old != nil {
		if old.FolderID != h.FolderID || old.Name != h.Name {
			if err := t.deleteKey(fileChildKey(old.FolderID, old.Name)); err != nil {
				return err
			}
		}
		if old.OwnerID != h.OwnerID {
			if err := t.deleteKey(fileOwnerKey(old.OwnerID, old.ID)); err != nil {
				return err
			}
		}
	}

	dup := metadata.DuplicateName("file name already used in folder", h.Name)
	if err := t.setUniqueIndex(fileChildKey(h.FolderID, h.Name), h.ID, dup); err != nil {
		return err
	}
	if err := t.setFlag(fileOwnerKey(h.OwnerID, h.ID)); err != nil {
		return err
	}
	return t.setRecord(fileKey(h.ID), h)
}

func (t *tx) DeleteFile(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	h, err := t.File(id)
	if err != nil {
		return err
	}
	if err := t.deleteKey(fileChildKey(h.FolderID, h.Name)); err != nil {
		return err
	}
	if err := t.deleteKey(fileOwnerKey(h.OwnerID, h.ID)); err != nil {
		return err
	}
	return t.deleteKey(fileKey(id))
}
