package memory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// ============================================================================
// Folders
// ============================================================================

func (t *tx) Folder(id uuid.UUID) (*metadata.Folder, error) {
	f, ok := t.folders.get(id)
	if !ok {
		return nil, metadata.NotFound("folder not found", id.String())
	}
	return f, nil
}

func (t *tx) RootFolder(ownerID uuid.UUID) (*metadata.Folder, error) {
	var found *metadata.Folder
	t.folders.each(func(_ uuid.UUID, f *metadata.Folder) bool {
		if f.IsRoot() && f.OwnerID == ownerID {
			found = f
			return false
		}
		return true
	})
	if found == nil {
		return nil, metadata.NotFound("root folder not found", ownerID.String())
	}
	return found, nil
}

func (t *tx) ChildFolder(parentID uuid.UUID, name string) (*metadata.Folder, error) {
	var found *metadata.Folder
	t.folders.each(func(_ uuid.UUID, f *metadata.Folder) bool {
		if f.ParentID != nil && *f.ParentID == parentID && f.Name == name {
			found = f
			return false
		}
		return true
	})
	if found == nil {
		return nil, metadata.NotFound("folder not found", name)
	}
	return found, nil
}

func (t *tx) FolderExists(parentID uuid.UUID, name string) (bool, error) {
	_, err := t.ChildFolder(parentID, name)
	if err != nil {
		if metadata.IsCode(err, metadata.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *tx) Subfolders(parentID uuid.UUID) ([]*metadata.Folder, error) {
	var out []*metadata.Folder
	t.folders.each(func(_ uuid.UUID, f *metadata.Folder) bool {
		if f.ParentID != nil && *f.ParentID == parentID {
			out = append(out, f)
		}
		return true
	})
	sortFolders(out)
	return out, nil
}

func (t *tx) FoldersOwnedBy(ownerID uuid.UUID) ([]*metadata.Folder, error) {
	var out []*metadata.Folder
	t.folders.each(func(_ uuid.UUID, f *metadata.Folder) bool {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
		return true
	})
	sortFolders(out)
	return out, nil
}

func (t *tx) AllFolders() ([]*metadata.Folder, error) {
	var out []*metadata.Folder
	t.folders.each(func(_ uuid.UUID, f *metadata.Folder) bool {
		out = append(out, f)
		return true
	})
	sortFolders(out)
	return out, nil
}

func (t *tx) SaveFolder(f *metadata.Folder) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	var conflict bool
	if f.IsRoot() {
		// One root per owner.
		t.folders.each(func(id uuid.UUID, other *metadata.Folder) bool {
			if id != f.ID && other.IsRoot() && other.OwnerID == f.OwnerID {
				conflict = true
				return false
			}
			return true
		})
		if conflict {
			return metadata.DuplicateName("owner already has a root folder", f.OwnerID.String())
		}
	} else {
		t.folders.each(func(id uuid.UUID, other *metadata.Folder) bool {
			if id != f.ID && other.ParentID != nil && *other.ParentID == *f.ParentID && other.Name == f.Name {
				conflict = true
				return false
			}
			return true
		})
		if conflict {
			return metadata.DuplicateName("folder name already used in parent", f.Name)
		}
	}

	t.folders.put(f.ID, f)
	return nil
}

func (t *tx) DeleteFolder(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if _, ok := t.folders.get(id); !ok {
		return metadata.NotFound("folder not found", id.String())
	}
	t.folders.del(id)
	return nil
}

// ============================================================================
// Files
// ============================================================================

func (t *tx) File(id uuid.UUID) (*metadata.FileHeader, error) {
	h, ok := t.files.get(id)
	if !ok {
		return nil, metadata.NotFound("file not found", id.String())
	}
	return h, nil
}

func (t *tx) ChildFile(folderID uuid.UUID, name string) (*metadata.FileHeader, error) {
	var found *metadata.FileHeader
	t.files.each(func(_ uuid.UUID, h *metadata.FileHeader) bool {
		if h.FolderID == folderID && h.Name == name {
			found = h
			return false
		}
		return true
	})
	if found == nil {
		return nil, metadata.NotFound("file not found", name)
	}
	return found, nil
}

func (t *tx) FileExists(folderID uuid.UUID, name string) (bool, error) {
	_, err := t.ChildFile(folderID, name)
	if err != nil {
		if metadata.IsCode(err, metadata.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *tx) FilesInFolder(folderID uuid.UUID) ([]*metadata.FileHeader, error) {
	var out []*metadata.FileHeader
	t.files.each(func(_ uuid.UUID, h *metadata.FileHeader) bool {
		if h.FolderID == folderID {
			out = append(out, h)
		}
		return true
	})
	sortFiles(out)
	return out, nil
}

func (t *tx) FilesOwnedBy(ownerID uuid.UUID) ([]*metadata.FileHeader, error) {
	var out []*metadata.FileHeader
	t.files.each(func(_ uuid.UUID, h *metadata.FileHeader) bool {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
		return true
	})
	sortFiles(out)
	return out, nil
}

func (t *tx) AllFiles() ([]*metadata.FileHeader, error) {
	var out []*metadata.FileHeader
	t.files.each(func(_ uuid.UUID, h *metadata.FileHeader) bool {
		out = append(out, h)
		return true
	})
	sortFiles(out)
	return out, nil
}

func (t *tx) TotalFileSize(ownerID uuid.UUID) (int64, error) {
	var total int64
	t.files.each(func(_ uuid.UUID, h *metadata.FileHeader) bool {
		if h.OwnerID == ownerID {
			total += h.TotalSize()
		}
		return true
	})
	return total, nil
}

func (t *tx) FileCount(ownerID uuid.UUID) (int64, error) {
	var count int64
	t.files.each(func(_ uuid.UUID, h *metadata.FileHeader) bool {
		if h.OwnerID == ownerID {
			count++
		}
		return true
	})
	return count, nil
}

func (t *tx) SaveFile(h *metadata.FileHeader) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	var conflict bool
	t.files.each(func(id uuid.UUID, other *metadata.FileHeader) bool {
		if id != h.ID && other.FolderID == h.FolderID && other.Name == h.Name {
			conflict = true
			return false
		}
		return true
	})
	if conflict {
		return metadata.DuplicateName("file name already used in folder", h.Name)
	}

	t.files.put(h.ID, h)
	return nil
}

func (t *tx) DeleteFile(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if _, ok := t.files.get(id); !ok {
		return metadata.NotFound("file not found", id.String())
	}
	t.files.del(id)
	return nil
}

// Listing order is deterministic so callers and tests do not depend on map
// iteration order.

func sortFolders(folders []*metadata.Folder) {
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
}

func sortFiles(files []*metadata.FileHeader) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}
