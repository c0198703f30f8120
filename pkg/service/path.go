package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// ParentPath returns everything before the last path element:
// "docs/reports/q3.pdf" gives "docs/reports", "docs" gives "".
func ParentPath(path string) string {
	trimmed := strings.Trim(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return ""
	}
	return trimmed[:idx]
}

// LastElement returns the final path element: "docs/reports/q3.pdf" gives
// "q3.pdf". An empty or root path gives "".
func LastElement(path string) string {
	trimmed := strings.Trim(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	return trimmed[idx+1:]
}

// ResourceAtPath resolves a slash-separated path relative to the owner's
// root folder to the folder or file it names. The empty path (or "/")
// resolves to the root folder itself. At the last element a folder wins
// over a file with the same name only in the sense that folders are probed
// first; the shared name namespace means both can never exist at once.
//
// When ignoreDeleted is set, trashed entries resolve as NotFound, so a
// restored-looking path never silently reaches into the trash.
func (s *Service) ResourceAtPath(ctx context.Context, ownerID uuid.UUID, path string, ignoreDeleted bool) (metadata.Resource, error) {
	var resource metadata.Resource
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		r, err := resolvePath(tx, ownerID, path, ignoreDeleted)
		if err != nil {
			return err
		}
		resource = r
		return nil
	})
	return resource, err
}

func resolvePath(tx metadata.Tx, ownerID uuid.UUID, path string, ignoreDeleted bool) (metadata.Resource, error) {
	current, err := tx.RootFolder(ownerID)
	if err != nil {
		return metadata.Resource{}, err
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return metadata.FolderResource(current), nil
	}

	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		last := i == len(segments)-1

		folder, err := tx.ChildFolder(current.ID, segment)
		if err == nil {
			if ignoreDeleted && folder.Deleted {
				return metadata.Resource{}, metadata.NotFound("path not found", path)
			}
			if last {
				return metadata.FolderResource(folder), nil
			}
			current = folder
			continue
		}
		if !metadata.IsCode(err, metadata.ErrNotFound) {
			return metadata.Resource{}, err
		}

		// Only the last element may name a file.
		if !last {
			return metadata.Resource{}, metadata.NotFound("path not found", path)
		}
		file, err := tx.ChildFile(current.ID, segment)
		if err != nil {
			if metadata.IsCode(err, metadata.ErrNotFound) {
				return metadata.Resource{}, metadata.NotFound("path not found", path)
			}
			return metadata.Resource{}, err
		}
		if ignoreDeleted && file.Deleted {
			return metadata.Resource{}, metadata.NotFound("path not found", path)
		}
		return metadata.FileResource(file), nil
	}

	// Unreachable: the loop always returns on the last segment.
	return metadata.Resource{}, metadata.NotFound("path not found", path)
}
