package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// CreateGroup creates a group owned by the principal. Group names must not
// contain '/' (they appear in path-like ACL displays) and are unique per
// owner.
func (s *Service) CreateGroup(ctx context.Context, principal uuid.UUID, name string) (*metadata.Group, error) {
	if strings.Contains(name, "/") {
		return nil, metadata.Invariant("group name must not contain '/'", name)
	}
	group := &metadata.Group{
		ID:      uuid.New(),
		Name:    name,
		OwnerID: principal,
	}
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		if _, err := tx.User(principal); err != nil {
			return err
		}
		return tx.SaveGroup(group)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Groups lists the groups the principal owns.
func (s *Service) Groups(ctx context.Context, principal uuid.UUID) ([]*metadata.Group, error) {
	var groups []*metadata.Group
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		owned, err := tx.GroupsOwnedBy(principal)
		if err != nil {
			return err
		}
		groups = owned
		return nil
	})
	return groups, err
}

// GroupMembers resolves a group's member users.
func (s *Service) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]*metadata.User, error) {
	var members []*metadata.User
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		g, err := tx.Group(groupID)
		if err != nil {
			return err
		}
		for _, id := range g.MemberIDs {
			u, err := tx.User(id)
			if err != nil {
				if metadata.IsCode(err, metadata.ErrNotFound) {
					continue
				}
				return err
			}
			members = append(members, u)
		}
		return nil
	})
	return members, err
}

// AddMember adds a user to the principal's group. Only the group's owner
// may change membership; adding a user twice is rejected.
func (s *Service) AddMember(ctx context.Context, principal, groupID, userID uuid.UUID) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		g, err := tx.Group(groupID)
		if err != nil {
			return err
		}
		if g.OwnerID != principal {
			return metadata.PermissionDenied("only the group owner may change membership", g.Name)
		}
		if _, err := tx.User(userID); err != nil {
			return err
		}
		if g.Contains(userID) {
			return metadata.DuplicateName("user is already a member", g.Name)
		}
		g.MemberIDs = append(g.MemberIDs, userID)
		return tx.SaveGroup(g)
	})
}

// RemoveMember removes a user from the principal's group.
func (s *Service) RemoveMember(ctx context.Context, principal, groupID, userID uuid.UUID) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		g, err := tx.Group(groupID)
		if err != nil {
			return err
		}
		if g.OwnerID != principal {
			return metadata.PermissionDenied("only the group owner may change membership", g.Name)
		}
		g.RemoveMember(userID)
		return tx.SaveGroup(g)
	})
}

// DeleteGroup removes the principal's group, its membership entries, and
// every ACL entry referencing it on any folder or file in the catalog. An
// entry that granted access through the group stops granting the moment the
// group is gone; the full-tree purge keeps the stored ACLs from
// accumulating dangling subjects.
func (s *Service) DeleteGroup(ctx context.Context, principal, groupID uuid.UUID) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		g, err := tx.Group(groupID)
		if err != nil {
			return err
		}
		if g.OwnerID != principal {
			return metadata.PermissionDenied("only the group owner may delete the group", g.Name)
		}
		if err := purgeGroupFromACLs(tx, groupID); err != nil {
			return err
		}
		return tx.DeleteGroup(groupID)
	})
}

// purgeGroupFromACLs strips every permission entry whose subject is the
// group from every folder and file. Full-catalog scan.
func purgeGroupFromACLs(tx metadata.Tx, groupID uuid.UUID) error {
	return purgeACLEntries(tx, func(p metadata.Permission) bool {
		return p.IsForGroup(groupID)
	})
}

// purgeUserFromACLs strips every permission entry naming the user from
// every folder and file, so a deleted user leaves no dangling subjects on
// other owners' ACLs. Full-catalog scan, like the group purge.
func purgeUserFromACLs(tx metadata.Tx, userID uuid.UUID) error {
	return purgeACLEntries(tx, func(p metadata.Permission) bool {
		return p.IsFor(userID)
	})
}

func purgeACLEntries(tx metadata.Tx, drop func(metadata.Permission) bool) error {
	folders, err := tx.AllFolders()
	if err != nil {
		return err
	}
	for _, f := range folders {
		if stripped, changed := stripEntries(f.Permissions, drop); changed {
			f.Permissions = stripped
			if err := tx.SaveFolder(f); err != nil {
				return err
			}
		}
	}

	files, err := tx.AllFiles()
	if err != nil {
		return err
	}
	for _, h := range files {
		if stripped, changed := stripEntries(h.Permissions, drop); changed {
			h.Permissions = stripped
			if err := tx.SaveFile(h); err != nil {
				return err
			}
		}
	}
	return nil
}

func stripEntries(acl []metadata.Permission, drop func(metadata.Permission) bool) ([]metadata.Permission, bool) {
	kept := acl[:0:0]
	changed := false
	for _, p := range acl {
		if drop(p) {
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	if !changed {
		return acl, false
	}
	return kept, true
}
