package metadata

import "github.com/google/uuid"

// Permission is a single access-control entry on a folder or file.
//
// The subject is exactly one of a user or a group, never both and never
// neither; this is enforced at construction and re-checked whenever an ACL
// is replaced. Each entry carries three independent capabilities. There is
// no separate delete capability: delete is defined as write.
//
// Permission entries are value-owned by exactly one Folder or FileHeader.
// Copying an entity copies its entries; copies never share ACL state.
type Permission struct {
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	GroupID *uuid.UUID `json:"group_id,omitempty"`

	Read      bool `json:"read"`
	Write     bool `json:"write"`
	ModifyACL bool `json:"modify_acl"`
}

// UserPermission builds an entry granting capabilities to a single user.
func UserPermission(userID uuid.UUID, read, write, modifyACL bool) Permission {
	id := userID
	return Permission{UserID: &id, Read: read, Write: write, ModifyACL: modifyACL}
}

// GroupPermission builds an entry granting capabilities to a group.
func GroupPermission(groupID uuid.UUID, read, write, modifyACL bool) Permission {
	id := groupID
	return Permission{GroupID: &id, Read: read, Write: write, ModifyACL: modifyACL}
}

// OwnerPermission builds the sole entry attached to a freshly created root
// folder: the owner with every capability.
func OwnerPermission(ownerID uuid.UUID) Permission {
	return UserPermission(ownerID, true, true, true)
}

// Validate rejects entries without exactly one subject.
func (p Permission) Validate() error {
	if (p.UserID == nil) == (p.GroupID == nil) {
		return Invariant("permission entry must name exactly one of user or group", "")
	}
	return nil
}

// Empty reports whether the entry grants nothing. Empty entries are
// silently dropped when an ACL is replaced.
func (p Permission) Empty() bool {
	return !p.Read && !p.Write && !p.ModifyACL
}

// IsFor reports whether the entry's subject is the given user directly.
func (p Permission) IsFor(userID uuid.UUID) bool {
	return p.UserID != nil && *p.UserID == userID
}

// IsForGroup reports whether the entry's subject is the given group.
func (p Permission) IsForGroup(groupID uuid.UUID) bool {
	return p.GroupID != nil && *p.GroupID == groupID
}

// Clone returns a copy with no shared pointers.
func (p Permission) Clone() Permission {
	c := p
	if p.UserID != nil {
		id := *p.UserID
		c.UserID = &id
	}
	if p.GroupID != nil {
		id := *p.GroupID
		c.GroupID = &id
	}
	return c
}

func clonePermissions(perms []Permission) []Permission {
	if perms == nil {
		return nil
	}
	out := make([]Permission, len(perms))
	for i, p := range perms {
		out[i] = p.Clone()
	}
	return out
}

// SnapshotACL copies a parent's permission set for attachment to a newly
// created child. The copy is independent: later edits on the parent do not
// retroactively change the child unless an explicit propagate is invoked.
func SnapshotACL(parent []Permission) []Permission {
	return clonePermissions(parent)
}

// ValidateACL checks a replacement permission set before it is applied to
// an entity owned by owner.
//
// The set must retain the full (read, write, modify-ACL) grant for the
// current owner; an ACL update that would strip owner access is rejected
// with ErrInvariant. Every entry must also name exactly one subject.
// Entries granting nothing are permitted here and dropped by the caller.
func ValidateACL(acl []Permission, ownerID uuid.UUID) error {
	var ownerEntry *Permission
	for i := range acl {
		if err := acl[i].Validate(); err != nil {
			return err
		}
		if acl[i].IsFor(ownerID) {
			ownerEntry = &acl[i]
		}
	}
	if ownerEntry == nil || !ownerEntry.Read || !ownerEntry.Write || !ownerEntry.ModifyACL {
		return Invariant("cannot remove permissions from owner", "")
	}
	return nil
}
