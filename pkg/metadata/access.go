package metadata

import "github.com/google/uuid"

// Capability is one of the three access-control bits an ACL entry can grant.
type Capability int

const (
	CapabilityRead Capability = iota
	CapabilityWrite
	CapabilityModifyACL
)

func (c Capability) String() string {
	switch c {
	case CapabilityRead:
		return "read"
	case CapabilityWrite:
		return "write"
	case CapabilityModifyACL:
		return "modify-acl"
	default:
		return "unknown"
	}
}

// Securable is an entity permission checks apply to: a Folder or a
// FileHeader.
type Securable interface {
	OwnerUUID() uuid.UUID
	ACL() []Permission
	PublicRead() bool
}

// GroupResolver resolves group membership for ACL entries whose subject is
// a group. Tx implementations satisfy it, so permission evaluation happens
// inside the same transaction as the operation it gates.
type GroupResolver interface {
	Group(id uuid.UUID) (*Group, error)
}

// Can decides whether the principal holds the capability on the entity.
//
// The entity grants the capability iff one of:
//   - the principal is the entity's owner;
//   - the entity is public-readable and the capability is read;
//   - an ACL entry names the principal directly with the bit set;
//   - an ACL entry names a group the principal belongs to with the bit set.
//
// The default is deny: no entry grants capability by omission.
func Can(groups GroupResolver, principal uuid.UUID, entity Securable, capability Capability) (bool, error) {
	if entity.OwnerUUID() == principal {
		return true, nil
	}
	if capability == CapabilityRead && entity.PublicRead() {
		return true, nil
	}
	for _, p := range entity.ACL() {
		if !grantsBit(p, capability) {
			continue
		}
		if p.IsFor(principal) {
			return true, nil
		}
		if p.GroupID != nil {
			group, err := groups.Group(*p.GroupID)
			if err != nil {
				// A dangling group reference denies rather than fails:
				// the entry may outlive its group mid-purge.
				if IsCode(err, ErrNotFound) {
					continue
				}
				return false, err
			}
			if group.Contains(principal) {
				return true, nil
			}
		}
	}
	return false, nil
}

func grantsBit(p Permission, capability Capability) bool {
	switch capability {
	case CapabilityRead:
		return p.Read
	case CapabilityWrite:
		return p.Write
	case CapabilityModifyACL:
		return p.ModifyACL
	default:
		return false
	}
}

// CanRead reports read capability.
func CanRead(groups GroupResolver, principal uuid.UUID, entity Securable) (bool, error) {
	return Can(groups, principal, entity, CapabilityRead)
}

// CanWrite reports write capability.
func CanWrite(groups GroupResolver, principal uuid.UUID, entity Securable) (bool, error) {
	return Can(groups, principal, entity, CapabilityWrite)
}

// CanDelete reports delete capability, which is defined as write capability
// on the entity. No separate delete bit exists in the data model.
func CanDelete(groups GroupResolver, principal uuid.UUID, entity Securable) (bool, error) {
	return Can(groups, principal, entity, CapabilityWrite)
}

// CanModifyACL reports capability to change the entity's permission set.
func CanModifyACL(groups GroupResolver, principal uuid.UUID, entity Securable) (bool, error) {
	return Can(groups, principal, entity, CapabilityModifyACL)
}
