package badger

import (
	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

func (t *tx) Group(id uuid.UUID) (*metadata.Group, error) {
	var g metadata.Group
	if err := t.getRecord(groupKey(id), &g, metadata.NotFound("group not found", id.String())); err != nil {
		return nil, err
	}
	return &g, nil
}

func (t *tx) GroupByName(ownerID uuid.UUID, name string) (*metadata.Group, error) {
	id, err := t.getIndexID(groupNameKey(ownerID, name), metadata.NotFound("group not found", name))
	if err != nil {
		return nil, err
	}
	return t.Group(id)
}

func (t *tx) GroupsOwnedBy(ownerID uuid.UUID) ([]*metadata.Group, error) {
	var out []*metadata.Group
	err := t.scan([]byte(prefixGroupName+ownerID.String()+":"), func(_, value []byte) (bool, error) {
		id, err := decodeID(value)
		if err != nil {
			return false, err
		}
		g, err := t.Group(id)
		if err != nil {
			return false, err
		}
		out = append(out, g)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) GroupsWithMember(userID uuid.UUID) ([]*metadata.Group, error) {
	var out []*metadata.Group
	err := t.scanIDs(membershipScanPrefix(userID), func(id uuid.UUID) error {
		g, err := t.Group(id)
		if err != nil {
			return err
		}
		out = append(out, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) SaveGroup(g *metadata.Group) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	old, err := t.Group(g.ID)
	if err != nil && !metadata.IsCode(err, metadata.ErrNotFound) {
		return err
	}
	if old != nil {
		if old.OwnerID != g.OwnerID || old.Name != g.Name {
			if err := t.deleteKey(groupNameKey(old.OwnerID, old.Name)); err != nil {
				return err
			}
		}
		// Membership index entries for removed members.
		for _, member := range old.MemberIDs {
			if !g.Contains(member) {
				if err := t.deleteKey(membershipKey(member, g.ID)); err != nil {
					return err
				}
			}
		}
	}

	dup := metadata.DuplicateName("group name already used by owner", g.Name)
	if err := t.setUniqueIndex(groupNameKey(g.OwnerID, g.Name), g.ID, dup); err != nil {
		return err
	}
	for _, member := range g.MemberIDs {
		if err := t.setFlag(membershipKey(member, g.ID)); err != nil {
			return err
		}
	}
	return t.setRecord(groupKey(g.ID), g)
}

func (t *tx) DeleteGroup(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	g, err := t.Group(id)
	if err != nil {
		return err
	}
	if err := t.deleteKey(groupNameKey(g.OwnerID, g.Name)); err != nil {
		return err
	}
	for _, member := range g.MemberIDs {
		if err := t.deleteKey(membershipKey(member, g.ID)); err != nil {
			return err
		}
	}
	return t.deleteKey(groupKey(id))
}
