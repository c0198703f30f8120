package memory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

func (t *tx) Group(id uuid.UUID) (*metadata.Group, error) {
	g, ok := t.groups.get(id)
	if !ok {
		return nil, metadata.NotFound("group not found", id.String())
	}
	return g, nil
}

func (t *tx) GroupByName(ownerID uuid.UUID, name string) (*metadata.Group, error) {
	var found *metadata.Group
	t.groups.each(func(_ uuid.UUID, g *metadata.Group) bool {
		if g.OwnerID == ownerID && g.Name == name {
			found = g
			return false
		}
		return true
	})
	if found == nil {
		return nil, metadata.NotFound("group not found", name)
	}
	return found, nil
}

func (t *tx) GroupsOwnedBy(ownerID uuid.UUID) ([]*metadata.Group, error) {
	var out []*metadata.Group
	t.groups.each(func(_ uuid.UUID, g *metadata.Group) bool {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) GroupsWithMember(userID uuid.UUID) ([]*metadata.Group, error) {
	var out []*metadata.Group
	t.groups.each(func(_ uuid.UUID, g *metadata.Group) bool {
		if g.Contains(userID) {
			out = append(out, g)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) SaveGroup(g *metadata.Group) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	var conflict bool
	t.groups.each(func(id uuid.UUID, other *metadata.Group) bool {
		if id != g.ID && other.OwnerID == g.OwnerID && other.Name == g.Name {
			conflict = true
			return false
		}
		return true
	})
	if conflict {
		return metadata.DuplicateName("group name already used by owner", g.Name)
	}

	t.groups.put(g.ID, g)
	return nil
}

func (t *tx) DeleteGroup(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if _, ok := t.groups.get(id); !ok {
		return metadata.NotFound("group not found", id.String())
	}
	t.groups.del(id)
	return nil
}
