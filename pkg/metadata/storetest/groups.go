package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// RunGroupTests exercises group persistence and the membership index.
func (suite *Suite) RunGroupTests(t *testing.T) {
	t.Run("SaveAndLookup", suite.testGroupSaveAndLookup)
	t.Run("NameUniquePerOwner", suite.testGroupNameUniquePerOwner)
	t.Run("MembershipIndex", suite.testGroupMembershipIndex)
	t.Run("Delete", suite.testGroupDelete)
}

func (suite *Suite) testGroupSaveAndLookup(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	bob := newTestUser("bob")
	group := newTestGroup(alice, "team", bob.ID)

	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveGroup(group)
	})

	view(t, store, func(tx metadata.Tx) error {
		got, err := tx.Group(group.ID)
		require.NoError(t, err)
		require.True(t, got.Contains(bob.ID))

		byName, err := tx.GroupByName(alice.ID, "team")
		require.NoError(t, err)
		require.Equal(t, group.ID, byName.ID)

		owned, err := tx.GroupsOwnedBy(alice.ID)
		require.NoError(t, err)
		require.Len(t, owned, 1)
		return nil
	})
}

func (suite *Suite) testGroupNameUniquePerOwner(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	bob := newTestUser("bob")

	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveGroup(newTestGroup(alice, "team"))
	})

	err := storeUpdateErr(store, func(tx metadata.Tx) error {
		return tx.SaveGroup(newTestGroup(alice, "team"))
	})
	AssertErrorCode(t, metadata.ErrDuplicateName, err)

	// Different owners may reuse the name.
	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveGroup(newTestGroup(bob, "team"))
	})
}

func (suite *Suite) testGroupMembershipIndex(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	bob := newTestUser("bob")
	carol := newTestUser("carol")

	team := newTestGroup(alice, "team", bob.ID, carol.ID)
	band := newTestGroup(alice, "band", bob.ID)

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveGroup(team); err != nil {
			return err
		}
		return tx.SaveGroup(band)
	})

	view(t, store, func(tx metadata.Tx) error {
		groups, err := tx.GroupsWithMember(bob.ID)
		require.NoError(t, err)
		require.Len(t, groups, 2)

		groups, err = tx.GroupsWithMember(carol.ID)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		require.Equal(t, team.ID, groups[0].ID)
		return nil
	})

	// Removing a member drops the membership index entry.
	update(t, store, func(tx metadata.Tx) error {
		g, err := tx.Group(team.ID)
		require.NoError(t, err)
		g.RemoveMember(carol.ID)
		return tx.SaveGroup(g)
	})

	view(t, store, func(tx metadata.Tx) error {
		groups, err := tx.GroupsWithMember(carol.ID)
		require.NoError(t, err)
		require.Empty(t, groups)
		return nil
	})
}

func (suite *Suite) testGroupDelete(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	bob := newTestUser("bob")
	group := newTestGroup(alice, "team", bob.ID)

	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveGroup(group)
	})

	update(t, store, func(tx metadata.Tx) error {
		return tx.DeleteGroup(group.ID)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.Group(group.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)
		_, err = tx.GroupByName(alice.ID, "team")
		AssertErrorCode(t, metadata.ErrNotFound, err)

		groups, err := tx.GroupsWithMember(bob.ID)
		require.NoError(t, err)
		require.Empty(t, groups)
		return nil
	})
}
