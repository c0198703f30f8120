package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

func TestCreateGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "friends")
	require.NoError(t, err)
	require.Equal(t, "friends", group.Name)
	require.Equal(t, alice.ID, group.OwnerID)

	_, err = f.svc.CreateGroup(ctx, alice.ID, "friends")
	requireCode(t, err, metadata.ErrDuplicateName)

	_, err = f.svc.CreateGroup(ctx, alice.ID, "bad/name")
	requireCode(t, err, metadata.ErrInvariant)

	// Group names are unique per owner, not globally.
	bob := f.createUser(t, "bob")
	_, err = f.svc.CreateGroup(ctx, bob.ID, "friends")
	require.NoError(t, err)
}

func TestGroupMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	carol := f.createUser(t, "carol")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "team")
	require.NoError(t, err)

	// Only the owner manages membership.
	err = f.svc.AddMember(ctx, bob.ID, group.ID, carol.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)

	require.NoError(t, f.svc.AddMember(ctx, alice.ID, group.ID, bob.ID))
	require.NoError(t, f.svc.AddMember(ctx, alice.ID, group.ID, carol.ID))
	err = f.svc.AddMember(ctx, alice.ID, group.ID, bob.ID)
	requireCode(t, err, metadata.ErrDuplicateName)

	members, err := f.svc.GroupMembers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	require.NoError(t, f.svc.RemoveMember(ctx, alice.ID, group.ID, bob.ID))
	members, err = f.svc.GroupMembers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, carol.ID, members[0].ID)
}

func TestGroupGrantsWriteThroughACL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "editors")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddMember(ctx, alice.ID, group.ID, bob.ID))

	root := f.rootOf(t, alice.ID)
	shared := f.createFolder(t, alice.ID, root.ID, "shared")

	// Without the grant bob cannot touch the folder.
	_, err = f.svc.CreateFile(ctx, bob.ID, shared.ID, "note.txt", "", strings.NewReader("hi"))
	requireCode(t, err, metadata.ErrPermissionDenied)

	f.shareFolder(t, alice.ID, shared, metadata.GroupPermission(group.ID, true, true, false))

	file, err := f.svc.CreateFile(ctx, bob.ID, shared.ID, "note.txt", "", strings.NewReader("hi"))
	require.NoError(t, err)
	// The file belongs to the folder owner regardless of who wrote it.
	require.Equal(t, alice.ID, file.OwnerID)

	// Leaving the group revokes the capability.
	require.NoError(t, f.svc.RemoveMember(ctx, alice.ID, group.ID, bob.ID))
	_, err = f.svc.CreateFile(ctx, bob.ID, shared.ID, "other.txt", "", strings.NewReader("hi"))
	requireCode(t, err, metadata.ErrPermissionDenied)
}

func TestDeleteGroupPurgesACLReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "readers")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddMember(ctx, alice.ID, group.ID, bob.ID))

	root := f.rootOf(t, alice.ID)
	shared := f.createFolder(t, alice.ID, root.ID, "shared")
	f.shareFolder(t, alice.ID, shared, metadata.GroupPermission(group.ID, true, false, false))
	file := f.createFile(t, alice.ID, shared.ID, "doc.txt", "content")

	// Non-owner cannot delete.
	err = f.svc.DeleteGroup(ctx, bob.ID, group.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)

	require.NoError(t, f.svc.DeleteGroup(ctx, alice.ID, group.ID))

	folder, err := f.svc.GetFolder(ctx, alice.ID, shared.ID)
	require.NoError(t, err)
	for _, p := range folder.Permissions {
		require.False(t, p.IsForGroup(group.ID))
	}

	// The grant is gone with the group.
	_, err = f.svc.GetFolder(ctx, bob.ID, shared.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)
	_, err = f.svc.GetFile(ctx, bob.ID, file.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)
}

func TestDanglingGroupEntryDeniesInsteadOfFailing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	group, err := f.svc.CreateGroup(ctx, alice.ID, "ghost")
	require.NoError(t, err)
	require.NoError(t, f.svc.AddMember(ctx, alice.ID, group.ID, bob.ID))

	root := f.rootOf(t, alice.ID)
	shared := f.createFolder(t, alice.ID, root.ID, "shared")
	f.shareFolder(t, alice.ID, shared, metadata.GroupPermission(group.ID, true, true, false))

	// Delete the group record directly, leaving the ACL entry dangling.
	err = f.store.Update(ctx, func(tx metadata.Tx) error {
		return tx.DeleteGroup(group.ID)
	})
	require.NoError(t, err)

	// Evaluation skips the dangling entry: denied, not an error.
	_, err = f.svc.GetFolder(ctx, bob.ID, shared.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)

	// The owner is unaffected.
	_, err = f.svc.GetFolder(ctx, alice.ID, shared.ID)
	require.NoError(t, err)
}
