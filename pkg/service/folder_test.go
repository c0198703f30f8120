package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

func TestCreateFolderInheritsACLSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	root := f.rootOf(t, alice.ID)
	f.shareFolder(t, alice.ID, root, metadata.UserPermission(bob.ID, true, false, false))
	root = f.rootOf(t, alice.ID)

	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	require.Equal(t, alice.ID, docs.OwnerID)
	require.Len(t, docs.Permissions, 2)

	// The snapshot is independent: revoking on the parent leaves the child
	// grant in place.
	_, err := f.svc.UpdateFolder(ctx, alice.ID, root.ID, UpdateFolderRequest{
		Permissions: []metadata.Permission{metadata.OwnerPermission(alice.ID)},
	})
	require.NoError(t, err)

	_, err = f.svc.GetFolder(ctx, bob.ID, docs.ID)
	require.NoError(t, err)
	_, err = f.svc.UserRootFolder(ctx, bob.ID, alice.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)
}

func TestSiblingNamespaceIsShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	f.createFolder(t, alice.ID, root.ID, "report")
	f.createFile(t, alice.ID, root.ID, "data", "bytes")

	// A file cannot shadow a folder and vice versa.
	_, err := f.svc.CreateFile(ctx, alice.ID, root.ID, "report", "", strings.NewReader("x"))
	requireCode(t, err, metadata.ErrDuplicateName)
	_, err = f.svc.CreateFolder(ctx, alice.ID, root.ID, "data")
	requireCode(t, err, metadata.ErrDuplicateName)

	other := f.createFolder(t, alice.ID, root.ID, "other")
	_, err = f.svc.UpdateFolder(ctx, alice.ID, other.ID, UpdateFolderRequest{Name: strPtr("data")})
	requireCode(t, err, metadata.ErrDuplicateName)
}

func TestUpdateFolderReadForAllOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	f.shareFolder(t, alice.ID, docs, metadata.UserPermission(bob.ID, true, true, true))

	yes := true
	_, err := f.svc.UpdateFolder(ctx, bob.ID, docs.ID, UpdateFolderRequest{ReadForAll: &yes})
	requireCode(t, err, metadata.ErrPermissionDenied)

	updated, err := f.svc.UpdateFolder(ctx, alice.ID, docs.ID, UpdateFolderRequest{ReadForAll: &yes})
	require.NoError(t, err)
	require.True(t, updated.ReadForAll)

	// Public read grants read, nothing more.
	carol := f.createUser(t, "carol")
	_, err = f.svc.GetFolder(ctx, carol.ID, docs.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, carol.ID, docs.ID, "intruder")
	requireCode(t, err, metadata.ErrPermissionDenied)
}

func TestUpdateFolderACLKeepsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")

	// Replacing the ACL with one that strips the owner is rejected.
	_, err := f.svc.UpdateFolder(ctx, alice.ID, docs.ID, UpdateFolderRequest{
		Permissions: []metadata.Permission{metadata.UserPermission(bob.ID, true, true, true)},
	})
	requireCode(t, err, metadata.ErrInvariant)
}

func TestUpdateFolderACLPropagate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	sub := f.createFolder(t, alice.ID, docs.ID, "sub")
	file := f.createFile(t, alice.ID, sub.ID, "deep.txt", "deep")

	_, err := f.svc.GetFile(ctx, bob.ID, file.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)

	acl := []metadata.Permission{
		metadata.OwnerPermission(alice.ID),
		metadata.UserPermission(bob.ID, true, false, false),
	}
	_, err = f.svc.UpdateFolder(ctx, alice.ID, docs.ID, UpdateFolderRequest{
		Permissions: acl,
		Propagate:   true,
	})
	require.NoError(t, err)

	// The grant reached every descendant folder and file.
	_, err = f.svc.GetFolder(ctx, bob.ID, sub.ID)
	require.NoError(t, err)
	_, err = f.svc.GetFile(ctx, bob.ID, file.ID)
	require.NoError(t, err)
}

func TestDeleteFolderRecursive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	sub := f.createFolder(t, alice.ID, docs.ID, "sub")
	a := f.createFile(t, alice.ID, docs.ID, "a.txt", "aaa")
	b := f.createFile(t, alice.ID, sub.ID, "b.txt", "bbb")
	require.Equal(t, 2, f.blobs.Len())
	f.notifier.reset()

	require.NoError(t, f.svc.DeleteFolder(ctx, alice.ID, docs.ID))

	require.Equal(t, 0, f.blobs.Len())
	require.True(t, f.notifier.deletedContains(a.ID))
	require.True(t, f.notifier.deletedContains(b.ID))
	_, err := f.svc.GetFolder(ctx, alice.ID, sub.ID)
	requireCode(t, err, metadata.ErrNotFound)
	_, err = f.svc.GetFile(ctx, alice.ID, b.ID)
	requireCode(t, err, metadata.ErrNotFound)
}

func TestDeleteRootFolderForbidden(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	err := f.svc.DeleteFolder(context.Background(), alice.ID, root.ID)
	requireCode(t, err, metadata.ErrInvariant)
}

func TestMoveFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	archive := f.createFolder(t, alice.ID, root.ID, "archive")

	require.NoError(t, f.svc.MoveFolder(ctx, alice.ID, docs.ID, archive.ID))
	moved, err := f.svc.GetFolder(ctx, alice.ID, docs.ID)
	require.NoError(t, err)
	require.Equal(t, archive.ID, *moved.ParentID)

	// Into its own subtree is rejected.
	err = f.svc.MoveFolder(ctx, alice.ID, archive.ID, docs.ID)
	requireCode(t, err, metadata.ErrInvariant)
}

func TestMoveTrashedFolderIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	archive := f.createFolder(t, alice.ID, root.ID, "archive")
	require.NoError(t, f.svc.MoveFolderToTrash(ctx, alice.ID, docs.ID))

	require.NoError(t, f.svc.MoveFolder(ctx, alice.ID, docs.ID, archive.ID))

	err := f.store.View(ctx, func(tx metadata.Tx) error {
		stored, err := tx.Folder(docs.ID)
		require.NoError(t, err)
		require.Equal(t, root.ID, *stored.ParentID)
		return nil
	})
	require.NoError(t, err)
}

func TestMoveFolderCrossOwner(t *testing.T) {
	f := newFixture(t)
	f.setQuota(t, 1000)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	aliceRoot := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, aliceRoot.ID, "docs")
	payload := strings.Repeat("x", 600)
	file := f.createFile(t, alice.ID, docs.ID, "big.bin", payload)

	bobRoot := f.rootOf(t, bob.ID)
	dest := f.createFolder(t, bob.ID, bobRoot.ID, "inbox")
	f.shareFolder(t, bob.ID, dest, metadata.UserPermission(alice.ID, true, true, false))

	// Bob's remaining quota cannot absorb the incoming bytes.
	f.createFile(t, bob.ID, bobRoot.ID, "filler.bin", strings.Repeat("y", 500))
	err := f.svc.MoveFolder(ctx, alice.ID, docs.ID, dest.ID)
	requireCode(t, err, metadata.ErrQuotaExceeded)

	// After freeing space the move succeeds and hands over ownership.
	filler, err := f.svc.ResourceAtPath(ctx, bob.ID, "filler.bin", false)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteFile(ctx, bob.ID, filler.File.ID))

	require.NoError(t, f.svc.MoveFolder(ctx, alice.ID, docs.ID, dest.ID))

	moved, err := f.svc.GetFolder(ctx, bob.ID, docs.ID)
	require.NoError(t, err)
	require.Equal(t, bob.ID, moved.OwnerID)

	movedFile, err := f.svc.GetFile(ctx, bob.ID, file.ID)
	require.NoError(t, err)
	require.Equal(t, bob.ID, movedFile.OwnerID)

	// The new owner got a full entry on the reassigned file.
	var ownerEntry bool
	for _, p := range movedFile.Permissions {
		if p.IsFor(bob.ID) && p.Read && p.Write && p.ModifyACL {
			ownerEntry = true
		}
	}
	require.True(t, ownerEntry)

	// The bytes are billed to bob now.
	stats, err := f.svc.UserStatistics(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, int64(600), stats.TotalSize)
	stats, err = f.svc.UserStatistics(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalSize)
}

func TestCopyFolderStructure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	sub := f.createFolder(t, alice.ID, docs.ID, "sub")
	f.createFile(t, alice.ID, docs.ID, "a.txt", "alpha")
	f.createFile(t, alice.ID, sub.ID, "b.txt", "beta")

	// Trashed entries are skipped by the copy.
	hidden := f.createFile(t, alice.ID, docs.ID, "hidden.txt", "gone")
	require.NoError(t, f.svc.MoveFileToTrash(ctx, alice.ID, hidden.ID))

	copied, err := f.svc.CopyFolderStructure(ctx, alice.ID, docs.ID, root.ID, "docs-copy")
	require.NoError(t, err)
	require.Equal(t, "docs-copy", copied.Name)

	res, err := f.svc.ResourceAtPath(ctx, alice.ID, "docs-copy/sub/b.txt", true)
	require.NoError(t, err)
	require.Equal(t, metadata.ResourceFile, res.Kind)
	require.Equal(t, "beta", f.readFile(t, alice.ID, res.File.ID, 0))

	_, err = f.svc.ResourceAtPath(ctx, alice.ID, "docs-copy/hidden.txt", true)
	requireCode(t, err, metadata.ErrNotFound)

	// Copies own their blobs: the originals plus the two copies.
	require.Equal(t, 5, f.blobs.Len())
}

func TestTrashLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	sub := f.createFolder(t, alice.ID, docs.ID, "sub")
	file := f.createFile(t, alice.ID, sub.ID, "a.txt", "aaa")
	loose := f.createFile(t, alice.ID, root.ID, "loose.txt", "bbb")

	require.NoError(t, f.svc.MoveFolderToTrash(ctx, alice.ID, docs.ID))
	require.NoError(t, f.svc.MoveFileToTrash(ctx, alice.ID, loose.ID))

	// Trashed entries disappear from listings but records survive.
	subs, err := f.svc.Subfolders(ctx, alice.ID, root.ID)
	require.NoError(t, err)
	require.Empty(t, subs)
	files, err := f.svc.Files(ctx, alice.ID, root.ID)
	require.NoError(t, err)
	require.Empty(t, files)
	require.Equal(t, 2, f.blobs.Len())

	// Trash roots are the top of each trashed subtree, not every node.
	trashedFolders, err := f.svc.TrashedFolders(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, trashedFolders, 1)
	require.Equal(t, docs.ID, trashedFolders[0].ID)
	trashedFiles, err := f.svc.TrashedFiles(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, trashedFiles, 1)
	require.Equal(t, loose.ID, trashedFiles[0].ID)

	require.NoError(t, f.svc.RestoreTrash(ctx, alice.ID))
	restored, err := f.svc.GetFile(ctx, alice.ID, file.ID)
	require.NoError(t, err)
	require.False(t, restored.Deleted)
	subs, err = f.svc.Subfolders(ctx, alice.ID, root.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	require.NoError(t, f.svc.MoveFolderToTrash(ctx, alice.ID, docs.ID))
	require.NoError(t, f.svc.EmptyTrash(ctx, alice.ID))
	_, err = f.svc.GetFile(ctx, alice.ID, file.ID)
	requireCode(t, err, metadata.ErrNotFound)
	require.Equal(t, 1, f.blobs.Len())

	// Untouched entries survive the sweep.
	_, err = f.svc.GetFile(ctx, alice.ID, loose.ID)
	require.NoError(t, err)
}

func TestTrashRootFolderForbidden(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	err := f.svc.MoveFolderToTrash(context.Background(), alice.ID, root.ID)
	requireCode(t, err, metadata.ErrInvariant)
}

func TestCreateFolderOwnershipFollowsParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setQuota(t, 1000)

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	root := f.rootOf(t, alice.ID)
	shared := f.createFolder(t, alice.ID, root.ID, "shared")
	f.shareFolder(t, alice.ID, shared, metadata.UserPermission(bob.ID, true, true, false))

	// Bob has write on alice's folder; what he creates inside still
	// belongs to alice.
	drop := f.createFolder(t, bob.ID, shared.ID, "drop")
	require.Equal(t, alice.ID, drop.OwnerID)

	file := f.createFile(t, bob.ID, drop.ID, "report.txt", "twelve bytes")
	require.Equal(t, alice.ID, file.OwnerID)

	// The upload is billed against alice's quota, not bob's.
	aliceStats, err := f.svc.UserStatistics(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(12), aliceStats.TotalSize)
	require.Equal(t, int64(988), aliceStats.QuotaLeft)

	bobStats, err := f.svc.UserStatistics(ctx, bob.ID)
	require.NoError(t, err)
	require.Zero(t, bobStats.TotalSize)
}

func TestEntryNamesRejectSlash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	_, err := f.svc.CreateFolder(ctx, alice.ID, root.ID, "a/b")
	requireCode(t, err, metadata.ErrInvariant)
	_, err = f.svc.CreateFolder(ctx, alice.ID, root.ID, "")
	requireCode(t, err, metadata.ErrInvariant)

	_, err = f.svc.CreateFile(ctx, alice.ID, root.ID, "a/b.txt", "", strings.NewReader("x"))
	requireCode(t, err, metadata.ErrInvariant)
	require.Equal(t, 0, f.blobs.Len())

	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	_, err = f.svc.UpdateFolder(ctx, alice.ID, docs.ID, UpdateFolderRequest{Name: strPtr("a/b")})
	requireCode(t, err, metadata.ErrInvariant)

	file := f.createFile(t, alice.ID, root.ID, "a.txt", "x")
	_, err = f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Name: strPtr("a/b")})
	requireCode(t, err, metadata.ErrInvariant)

	err = f.svc.MoveFile(ctx, alice.ID, file.ID, docs.ID, "a/b")
	requireCode(t, err, metadata.ErrInvariant)
	_, err = f.svc.CopyFile(ctx, alice.ID, file.ID, docs.ID, "a/b")
	requireCode(t, err, metadata.ErrInvariant)

	// Clean names still resolve through paths.
	res, err := f.svc.ResourceAtPath(ctx, alice.ID, "a.txt", true)
	require.NoError(t, err)
	require.Equal(t, file.ID, res.File.ID)
}

func strPtr(s string) *string { return &s }
