package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

func boolPtr(b bool) *bool { return &b }

func TestCreateFileRoundTrip(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	file := f.createFile(t, alice.ID, root.ID, "notes.txt", "hello world")
	require.Equal(t, alice.ID, file.OwnerID)
	require.Equal(t, 1, file.CurrentVersion)
	require.False(t, file.Versioned)
	require.Len(t, file.Bodies, 1)
	require.Equal(t, int64(11), file.Bodies[0].Size)

	require.Equal(t, "hello world", f.readFile(t, alice.ID, file.ID, 0))
	require.Equal(t, file.ID, f.notifier.updated[len(f.notifier.updated)-1])
}

func TestCreateFileMimeResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	// A specific supplied type wins.
	file, err := f.svc.CreateFile(ctx, alice.ID, root.ID, "data.bin", "application/x-custom", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "application/x-custom", file.CurrentBody().MimeType)

	// A generic placeholder falls through to the extension.
	file, err = f.svc.CreateFile(ctx, alice.ID, root.ID, "report.doc", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "application/msword", file.CurrentBody().MimeType)

	// No type, unknown extension: content sniffing takes over.
	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 32)
	file, err = f.svc.CreateFile(ctx, alice.ID, root.ID, "mystery", "", strings.NewReader(png))
	require.NoError(t, err)
	require.Equal(t, "image/png", file.CurrentBody().MimeType)
}

func TestCreateFileQuota(t *testing.T) {
	f := newFixture(t)
	f.setQuota(t, 1000)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	f.createFile(t, alice.ID, root.ID, "first.bin", strings.Repeat("a", 600))
	require.Equal(t, 1, f.blobs.Len())

	_, err := f.svc.CreateFile(ctx, alice.ID, root.ID, "second.bin", "", strings.NewReader(strings.Repeat("b", 600)))
	requireCode(t, err, metadata.ErrQuotaExceeded)

	// The rejected upload's blob was rolled back.
	require.Equal(t, 1, f.blobs.Len())
}

func TestOwnerAlwaysReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "private.txt", "secret")

	_, err := f.svc.GetFile(ctx, bob.ID, file.ID)
	requireCode(t, err, metadata.ErrPermissionDenied)
	require.Equal(t, "secret", f.readFile(t, alice.ID, file.ID, 0))
}

func TestFileReadForAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "pub.txt", "open")

	// Only the owner can flip the flag.
	_, err := f.svc.UpdateFile(ctx, bob.ID, file.ID, UpdateFileRequest{ReadForAll: boolPtr(true)})
	requireCode(t, err, metadata.ErrPermissionDenied)

	_, err = f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{ReadForAll: boolPtr(true)})
	require.NoError(t, err)

	require.Equal(t, "open", f.readFile(t, bob.ID, file.ID, 0))
	_, err = f.svc.UpdateFileContents(ctx, bob.ID, file.ID, "", strings.NewReader("vandalism"))
	requireCode(t, err, metadata.ErrPermissionDenied)
}

func TestUnversionedReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "v1 content")

	updated, err := f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("v2 content"))
	require.NoError(t, err)
	require.Len(t, updated.Bodies, 1)
	require.Equal(t, 1, updated.CurrentVersion)
	require.Equal(t, "v2 content", f.readFile(t, alice.ID, file.ID, 0))

	// The replaced blob is gone.
	require.Equal(t, 1, f.blobs.Len())
}

func TestVersionedAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "one")

	_, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true)})
	require.NoError(t, err)

	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("two"))
	require.NoError(t, err)
	updated, err := f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("three"))
	require.NoError(t, err)

	require.Len(t, updated.Bodies, 3)
	require.Equal(t, 3, updated.CurrentVersion)
	require.Equal(t, 3, f.blobs.Len())

	versions, err := f.svc.Versions(ctx, alice.ID, file.ID)
	require.NoError(t, err)
	require.Equal(t, 3, versions[0].Version)
	require.Equal(t, 1, versions[2].Version)

	// Every version stays readable.
	require.Equal(t, "one", f.readFile(t, alice.ID, file.ID, 1))
	require.Equal(t, "two", f.readFile(t, alice.ID, file.ID, 2))
	require.Equal(t, "three", f.readFile(t, alice.ID, file.ID, 0))
}

func TestVersionedOffPrunes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "one")

	_, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true)})
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("two"))
	require.NoError(t, err)
	require.Equal(t, 2, f.blobs.Len())

	updated, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, updated.Bodies, 1)
	require.Equal(t, 1, updated.CurrentVersion)
	require.Equal(t, 1, updated.Bodies[0].Version)
	require.Equal(t, "two", f.readFile(t, alice.ID, file.ID, 0))
	require.Equal(t, 1, f.blobs.Len())

	// A later update replaces instead of appending.
	updated, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("three"))
	require.NoError(t, err)
	require.Len(t, updated.Bodies, 1)
	require.Equal(t, "three", f.readFile(t, alice.ID, file.ID, 0))
}

func TestRemoveVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "one")

	err := f.svc.RemoveVersion(ctx, alice.ID, file.ID, 1)
	requireCode(t, err, metadata.ErrInvariant)

	_, err = f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true)})
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("two"))
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("three"))
	require.NoError(t, err)

	err = f.svc.RemoveVersion(ctx, alice.ID, file.ID, 9)
	requireCode(t, err, metadata.ErrNotFound)

	// Removing a middle version keeps the chain readable.
	require.NoError(t, f.svc.RemoveVersion(ctx, alice.ID, file.ID, 2))
	require.Equal(t, 2, f.blobs.Len())

	// Removing the current version promotes its predecessor.
	require.NoError(t, f.svc.RemoveVersion(ctx, alice.ID, file.ID, 3))
	require.Equal(t, "one", f.readFile(t, alice.ID, file.ID, 0))
	require.Equal(t, 1, f.blobs.Len())
}

func TestRestoreVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "one")

	_, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true)})
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("two"))
	require.NoError(t, err)

	// Restoring appends a new version with the old bytes.
	restored, err := f.svc.RestoreVersion(ctx, alice.ID, file.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 3, restored.CurrentVersion)
	require.Equal(t, "one", f.readFile(t, alice.ID, file.ID, 0))
	require.Equal(t, "two", f.readFile(t, alice.ID, file.ID, 2))
}

func TestRemoveOldVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "one")

	_, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true)})
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("two"))
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("three"))
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveOldVersions(ctx, alice.ID, file.ID))

	got, err := f.svc.GetFile(ctx, alice.ID, file.ID)
	require.NoError(t, err)
	require.Len(t, got.Bodies, 1)
	require.Equal(t, 1, got.CurrentVersion)
	require.True(t, got.Versioned)
	require.Equal(t, "three", f.readFile(t, alice.ID, file.ID, 0))
	require.Equal(t, 1, f.blobs.Len())
}

func TestVersionedQuotaBilling(t *testing.T) {
	f := newFixture(t)
	f.setQuota(t, 1000)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	file := f.createFile(t, alice.ID, root.ID, "doc.bin", strings.Repeat("a", 400))
	_, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true)})
	require.NoError(t, err)

	// Versioned: old bytes stay billed, so 400 + 400 fits but +400 more not.
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader(strings.Repeat("b", 400)))
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader(strings.Repeat("c", 400)))
	requireCode(t, err, metadata.ErrQuotaExceeded)
	require.Equal(t, 2, f.blobs.Len())

	// Non-versioned: the current body's size is credited back first.
	_, err = f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(false)})
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader(strings.Repeat("d", 900)))
	require.NoError(t, err)
}

func TestRenameFileDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)

	f.createFile(t, alice.ID, root.ID, "a.txt", "a")
	b := f.createFile(t, alice.ID, root.ID, "b.txt", "b")

	_, err := f.svc.UpdateFile(ctx, alice.ID, b.ID, UpdateFileRequest{Name: strPtr("a.txt")})
	requireCode(t, err, metadata.ErrDuplicateName)

	renamed, err := f.svc.UpdateFile(ctx, alice.ID, b.ID, UpdateFileRequest{Name: strPtr("c.txt")})
	require.NoError(t, err)
	require.Equal(t, "c.txt", renamed.Name)
}

func TestFileTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "x")

	tagged, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Tags: []string{"work", "draft"}})
	require.NoError(t, err)
	require.Equal(t, []string{"work", "draft"}, tagged.Tags)
}

func TestMoveFileCrossOwner(t *testing.T) {
	f := newFixture(t)
	f.setQuota(t, 1000)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	aliceRoot := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, aliceRoot.ID, "doc.bin", strings.Repeat("a", 600))

	bobRoot := f.rootOf(t, bob.ID)
	dest := f.createFolder(t, bob.ID, bobRoot.ID, "inbox")
	f.shareFolder(t, bob.ID, dest, metadata.UserPermission(alice.ID, true, true, false))

	f.createFile(t, bob.ID, bobRoot.ID, "filler.bin", strings.Repeat("y", 500))
	err := f.svc.MoveFile(ctx, alice.ID, file.ID, dest.ID, "")
	requireCode(t, err, metadata.ErrQuotaExceeded)

	filler, err := f.svc.ResourceAtPath(ctx, bob.ID, "filler.bin", false)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteFile(ctx, bob.ID, filler.File.ID))

	require.NoError(t, f.svc.MoveFile(ctx, alice.ID, file.ID, dest.ID, ""))
	moved, err := f.svc.GetFile(ctx, bob.ID, file.ID)
	require.NoError(t, err)
	require.Equal(t, bob.ID, moved.OwnerID)
	require.Equal(t, dest.ID, moved.FolderID)
}

func TestMoveTrashedFileIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "x")

	require.NoError(t, f.svc.MoveFileToTrash(ctx, alice.ID, file.ID))
	require.NoError(t, f.svc.MoveFile(ctx, alice.ID, file.ID, docs.ID, ""))

	err := f.store.View(ctx, func(tx metadata.Tx) error {
		stored, err := tx.File(file.ID)
		require.NoError(t, err)
		require.Equal(t, root.ID, stored.FolderID)
		return nil
	})
	require.NoError(t, err)
}

func TestCopyFilePreservesVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")

	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "one")
	_, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true), Tags: []string{"keep"}})
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("two"))
	require.NoError(t, err)

	copied, err := f.svc.CopyFile(ctx, alice.ID, file.ID, docs.ID, "copy.txt")
	require.NoError(t, err)
	require.NotEqual(t, file.ID, copied.ID)
	require.True(t, copied.Versioned)
	require.Equal(t, []string{"keep"}, copied.Tags)
	require.Len(t, copied.Bodies, 2)
	require.Equal(t, 2, copied.CurrentVersion)

	require.Equal(t, "one", f.readFile(t, alice.ID, copied.ID, 1))
	require.Equal(t, "two", f.readFile(t, alice.ID, copied.ID, 0))

	// The copy has its own blobs: deleting the original leaves it intact.
	require.NoError(t, f.svc.DeleteFile(ctx, alice.ID, file.ID))
	require.Equal(t, "two", f.readFile(t, alice.ID, copied.ID, 0))
}

func TestDeleteFileCleansBlobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	file := f.createFile(t, alice.ID, root.ID, "doc.txt", "one")

	_, err := f.svc.UpdateFile(ctx, alice.ID, file.ID, UpdateFileRequest{Versioned: boolPtr(true)})
	require.NoError(t, err)
	_, err = f.svc.UpdateFileContents(ctx, alice.ID, file.ID, "", strings.NewReader("two"))
	require.NoError(t, err)
	require.Equal(t, 2, f.blobs.Len())

	f.notifier.reset()
	require.NoError(t, f.svc.DeleteFile(ctx, alice.ID, file.ID))
	require.Equal(t, 0, f.blobs.Len())
	require.True(t, f.notifier.deletedContains(file.ID))
	_, err = f.svc.GetFile(ctx, alice.ID, file.ID)
	requireCode(t, err, metadata.ErrNotFound)
}

func TestBatchFileOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")

	a := f.createFile(t, alice.ID, root.ID, "a.txt", "a")
	b := f.createFile(t, alice.ID, root.ID, "b.txt", "b")

	require.NoError(t, f.svc.MoveFiles(ctx, alice.ID, []uuid.UUID{a.ID, b.ID}, docs.ID))
	files, err := f.svc.Files(ctx, alice.ID, docs.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.NoError(t, f.svc.MoveFilesToTrash(ctx, alice.ID, []uuid.UUID{a.ID, b.ID}))
	files, err = f.svc.Files(ctx, alice.ID, docs.ID)
	require.NoError(t, err)
	require.Empty(t, files)

	require.NoError(t, f.svc.RemoveFilesFromTrash(ctx, alice.ID, []uuid.UUID{a.ID}))
	files, err = f.svc.Files(ctx, alice.ID, docs.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, f.svc.DeleteFiles(ctx, alice.ID, []uuid.UUID{a.ID, b.ID}))
	require.Equal(t, 0, f.blobs.Len())
}
