package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

func TestPathHelpers(t *testing.T) {
	require.Equal(t, "docs/reports", ParentPath("docs/reports/q3.pdf"))
	require.Equal(t, "docs/reports", ParentPath("/docs/reports/q3.pdf/"))
	require.Equal(t, "", ParentPath("docs"))
	require.Equal(t, "", ParentPath("/"))

	require.Equal(t, "q3.pdf", LastElement("docs/reports/q3.pdf"))
	require.Equal(t, "docs", LastElement("/docs/"))
	require.Equal(t, "", LastElement(""))
}

func TestResourceAtPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	reports := f.createFolder(t, alice.ID, docs.ID, "reports")
	file := f.createFile(t, alice.ID, reports.ID, "q3.pdf", "report body")

	// Empty and "/" resolve to the root itself.
	res, err := f.svc.ResourceAtPath(ctx, alice.ID, "", false)
	require.NoError(t, err)
	require.Equal(t, metadata.ResourceFolder, res.Kind)
	require.Equal(t, root.ID, res.Folder.ID)
	res, err = f.svc.ResourceAtPath(ctx, alice.ID, "/", false)
	require.NoError(t, err)
	require.Equal(t, root.ID, res.Folder.ID)

	// Intermediate folder.
	res, err = f.svc.ResourceAtPath(ctx, alice.ID, "/docs/reports", false)
	require.NoError(t, err)
	require.Equal(t, metadata.ResourceFolder, res.Kind)
	require.Equal(t, reports.ID, res.Folder.ID)
	require.Equal(t, "reports", res.Name())

	// Full path to a file; leading/trailing slashes are insignificant.
	res, err = f.svc.ResourceAtPath(ctx, alice.ID, "docs/reports/q3.pdf", false)
	require.NoError(t, err)
	require.Equal(t, metadata.ResourceFile, res.Kind)
	require.Equal(t, file.ID, res.File.ID)

	// A file can only be the last element.
	_, err = f.svc.ResourceAtPath(ctx, alice.ID, "docs/reports/q3.pdf/inside", false)
	requireCode(t, err, metadata.ErrNotFound)

	_, err = f.svc.ResourceAtPath(ctx, alice.ID, "docs/missing", false)
	requireCode(t, err, metadata.ErrNotFound)
}

func TestResourceAtPathTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	root := f.rootOf(t, alice.ID)
	docs := f.createFolder(t, alice.ID, root.ID, "docs")
	file := f.createFile(t, alice.ID, docs.ID, "a.txt", "x")
	require.NoError(t, f.svc.MoveFileToTrash(ctx, alice.ID, file.ID))

	// The trashed file still resolves when the trash is not ignored.
	res, err := f.svc.ResourceAtPath(ctx, alice.ID, "docs/a.txt", false)
	require.NoError(t, err)
	require.True(t, res.Trashed())

	_, err = f.svc.ResourceAtPath(ctx, alice.ID, "docs/a.txt", true)
	requireCode(t, err, metadata.ErrNotFound)

	// A trashed intermediate folder blocks the whole path.
	require.NoError(t, f.svc.RemoveFileFromTrash(ctx, alice.ID, file.ID))
	require.NoError(t, f.svc.MoveFolderToTrash(ctx, alice.ID, docs.ID))
	_, err = f.svc.ResourceAtPath(ctx, alice.ID, "docs/a.txt", true)
	requireCode(t, err, metadata.ErrNotFound)
}
