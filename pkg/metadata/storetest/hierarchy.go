package storetest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// RunFolderTests exercises folder persistence, the child-name constraint
// and the root index.
func (suite *Suite) RunFolderTests(t *testing.T) {
	t.Run("RootPerOwner", suite.testFolderRootPerOwner)
	t.Run("ChildLookup", suite.testFolderChildLookup)
	t.Run("DuplicateChildName", suite.testFolderDuplicateChildName)
	t.Run("RenameMovesIndex", suite.testFolderRenameMovesIndex)
	t.Run("Reparent", suite.testFolderReparent)
	t.Run("OwnershipTransfer", suite.testFolderOwnershipTransfer)
	t.Run("Delete", suite.testFolderDelete)
}

func (suite *Suite) testFolderRootPerOwner(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	bob := newTestUser("bob")
	aliceRoot := newTestRoot(alice)
	bobRoot := newTestRoot(bob)

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(aliceRoot); err != nil {
			return err
		}
		return tx.SaveFolder(bobRoot)
	})

	view(t, store, func(tx metadata.Tx) error {
		got, err := tx.RootFolder(alice.ID)
		require.NoError(t, err)
		require.Equal(t, aliceRoot.ID, got.ID)
		require.True(t, got.IsRoot())
		return nil
	})

	// A second root for the same owner is rejected.
	err := storeUpdateErr(store, func(tx metadata.Tx) error {
		return tx.SaveFolder(newTestRoot(alice))
	})
	AssertErrorCode(t, metadata.ErrDuplicateName, err)
}

func (suite *Suite) testFolderChildLookup(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	root := newTestRoot(alice)
	docs := newTestFolder(root, "documents")
	pics := newTestFolder(root, "pictures")

	update(t, store, func(tx metadata.Tx) error {
		for _, f := range []*metadata.Folder{root, docs, pics} {
			if err := tx.SaveFolder(f); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, store, func(tx metadata.Tx) error {
		got, err := tx.ChildFolder(root.ID, "documents")
		require.NoError(t, err)
		require.Equal(t, docs.ID, got.ID)

		exists, err := tx.FolderExists(root.ID, "pictures")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = tx.FolderExists(root.ID, "music")
		require.NoError(t, err)
		require.False(t, exists)

		children, err := tx.Subfolders(root.ID)
		require.NoError(t, err)
		require.Len(t, children, 2)

		owned, err := tx.FoldersOwnedBy(alice.ID)
		require.NoError(t, err)
		require.Len(t, owned, 3)
		return nil
	})
}

func (suite *Suite) testFolderDuplicateChildName(t *testing.T) {
	store := suite.NewStore(t)
	root := newTestRoot(newTestUser("alice"))
	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFolder(newTestFolder(root, "documents"))
	})

	err := storeUpdateErr(store, func(tx metadata.Tx) error {
		return tx.SaveFolder(newTestFolder(root, "documents"))
	})
	AssertErrorCode(t, metadata.ErrDuplicateName, err)
}

func (suite *Suite) testFolderRenameMovesIndex(t *testing.T) {
	store := suite.NewStore(t)
	root := newTestRoot(newTestUser("alice"))
	docs := newTestFolder(root, "documents")

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFolder(docs)
	})

	update(t, store, func(tx metadata.Tx) error {
		f, err := tx.Folder(docs.ID)
		require.NoError(t, err)
		f.Name = "archive"
		return tx.SaveFolder(f)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.ChildFolder(root.ID, "documents")
		AssertErrorCode(t, metadata.ErrNotFound, err)

		got, err := tx.ChildFolder(root.ID, "archive")
		require.NoError(t, err)
		require.Equal(t, docs.ID, got.ID)
		return nil
	})
}

func (suite *Suite) testFolderReparent(t *testing.T) {
	store := suite.NewStore(t)
	root := newTestRoot(newTestUser("alice"))
	docs := newTestFolder(root, "documents")
	archive := newTestFolder(root, "archive")

	update(t, store, func(tx metadata.Tx) error {
		for _, f := range []*metadata.Folder{root, docs, archive} {
			if err := tx.SaveFolder(f); err != nil {
				return err
			}
		}
		return nil
	})

	update(t, store, func(tx metadata.Tx) error {
		f, err := tx.Folder(docs.ID)
		require.NoError(t, err)
		parentID := archive.ID
		f.ParentID = &parentID
		return tx.SaveFolder(f)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.ChildFolder(root.ID, "documents")
		AssertErrorCode(t, metadata.ErrNotFound, err)

		got, err := tx.ChildFolder(archive.ID, "documents")
		require.NoError(t, err)
		require.Equal(t, docs.ID, got.ID)
		return nil
	})
}

func (suite *Suite) testFolderOwnershipTransfer(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	bob := newTestUser("bob")
	root := newTestRoot(alice)
	docs := newTestFolder(root, "documents")

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFolder(docs)
	})

	update(t, store, func(tx metadata.Tx) error {
		f, err := tx.Folder(docs.ID)
		require.NoError(t, err)
		f.OwnerID = bob.ID
		return tx.SaveFolder(f)
	})

	view(t, store, func(tx metadata.Tx) error {
		aliceOwned, err := tx.FoldersOwnedBy(alice.ID)
		require.NoError(t, err)
		require.Len(t, aliceOwned, 1)
		require.Equal(t, root.ID, aliceOwned[0].ID)

		bobOwned, err := tx.FoldersOwnedBy(bob.ID)
		require.NoError(t, err)
		require.Len(t, bobOwned, 1)
		require.Equal(t, docs.ID, bobOwned[0].ID)
		return nil
	})
}

func (suite *Suite) testFolderDelete(t *testing.T) {
	store := suite.NewStore(t)
	root := newTestRoot(newTestUser("alice"))
	docs := newTestFolder(root, "documents")

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFolder(docs)
	})

	update(t, store, func(tx metadata.Tx) error {
		return tx.DeleteFolder(docs.ID)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.Folder(docs.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)
		_, err = tx.ChildFolder(root.ID, "documents")
		AssertErrorCode(t, metadata.ErrNotFound, err)
		return nil
	})

	// The name is reusable once the folder is gone.
	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveFolder(newTestFolder(root, "documents"))
	})
}

// RunFileTests exercises file header persistence and the per-owner size
// accounting the quota checks depend on.
func (suite *Suite) RunFileTests(t *testing.T) {
	t.Run("SaveAndLookup", suite.testFileSaveAndLookup)
	t.Run("DuplicateName", suite.testFileDuplicateName)
	t.Run("RenameAndMove", suite.testFileRenameAndMove)
	t.Run("TotalFileSize", suite.testFileTotalFileSize)
	t.Run("VersionedSizeAccounting", suite.testFileVersionedSizeAccounting)
	t.Run("Delete", suite.testFileDelete)
}

func (suite *Suite) testFileSaveAndLookup(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	root := newTestRoot(alice)
	file := newTestFile(root, "notes.txt", 64)

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFile(file)
	})

	view(t, store, func(tx metadata.Tx) error {
		got, err := tx.File(file.ID)
		require.NoError(t, err)
		require.Equal(t, "notes.txt", got.Name)
		require.Equal(t, int64(64), got.CurrentBody().Size)

		byName, err := tx.ChildFile(root.ID, "notes.txt")
		require.NoError(t, err)
		require.Equal(t, file.ID, byName.ID)

		inFolder, err := tx.FilesInFolder(root.ID)
		require.NoError(t, err)
		require.Len(t, inFolder, 1)

		count, err := tx.FileCount(alice.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
		return nil
	})
}

func (suite *Suite) testFileDuplicateName(t *testing.T) {
	store := suite.NewStore(t)
	root := newTestRoot(newTestUser("alice"))
	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFile(newTestFile(root, "notes.txt", 64))
	})

	err := storeUpdateErr(store, func(tx metadata.Tx) error {
		return tx.SaveFile(newTestFile(root, "notes.txt", 32))
	})
	AssertErrorCode(t, metadata.ErrDuplicateName, err)
}

func (suite *Suite) testFileRenameAndMove(t *testing.T) {
	store := suite.NewStore(t)
	root := newTestRoot(newTestUser("alice"))
	docs := newTestFolder(root, "documents")
	file := newTestFile(root, "notes.txt", 64)

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		if err := tx.SaveFolder(docs); err != nil {
			return err
		}
		return tx.SaveFile(file)
	})

	update(t, store, func(tx metadata.Tx) error {
		h, err := tx.File(file.ID)
		require.NoError(t, err)
		h.Name = "renamed.txt"
		h.FolderID = docs.ID
		return tx.SaveFile(h)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.ChildFile(root.ID, "notes.txt")
		AssertErrorCode(t, metadata.ErrNotFound, err)

		got, err := tx.ChildFile(docs.ID, "renamed.txt")
		require.NoError(t, err)
		require.Equal(t, file.ID, got.ID)
		return nil
	})
}

func (suite *Suite) testFileTotalFileSize(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	bob := newTestUser("bob")
	aliceRoot := newTestRoot(alice)
	bobRoot := newTestRoot(bob)

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(aliceRoot); err != nil {
			return err
		}
		if err := tx.SaveFolder(bobRoot); err != nil {
			return err
		}
		if err := tx.SaveFile(newTestFile(aliceRoot, "a.bin", 100)); err != nil {
			return err
		}
		if err := tx.SaveFile(newTestFile(aliceRoot, "b.bin", 250)); err != nil {
			return err
		}
		return tx.SaveFile(newTestFile(bobRoot, "c.bin", 999))
	})

	view(t, store, func(tx metadata.Tx) error {
		total, err := tx.TotalFileSize(alice.ID)
		require.NoError(t, err)
		require.Equal(t, int64(350), total)

		total, err = tx.TotalFileSize(bob.ID)
		require.NoError(t, err)
		require.Equal(t, int64(999), total)

		total, err = tx.TotalFileSize(uuid.New())
		require.NoError(t, err)
		require.Zero(t, total)
		return nil
	})
}

func (suite *Suite) testFileVersionedSizeAccounting(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	root := newTestRoot(alice)

	file := newTestFile(root, "report.doc", 100)
	file.Versioned = true
	second := file.Bodies[0]
	second.Version = 2
	second.Size = 150
	second.StoredPath = "ef/01/" + uuid.NewString()
	file.Bodies = append(file.Bodies, second)
	file.CurrentVersion = 2

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFile(file)
	})

	// Versioned files bill the sum of all versions.
	view(t, store, func(tx metadata.Tx) error {
		total, err := tx.TotalFileSize(alice.ID)
		require.NoError(t, err)
		require.Equal(t, int64(250), total)
		return nil
	})

	update(t, store, func(tx metadata.Tx) error {
		h, err := tx.File(file.ID)
		require.NoError(t, err)
		h.Versioned = false
		h.Bodies = h.Bodies[1:]
		h.CurrentVersion = 2
		return tx.SaveFile(h)
	})

	// Unversioned files bill only the current body.
	view(t, store, func(tx metadata.Tx) error {
		total, err := tx.TotalFileSize(alice.ID)
		require.NoError(t, err)
		require.Equal(t, int64(150), total)
		return nil
	})
}

func (suite *Suite) testFileDelete(t *testing.T) {
	store := suite.NewStore(t)
	alice := newTestUser("alice")
	root := newTestRoot(alice)
	file := newTestFile(root, "notes.txt", 64)

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveFolder(root); err != nil {
			return err
		}
		return tx.SaveFile(file)
	})

	update(t, store, func(tx metadata.Tx) error {
		return tx.DeleteFile(file.ID)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.File(file.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)

		count, err := tx.FileCount(alice.ID)
		require.NoError(t, err)
		require.Zero(t, count)

		total, err := tx.TotalFileSize(alice.ID)
		require.NoError(t, err)
		require.Zero(t, total)
		return nil
	})
}
