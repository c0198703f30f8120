// Package storetest provides a reusable contract test suite for
// metadata.Store implementations. It tests the interface contract, not
// implementation details, so every backend runs the same suite.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// Suite exercises a metadata.Store implementation against the transaction
// and catalog contract.
type Suite struct {
	// NewStore creates a fresh store for each test, ensuring isolation.
	// Cleanup is registered on t by the factory.
	NewStore func(t *testing.T) metadata.Store
}

// Run executes all tests in the suite.
func (suite *Suite) Run(t *testing.T) {
	t.Run("Transactions", suite.RunTransactionTests)
	t.Run("Users", suite.RunUserTests)
	t.Run("Folders", suite.RunFolderTests)
	t.Run("Files", suite.RunFileTests)
	t.Run("Groups", suite.RunGroupTests)
	t.Run("Nonces", suite.RunNonceTests)
}

// ============================================================================
// Helpers
// ============================================================================

func update(t *testing.T, store metadata.Store, fn func(tx metadata.Tx) error) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(), fn))
}

func view(t *testing.T, store metadata.Store, fn func(tx metadata.Tx) error) {
	t.Helper()
	require.NoError(t, store.View(context.Background(), fn))
}

// storeUpdateErr runs an update expected to fail and returns its error.
func storeUpdateErr(store metadata.Store, fn func(tx metadata.Tx) error) error {
	return store.Update(context.Background(), fn)
}

// AssertErrorCode fails the test unless err carries the expected store
// error code.
func AssertErrorCode(t *testing.T, expected metadata.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := metadata.CodeOf(err)
	require.True(t, ok, "expected a store error, got %v", err)
	require.Equal(t, expected, code, "unexpected error code in %v", err)
}

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestUser(username string) *metadata.User {
	return &metadata.User{
		ID:       uuid.New(),
		Username: username,
		Name:     "Test " + username,
		Email:    username + "@example.com",
		Active:   true,
		Audit:    metadata.NewAuditInfo(uuid.Nil, testEpoch),
	}
}

func newTestRoot(owner *metadata.User) *metadata.Folder {
	return &metadata.Folder{
		ID:          uuid.New(),
		Name:        owner.Username,
		OwnerID:     owner.ID,
		Permissions: []metadata.Permission{metadata.OwnerPermission(owner.ID)},
		Audit:       metadata.NewAuditInfo(owner.ID, testEpoch),
	}
}

func newTestFolder(parent *metadata.Folder, name string) *metadata.Folder {
	parentID := parent.ID
	return &metadata.Folder{
		ID:          uuid.New(),
		Name:        name,
		OwnerID:     parent.OwnerID,
		ParentID:    &parentID,
		Permissions: metadata.SnapshotACL(parent.Permissions),
		Audit:       metadata.NewAuditInfo(parent.OwnerID, testEpoch),
	}
}

func newTestFile(folder *metadata.Folder, name string, size int64) *metadata.FileHeader {
	return &metadata.FileHeader{
		ID:             uuid.New(),
		Name:           name,
		OwnerID:        folder.OwnerID,
		FolderID:       folder.ID,
		Permissions:    metadata.SnapshotACL(folder.Permissions),
		CurrentVersion: 1,
		Bodies: []metadata.FileBody{{
			Version:      1,
			MimeType:     "text/plain",
			Size:         size,
			OriginalName: name,
			StoredPath:   "ab/cd/" + uuid.NewString(),
			Audit:        metadata.NewAuditInfo(folder.OwnerID, testEpoch),
		}},
		Audit: metadata.NewAuditInfo(folder.OwnerID, testEpoch),
	}
}

func newTestGroup(owner *metadata.User, name string, members ...uuid.UUID) *metadata.Group {
	return &metadata.Group{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   owner.ID,
		MemberIDs: members,
	}
}
