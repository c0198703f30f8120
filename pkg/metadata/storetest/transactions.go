package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// RunTransactionTests verifies the atomicity and isolation contract.
func (suite *Suite) RunTransactionTests(t *testing.T) {
	t.Run("RollbackDiscardsWrites", suite.testRollbackDiscardsWrites)
	t.Run("ReadYourWrites", suite.testReadYourWrites)
	t.Run("ViewIsReadOnly", suite.testViewIsReadOnly)
	t.Run("CancelledContext", suite.testCancelledContext)
	t.Run("ConcurrentDuplicateChildName", suite.testConcurrentDuplicateChildName)
}

func (suite *Suite) testRollbackDiscardsWrites(t *testing.T) {
	store := suite.NewStore(t)
	user := newTestUser("alice")

	boom := errors.New("boom")
	err := store.Update(context.Background(), func(tx metadata.Tx) error {
		require.NoError(t, tx.SaveUser(user))
		return boom
	})
	require.ErrorIs(t, err, boom)

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.User(user.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)
		return nil
	})
}

func (suite *Suite) testReadYourWrites(t *testing.T) {
	store := suite.NewStore(t)
	user := newTestUser("alice")

	update(t, store, func(tx metadata.Tx) error {
		require.NoError(t, tx.SaveUser(user))

		// Visible by ID and by every index within the same transaction.
		got, err := tx.User(user.ID)
		require.NoError(t, err)
		require.Equal(t, user.Username, got.Username)

		got, err = tx.UserByUsername("alice")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)

		require.NoError(t, tx.DeleteUser(user.ID))
		_, err = tx.UserByUsername("alice")
		AssertErrorCode(t, metadata.ErrNotFound, err)
		return nil
	})
}

func (suite *Suite) testViewIsReadOnly(t *testing.T) {
	store := suite.NewStore(t)
	user := newTestUser("alice")

	view(t, store, func(tx metadata.Tx) error {
		err := tx.SaveUser(user)
		require.Error(t, err)
		return nil
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.User(user.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)
		return nil
	})
}

// Two transactions race to create a child with the same name under the
// same parent. The child-name uniqueness index is the source of truth, so
// exactly one commit wins regardless of interleaving. The loser fails
// either at the index write (ErrDuplicateName, when it starts after the
// winner committed) or at commit with a transaction conflict
// (ErrIOFailure), and the catalog ends up with exactly one child.
func (suite *Suite) testConcurrentDuplicateChildName(t *testing.T) {
	store := suite.NewStore(t)
	owner := newTestUser("alice")
	root := newTestRoot(owner)

	update(t, store, func(tx metadata.Tx) error {
		require.NoError(t, tx.SaveUser(owner))
		return tx.SaveFolder(root)
	})

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = store.Update(context.Background(), func(tx metadata.Tx) error {
				return tx.SaveFolder(newTestFolder(root, "contested"))
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	require.Len(t, failed, 1, "exactly one of the racing creates must commit, got errors %v", errs)

	code, ok := metadata.CodeOf(failed[0])
	require.True(t, ok, "expected a store error, got %v", failed[0])
	require.Contains(t,
		[]metadata.ErrorCode{metadata.ErrDuplicateName, metadata.ErrIOFailure},
		code, "loser must fail on the name index or the commit conflict")

	view(t, store, func(tx metadata.Tx) error {
		child, err := tx.ChildFolder(root.ID, "contested")
		require.NoError(t, err)
		require.Equal(t, root.ID, *child.ParentID)
		return nil
	})
}

func (suite *Suite) testCancelledContext(t *testing.T) {
	store := suite.NewStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, func(tx metadata.Tx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)

	err = store.View(ctx, func(tx metadata.Tx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
