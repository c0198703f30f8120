package storetest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// RunUserTests exercises user and user-class persistence.
func (suite *Suite) RunUserTests(t *testing.T) {
	t.Run("SaveAndLookup", suite.testUserSaveAndLookup)
	t.Run("DuplicateUsername", suite.testUserDuplicateUsername)
	t.Run("DuplicateEmailCaseInsensitive", suite.testUserDuplicateEmailCaseInsensitive)
	t.Run("Rename", suite.testUserRename)
	t.Run("Delete", suite.testUserDelete)
	t.Run("UserClasses", suite.testUserClasses)
}

func (suite *Suite) testUserSaveAndLookup(t *testing.T) {
	store := suite.NewStore(t)
	user := newTestUser("alice")
	user.Tags = []string{"pilot"}

	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveUser(user)
	})

	view(t, store, func(tx metadata.Tx) error {
		byID, err := tx.User(user.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", byID.Username)
		require.Equal(t, []string{"pilot"}, byID.Tags)

		byName, err := tx.UserByUsername("alice")
		require.NoError(t, err)
		require.Equal(t, user.ID, byName.ID)

		byEmail, err := tx.UserByEmail("ALICE@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, byEmail.ID)
		return nil
	})
}

func (suite *Suite) testUserDuplicateUsername(t *testing.T) {
	store := suite.NewStore(t)
	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveUser(newTestUser("alice"))
	})

	dup := newTestUser("alice")
	dup.Email = "other@example.com"
	err := storeUpdateErr(store, func(tx metadata.Tx) error {
		return tx.SaveUser(dup)
	})
	AssertErrorCode(t, metadata.ErrDuplicateName, err)
}

func (suite *Suite) testUserDuplicateEmailCaseInsensitive(t *testing.T) {
	store := suite.NewStore(t)
	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveUser(newTestUser("alice"))
	})

	dup := newTestUser("bob")
	dup.Email = "Alice@Example.com"
	err := storeUpdateErr(store, func(tx metadata.Tx) error {
		return tx.SaveUser(dup)
	})
	AssertErrorCode(t, metadata.ErrDuplicateName, err)
}

func (suite *Suite) testUserRename(t *testing.T) {
	store := suite.NewStore(t)
	user := newTestUser("alice")
	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveUser(user)
	})

	update(t, store, func(tx metadata.Tx) error {
		u, err := tx.User(user.ID)
		require.NoError(t, err)
		u.Username = "alicia"
		u.Email = "alicia@example.com"
		return tx.SaveUser(u)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.UserByUsername("alice")
		AssertErrorCode(t, metadata.ErrNotFound, err)
		_, err = tx.UserByEmail("alice@example.com")
		AssertErrorCode(t, metadata.ErrNotFound, err)

		got, err := tx.UserByUsername("alicia")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		return nil
	})
}

func (suite *Suite) testUserDelete(t *testing.T) {
	store := suite.NewStore(t)
	user := newTestUser("alice")
	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveUser(user)
	})

	update(t, store, func(tx metadata.Tx) error {
		return tx.DeleteUser(user.ID)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.User(user.ID)
		AssertErrorCode(t, metadata.ErrNotFound, err)
		_, err = tx.UserByUsername("alice")
		AssertErrorCode(t, metadata.ErrNotFound, err)
		return nil
	})

	// Username is free for reuse after deletion.
	update(t, store, func(tx metadata.Tx) error {
		return tx.SaveUser(newTestUser("alice"))
	})
}

func (suite *Suite) testUserClasses(t *testing.T) {
	store := suite.NewStore(t)
	small := &metadata.UserClass{ID: uuid.New(), Name: "small", Quota: 1 << 20}
	large := &metadata.UserClass{ID: uuid.New(), Name: "large", Quota: 1 << 30}

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveUserClass(small); err != nil {
			return err
		}
		return tx.SaveUserClass(large)
	})

	view(t, store, func(tx metadata.Tx) error {
		got, err := tx.UserClass(small.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1<<20), got.Quota)

		all, err := tx.UserClasses()
		require.NoError(t, err)
		require.Len(t, all, 2)
		return nil
	})
}

// RunNonceTests exercises nonce persistence and value lookup.
func (suite *Suite) RunNonceTests(t *testing.T) {
	t.Run("SaveLookupDelete", suite.testNonceSaveLookupDelete)
}

func (suite *Suite) testNonceSaveLookupDelete(t *testing.T) {
	store := suite.NewStore(t)
	user := newTestUser("alice")
	nonce := metadata.NewNonce(user.ID, time.Now().UTC())

	update(t, store, func(tx metadata.Tx) error {
		if err := tx.SaveUser(user); err != nil {
			return err
		}
		return tx.SaveNonce(nonce)
	})

	view(t, store, func(tx metadata.Tx) error {
		got, err := tx.NonceByValue(nonce.Value)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.UserID)
		require.Equal(t, nonce.ID, got.ID)
		return nil
	})

	update(t, store, func(tx metadata.Tx) error {
		return tx.DeleteNonce(nonce.ID)
	})

	view(t, store, func(tx metadata.Tx) error {
		_, err := tx.NonceByValue(nonce.Value)
		AssertErrorCode(t, metadata.ErrNotFound, err)
		return nil
	})
}
