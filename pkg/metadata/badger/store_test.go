package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/metadata"
	"github.com/pkoutsias/stashfs/pkg/metadata/badger"
	"github.com/pkoutsias/stashfs/pkg/metadata/storetest"
)

func TestBadgerStore(t *testing.T) {
	suite := &storetest.Suite{
		NewStore: func(t *testing.T) metadata.Store {
			store, err := badger.New(context.Background(), badger.Config{
				DBPath: t.TempDir(),
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
	suite.Run(t)
}
