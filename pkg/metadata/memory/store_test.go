package memory_test

import (
	"testing"

	"github.com/pkoutsias/stashfs/pkg/metadata"
	"github.com/pkoutsias/stashfs/pkg/metadata/memory"
	"github.com/pkoutsias/stashfs/pkg/metadata/storetest"
)

func TestMemoryStore(t *testing.T) {
	suite := &storetest.Suite{
		NewStore: func(t *testing.T) metadata.Store {
			store := memory.New()
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
	suite.Run(t)
}
