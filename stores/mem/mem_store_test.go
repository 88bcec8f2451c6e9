package mem_test

import (
	"testing"

	elfaes "github.com/elfaes-go/elfaes"
	"github.com/elfaes-go/elfaes/internal/storetest"
	"github.com/elfaes-go/elfaes/stores/mem"
)

func TestStore_Compliance(t *testing.T) {
	t.Parallel()
	storetest.Run(t, storetest.Factories{
		Data: func(t *testing.T) elfaes.DataStore {
			t.Helper()
			return mem.New()
		},
		Documents: func(t *testing.T) elfaes.DocumentStore {
			t.Helper()
			return mem.New()
		},
		Snapshots: func(t *testing.T) elfaes.SnapshotStore {
			t.Helper()
			return mem.New().Snapshots()
		},
		DocumentTags: func(t *testing.T) elfaes.DocumentTagStore {
			t.Helper()
			return mem.New().DocumentTags()
		},
		StreamTags: func(t *testing.T) elfaes.StreamTagStore {
			t.Helper()
			return mem.New().StreamTags()
		},
	})
}
