package redisdoc_test

import (
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	elfaes "github.com/elfaes-go/elfaes"
	"github.com/elfaes-go/elfaes/internal/storetest"
	"github.com/elfaes-go/elfaes/stores/redisdoc"
)

func connect(t *testing.T) redis.UniversalClient {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(t.Context()).Err(); err != nil {
		t.Skipf("could not reach redis at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStore_Compliance(t *testing.T) {
	t.Parallel()
	client := connect(t)
	store := redisdoc.New(client, "elfaes-test:")

	storetest.Run(t, storetest.Factories{
		Documents: func(t *testing.T) elfaes.DocumentStore {
			t.Helper()
			return store
		},
		Snapshots: func(t *testing.T) elfaes.SnapshotStore {
			t.Helper()
			return store.Snapshots()
		},
		DocumentTags: func(t *testing.T) elfaes.DocumentTagStore {
			t.Helper()
			return store.DocumentTags()
		},
		StreamTags: func(t *testing.T) elfaes.StreamTagStore {
			t.Helper()
			return store.StreamTags()
		},
	})
}
