package sqlite_test

import (
	"testing"

	elfaes "github.com/elfaes-go/elfaes"
	"github.com/elfaes-go/elfaes/internal/storetest"
	"github.com/elfaes-go/elfaes/stores/sqlite"
)

func TestStore_Compliance(t *testing.T) {
	t.Parallel()
	storetest.Run(t, storetest.Factories{
		Data: func(t *testing.T) elfaes.DataStore {
			t.Helper()
			store, err := sqlite.Open(":memory:")
			if err != nil {
				t.Fatalf("could not open sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	})
}

func TestPartitioning_RoutesVersionsToTheirChunk(t *testing.T) {
	t.Parallel()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("could not open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	chunkSize := 2
	doc := elfaes.NewObjectDocument("Order", "1", "stream-chunked", "order")
	doc.Active.ChunkSettings = &elfaes.ChunkSettings{Enabled: true, ChunkSize: chunkSize}
	doc.Active.StreamChunks = []elfaes.StreamChunk{
		{ChunkID: 0, FirstVersion: 0, LastVersion: 1},
		{ChunkID: 1, FirstVersion: 2, LastVersion: 3},
	}

	ctx := t.Context()
	events := []elfaes.Event{
		{EventType: "Opened", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")},
		{EventType: "Added", SchemaVersion: 1, EventVersion: 1, Payload: []byte("{}")},
		{EventType: "Added", SchemaVersion: 1, EventVersion: 2, Payload: []byte("{}")},
		{EventType: "Added", SchemaVersion: 1, EventVersion: 3, Payload: []byte("{}")},
	}
	if err := store.Append(ctx, doc, events, elfaes.AppendOptions{}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := store.Read(ctx, doc, elfaes.ReadOptions{StartVersion: 0})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected all 4 events across chunks, got %d", len(got))
	}
	for i, e := range got {
		if e.EventVersion != int64(i) {
			t.Fatalf("expected ascending version order across chunks, got %d at index %d", e.EventVersion, i)
		}
	}
}
