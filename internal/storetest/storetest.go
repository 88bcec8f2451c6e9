// Package storetest is a compliance suite run against every concrete
// DataStore/DocumentStore/SnapshotStore/TagStore implementation in
// stores/*, generalized from the teacher's single-EventStore harness.
package storetest

import (
	"testing"

	elfaes "github.com/elfaes-go/elfaes"
)

type opened struct{ ID string }

func (opened) EventType() string { return "Opened" }

type added struct{ N int }

func (added) EventType() string { return "Added" }

func mustEvent(t *testing.T, eventType string, version int64, payload any) elfaes.Event {
	t.Helper()
	raw, err := elfaes.MarshalPayload(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return elfaes.Event{EventType: eventType, SchemaVersion: 1, EventVersion: version, Payload: raw}
}

// DataStoreFactory creates a fresh, isolated DataStore for one subtest.
type DataStoreFactory func(t *testing.T) elfaes.DataStore

// DocumentStoreFactory creates a fresh, isolated DocumentStore.
type DocumentStoreFactory func(t *testing.T) elfaes.DocumentStore

// SnapshotStoreFactory creates a fresh, isolated SnapshotStore.
type SnapshotStoreFactory func(t *testing.T) elfaes.SnapshotStore

// DocumentTagStoreFactory creates a fresh, isolated DocumentTagStore.
type DocumentTagStoreFactory func(t *testing.T) elfaes.DocumentTagStore

// StreamTagStoreFactory creates a fresh, isolated StreamTagStore.
type StreamTagStoreFactory func(t *testing.T) elfaes.StreamTagStore

// Factories bundles the store constructors a backend package wants
// verified; a nil field skips the corresponding subtest group.
type Factories struct {
	Data         DataStoreFactory
	Documents    DocumentStoreFactory
	Snapshots    SnapshotStoreFactory
	DocumentTags DocumentTagStoreFactory
	StreamTags   StreamTagStoreFactory
}

// Run executes the compliance subtests for whichever factories are set.
func Run(t *testing.T, f Factories) {
	if f.Data != nil {
		t.Run("DataStore", func(t *testing.T) { runDataStore(t, f.Data) })
	}
	if f.Documents != nil {
		t.Run("DocumentStore", func(t *testing.T) { runDocumentStore(t, f.Documents) })
	}
	if f.Snapshots != nil {
		t.Run("SnapshotStore", func(t *testing.T) { runSnapshotStore(t, f.Snapshots) })
	}
	if f.DocumentTags != nil {
		t.Run("DocumentTagStore", func(t *testing.T) { runDocumentTagStore(t, f.DocumentTags) })
	}
	if f.StreamTags != nil {
		t.Run("StreamTagStore", func(t *testing.T) { runStreamTagStore(t, f.StreamTags) })
	}
}

func newDoc(streamIdentifier string) elfaes.ObjectDocument {
	return elfaes.NewObjectDocument("Stream", streamIdentifier, streamIdentifier, "test")
}

func runDataStore(t *testing.T, newStore DataStoreFactory) {
	t.Run("append/read in order", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)
		doc := newDoc("stream-1")

		events := []elfaes.Event{
			mustEvent(t, "Opened", 0, opened{ID: "1"}),
			mustEvent(t, "Added", 1, added{N: 5}),
		}
		if err := s.Append(ctx, doc, events, elfaes.AppendOptions{}); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		got, err := s.Read(ctx, doc, elfaes.ReadOptions{StartVersion: 0})
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].EventVersion != 0 || got[1].EventVersion != 1 {
			t.Fatalf("expected versions 0,1 in order, got %d,%d", got[0].EventVersion, got[1].EventVersion)
		}
	})

	t.Run("read respects until version", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)
		doc := newDoc("stream-2")

		events := []elfaes.Event{
			mustEvent(t, "Opened", 0, opened{ID: "1"}),
			mustEvent(t, "Added", 1, added{N: 1}),
			mustEvent(t, "Added", 2, added{N: 2}),
		}
		if err := s.Append(ctx, doc, events, elfaes.AppendOptions{}); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		until := int64(1)
		got, err := s.Read(ctx, doc, elfaes.ReadOptions{StartVersion: 0, UntilVersion: &until})
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events through version 1, got %d", len(got))
		}
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)
		doc := newDoc("stream-3")
		if err := s.Append(ctx, doc, nil, elfaes.AppendOptions{}); err == nil {
			t.Fatalf("expected an error appending an empty batch")
		}
	})

	t.Run("read of nonexistent stream returns nothing", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)
		doc := newDoc("stream-missing")
		got, err := s.Read(ctx, doc, elfaes.ReadOptions{StartVersion: 0})
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no events, got %d", len(got))
		}
	})
}

func runDocumentStore(t *testing.T, newStore DocumentStoreFactory) {
	t.Run("get or create then set with matching prevHash succeeds", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)

		doc, err := s.GetOrCreate(ctx, "Order", "1")
		if err != nil {
			t.Fatalf("get or create failed: %v", err)
		}
		if doc.Hash != elfaes.AnyHash {
			t.Fatalf("expected fresh document hash to be the any-hash sentinel, got %q", doc.Hash)
		}

		doc.Active.CurrentStreamVersion = 0
		next, err := elfaes.WithNewHash(doc)
		if err != nil {
			t.Fatalf("with new hash failed: %v", err)
		}
		saved, err := s.Set(ctx, next)
		if err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if saved.Hash == elfaes.AnyHash {
			t.Fatalf("expected a real hash after set")
		}
	})

	t.Run("set with stale prevHash conflicts", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)

		doc, err := s.GetOrCreate(ctx, "Order", "2")
		if err != nil {
			t.Fatalf("get or create failed: %v", err)
		}
		doc.Active.CurrentStreamVersion = 0
		first, err := elfaes.WithNewHash(doc)
		if err != nil {
			t.Fatalf("with new hash failed: %v", err)
		}
		saved, err := s.Set(ctx, first)
		if err != nil {
			t.Fatalf("first set failed: %v", err)
		}

		// Advance the stored hash past saved.Hash with a second set.
		fresh := saved
		fresh.PrevHash = saved.Hash
		fresh.Active.CurrentStreamVersion = 1
		if _, err := s.Set(ctx, fresh); err != nil {
			t.Fatalf("second set failed: %v", err)
		}

		// Stale: PrevHash still points at the hash before the second set.
		stale := saved
		stale.PrevHash = saved.Hash
		stale.Active.CurrentStreamVersion = 2
		if _, err := s.Set(ctx, stale); err == nil {
			t.Fatalf("expected a conflict on stale prevHash")
		}
	})

	t.Run("get of nonexistent document fails not found", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)
		if _, err := s.Get(ctx, "Order", "never-created"); err == nil {
			t.Fatalf("expected not-found error")
		}
	})
}

func runSnapshotStore(t *testing.T, newStore SnapshotStoreFactory) {
	t.Run("put/get/list/cleanup", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)
		doc := newDoc("snap-stream")

		for _, v := range []int64{10, 20, 30} {
			if err := s.Put(ctx, doc, elfaes.Snapshot{Version: v, Data: []byte("{}")}); err != nil {
				t.Fatalf("put failed: %v", err)
			}
		}

		got, ok, err := s.Get(ctx, doc, 20, "")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !ok || got.Version != 20 {
			t.Fatalf("expected to find snapshot at version 20, got ok=%v version=%d", ok, got.Version)
		}

		list, err := s.List(ctx, doc)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 snapshots, got %d", len(list))
		}
		if list[0].Version < list[1].Version {
			t.Fatalf("expected list descending by version")
		}

		deleted, err := s.DeleteMany(ctx, doc, []int64{10})
		if err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if deleted != 1 {
			t.Fatalf("expected 1 deletion, got %d", deleted)
		}
		if _, ok, _ := s.Get(ctx, doc, 10, ""); ok {
			t.Fatalf("expected deleted snapshot to be gone")
		}
	})
}

func runDocumentTagStore(t *testing.T, newStore DocumentTagStoreFactory) {
	t.Run("put/list/delete", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)
		id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}

		if err := s.Put(ctx, "customer:42", id); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		list, err := s.List(ctx, "customer:42")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(list) != 1 || list[0] != id {
			t.Fatalf("expected [%v], got %v", id, list)
		}
		if err := s.Delete(ctx, "customer:42", id); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		list, err = s.List(ctx, "customer:42")
		if err != nil {
			t.Fatalf("list after delete failed: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected empty list after delete, got %v", list)
		}
	})
}

func runStreamTagStore(t *testing.T, newStore StreamTagStoreFactory) {
	t.Run("put/list/delete", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		s := newStore(t)

		if err := s.Put(ctx, "type:Order", "stream-1"); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		list, err := s.List(ctx, "type:Order")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(list) != 1 || list[0] != "stream-1" {
			t.Fatalf("expected [stream-1], got %v", list)
		}
		if err := s.Delete(ctx, "type:Order", "stream-1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		list, err = s.List(ctx, "type:Order")
		if err != nil {
			t.Fatalf("list after delete failed: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected empty list after delete, got %v", list)
		}
	})
}
