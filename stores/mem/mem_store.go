// Package mem is an in-memory backend implementing every store
// interface — DataStore, DocumentStore, SnapshotStore, and both tag
// stores. It is concurrency-safe and suitable for tests, prototypes,
// and local runs.
//
// NOTE: all state is kept in-process and lost on restart.
package mem

import (
	"context"
	"sync"
	"time"

	elfaes "github.com/elfaes-go/elfaes"
	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// Store bundles the backend's in-memory tables. It satisfies
// DataStore, DocumentStore, SnapshotStore, DocumentTagStore, and
// StreamTagStore at once, the way a single-process reference backend
// typically would.
type Store struct {
	mu sync.RWMutex

	events     map[string][]elfaes.Event // streamIdentifier -> events
	documents  map[string]elfaes.ObjectDocument
	snapshots  map[string][]elfaes.Snapshot // streamIdentifier -> snapshots, any order
	docTags    map[string][]elfaes.ObjectIdentifier
	streamTags map[string][]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		events:     make(map[string][]elfaes.Event),
		documents:  make(map[string]elfaes.ObjectDocument),
		snapshots:  make(map[string][]elfaes.Snapshot),
		docTags:    make(map[string][]elfaes.ObjectIdentifier),
		streamTags: make(map[string][]string),
	}
}

func docKey(objectName, objectID string) string { return objectName + "\x00" + objectID }

// Append appends events to doc.Active's stream, enforcing I1: the
// batch's first EventVersion must be the stream's current tail + 1.
func (s *Store) Append(_ context.Context, doc elfaes.ObjectDocument, events []elfaes.Event, opts elfaes.AppendOptions) error {
	if len(events) == 0 {
		return elfaes.ErrEmptyBatch()
	}
	if doc.Active.Terminated {
		return elfaes.ErrStreamTerminated(doc.Active.StreamIdentifier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	streamID := doc.Active.StreamIdentifier
	existing := s.events[streamID]
	currentTail := int64(len(existing)) - 1

	expectedFirst := currentTail + 1
	if events[0].EventVersion != expectedFirst {
		return elfaes.ErrConcurrencyConflictVersions(streamID, expectedFirst, events[0].EventVersion)
	}

	now := time.Now()
	for _, e := range events {
		if !opts.PreserveTimestamp || e.At.IsZero() {
			e.At = now
		}
		existing = append(existing, e)
	}
	s.events[streamID] = existing
	return nil
}

// Read returns events in [opts.StartVersion, opts.UntilVersion], ascending.
func (s *Store) Read(_ context.Context, doc elfaes.ObjectDocument, opts elfaes.ReadOptions) ([]elfaes.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.events[doc.Active.StreamIdentifier]
	var out []elfaes.Event
	for _, e := range all {
		if e.EventVersion < opts.StartVersion {
			continue
		}
		if opts.UntilVersion != nil && e.EventVersion > *opts.UntilVersion {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

// Get fetches the document or fails with NotFound.
func (s *Store) Get(_ context.Context, objectName, objectID string) (elfaes.ObjectDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docKey(objectName, objectID)]
	if !ok {
		return elfaes.ObjectDocument{}, elfaes.ErrDocumentNotFound(objectName, objectID)
	}
	doc.PrevHash = doc.Hash
	return doc, nil
}

// GetOrCreate fetches the document, creating a fresh one on first access.
func (s *Store) GetOrCreate(_ context.Context, objectName, objectID string) (elfaes.ObjectDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey(objectName, objectID)
	if doc, ok := s.documents[key]; ok {
		doc.PrevHash = doc.Hash
		return doc, nil
	}
	doc := elfaes.NewObjectDocument(objectName, objectID, objectID, "")
	s.documents[key] = doc
	return doc, nil
}

// Set performs the compare-and-swap: succeeds if the stored hash
// equals doc.PrevHash, or doc.PrevHash is AnyHash.
func (s *Store) Set(_ context.Context, doc elfaes.ObjectDocument) (elfaes.ObjectDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(doc.ObjectName, doc.ObjectID)
	stored, ok := s.documents[key]
	storedHash := elfaes.AnyHash
	if ok {
		storedHash = stored.Hash
	}
	if doc.PrevHash != elfaes.AnyHash && doc.PrevHash != storedHash {
		return elfaes.ObjectDocument{}, elfaes.ErrDocumentConflict(doc.ObjectName, doc.ObjectID, doc.PrevHash, storedHash)
	}

	next, err := elfaes.WithNewHash(doc)
	if err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeDocConflict, elfaeserr.KindBackendFailure,
			"failed to compute document hash", err)
	}
	s.documents[key] = next
	return next, nil
}

// Put upserts a snapshot at snap.Version for doc's active stream.
func (s *Store) Put(_ context.Context, doc elfaes.ObjectDocument, snap elfaes.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := doc.Active.StreamIdentifier
	list := s.snapshots[key]
	for i, existing := range list {
		if existing.Version == snap.Version && existing.Name == snap.Name {
			list[i] = snap
			s.snapshots[key] = list
			return nil
		}
	}
	s.snapshots[key] = append(list, snap)
	return nil
}

// GetSnapshot returns the snapshot at version/name, or ok=false if absent.
func (s *Store) GetSnapshot(_ context.Context, doc elfaes.ObjectDocument, version int64, name string) (elfaes.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, snap := range s.snapshots[doc.Active.StreamIdentifier] {
		if snap.Version == version && snap.Name == name {
			return snap, true, nil
		}
	}
	return elfaes.Snapshot{}, false, nil
}

// List returns snapshots ordered by Version descending.
func (s *Store) List(_ context.Context, doc elfaes.ObjectDocument) ([]elfaes.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := append([]elfaes.Snapshot(nil), s.snapshots[doc.Active.StreamIdentifier]...)
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].Version > list[j-1].Version; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
	return list, nil
}

// DeleteMany removes the given versions, returning the count deleted.
func (s *Store) DeleteMany(_ context.Context, doc elfaes.ObjectDocument, versions []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]struct{}, len(versions))
	for _, v := range versions {
		want[v] = struct{}{}
	}
	key := doc.Active.StreamIdentifier
	var kept []elfaes.Snapshot
	deleted := 0
	for _, snap := range s.snapshots[key] {
		if _, drop := want[snap.Version]; drop {
			deleted++
			continue
		}
		kept = append(kept, snap)
	}
	s.snapshots[key] = kept
	return deleted, nil
}

// PutDocumentTag indexes id under tag.
func (s *Store) PutDocumentTag(_ context.Context, tag string, id elfaes.ObjectIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docTags[tag] = append(s.docTags[tag], id)
	return nil
}

// ListDocumentTag returns the identities indexed under tag.
func (s *Store) ListDocumentTag(_ context.Context, tag string) ([]elfaes.ObjectIdentifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]elfaes.ObjectIdentifier(nil), s.docTags[tag]...), nil
}

// DeleteDocumentTag removes id from tag's index.
func (s *Store) DeleteDocumentTag(_ context.Context, tag string, id elfaes.ObjectIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.docTags[tag]
	for i, existing := range list {
		if existing == id {
			s.docTags[tag] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

// PutStreamTag indexes streamIdentifier under tag.
func (s *Store) PutStreamTag(_ context.Context, tag, streamIdentifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamTags[tag] = append(s.streamTags[tag], streamIdentifier)
	return nil
}

// ListStreamTag returns the stream identifiers indexed under tag.
func (s *Store) ListStreamTag(_ context.Context, tag string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.streamTags[tag]...), nil
}

// DeleteStreamTag removes streamIdentifier from tag's index.
func (s *Store) DeleteStreamTag(_ context.Context, tag, streamIdentifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.streamTags[tag]
	for i, existing := range list {
		if existing == streamIdentifier {
			s.streamTags[tag] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

var (
	_ elfaes.DataStore        = (*Store)(nil)
	_ elfaes.DocumentStore    = (*Store)(nil)
	_ elfaes.DocumentTagStore = docTagAdapter{}
	_ elfaes.StreamTagStore   = streamTagAdapter{}
)

// snapshotAdapter adapts Store's snapshot methods to elfaes.SnapshotStore
// (whose Get collides in name with DocumentStore.Get, hence the adapter).
type snapshotAdapter struct{ s *Store }

// Snapshots returns an elfaes.SnapshotStore view over s.
func (s *Store) Snapshots() elfaes.SnapshotStore { return snapshotAdapter{s: s} }

func (a snapshotAdapter) Put(ctx context.Context, doc elfaes.ObjectDocument, snap elfaes.Snapshot) error {
	return a.s.Put(ctx, doc, snap)
}
func (a snapshotAdapter) Get(ctx context.Context, doc elfaes.ObjectDocument, version int64, name string) (elfaes.Snapshot, bool, error) {
	return a.s.GetSnapshot(ctx, doc, version, name)
}
func (a snapshotAdapter) List(ctx context.Context, doc elfaes.ObjectDocument) ([]elfaes.Snapshot, error) {
	return a.s.List(ctx, doc)
}
func (a snapshotAdapter) DeleteMany(ctx context.Context, doc elfaes.ObjectDocument, versions []int64) (int, error) {
	return a.s.DeleteMany(ctx, doc, versions)
}

var _ elfaes.SnapshotStore = snapshotAdapter{}

type docTagAdapter struct{ s *Store }

// DocumentTags returns an elfaes.DocumentTagStore view over s.
func (s *Store) DocumentTags() elfaes.DocumentTagStore { return docTagAdapter{s: s} }

func (a docTagAdapter) Put(ctx context.Context, tag string, id elfaes.ObjectIdentifier) error {
	return a.s.PutDocumentTag(ctx, tag, id)
}
func (a docTagAdapter) List(ctx context.Context, tag string) ([]elfaes.ObjectIdentifier, error) {
	return a.s.ListDocumentTag(ctx, tag)
}
func (a docTagAdapter) Delete(ctx context.Context, tag string, id elfaes.ObjectIdentifier) error {
	return a.s.DeleteDocumentTag(ctx, tag, id)
}

type streamTagAdapter struct{ s *Store }

// StreamTags returns an elfaes.StreamTagStore view over s.
func (s *Store) StreamTags() elfaes.StreamTagStore { return streamTagAdapter{s: s} }

func (a streamTagAdapter) Put(ctx context.Context, tag, streamIdentifier string) error {
	return a.s.PutStreamTag(ctx, tag, streamIdentifier)
}
func (a streamTagAdapter) List(ctx context.Context, tag string) ([]string, error) {
	return a.s.ListStreamTag(ctx, tag)
}
func (a streamTagAdapter) Delete(ctx context.Context, tag, streamIdentifier string) error {
	return a.s.DeleteStreamTag(ctx, tag, streamIdentifier)
}
