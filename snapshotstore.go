package elfaes

import "context"

// Snapshot is a serialized aggregate state captured at a version.
type Snapshot struct {
	Version       int64
	Name          string
	Data          []byte
	AggregateType string
}

// SnapshotStore puts, gets, lists, and deletes snapshots for a stream.
// The most-recent snapshot is never deleted by Cleanup (I5).
type SnapshotStore interface {
	Put(ctx context.Context, doc ObjectDocument, snap Snapshot) error

	// Get returns (Snapshot{}, false, nil) if no snapshot exists at
	// version/name. An empty name matches the unnamed snapshot.
	Get(ctx context.Context, doc ObjectDocument, version int64, name string) (Snapshot, bool, error)

	// List returns snapshots ordered by Version descending.
	List(ctx context.Context, doc ObjectDocument) ([]Snapshot, error)

	// DeleteMany removes the given versions, returning the count deleted.
	DeleteMany(ctx context.Context, doc ObjectDocument, versions []int64) (int, error)
}
