package elfaes

// Aggregate is a domain entity whose state is the fold of its event
// stream. Apply must be a pure state transition: folding the same
// sequence of events twice must yield equal state (spec §4.9).
type Aggregate interface {
	// Apply mutates state by a single event. Called during replay
	// (rehydration), snapshot restore, and when recording new events.
	Apply(e Event)
}

// SnapshotRestorer is implemented by aggregates that can restore their
// state from a snapshot blob rather than full replay.
type SnapshotRestorer interface {
	RestoreSnapshot(data []byte) error
}

// SnapshotProducer is implemented by aggregates that can serialize
// their current state for SnapshotStore.Put.
type SnapshotProducer interface {
	SnapshotState() ([]byte, error)
}
