package elfaes

import (
	"context"
	"fmt"
	"time"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
	"github.com/elfaes-go/elfaes/logging"
	"github.com/elfaes-go/elfaes/metrics"
)

// SessionConstraint controls what Stream.Session does about the
// object's existing active stream (spec §4.6, §4.10).
type SessionConstraint int

const (
	// Loose operates on whatever active stream exists, or creates one.
	Loose SessionConstraint = iota
	// Existing fails NoSuchStream if the object has no stream yet.
	Existing
	// New terminates any existing active stream first and starts a fresh one.
	New
)

// Stream is the per-document façade (C11): it opens Sessions, reads
// committed events through the upcaster pipeline, and orchestrates
// inline snapshot creation.
type Stream struct {
	ID         ObjectIdentifier
	StreamType string

	Documents DocumentStore
	Data      DataStore
	Snapshots SnapshotStore // may be nil: snapshotting disabled
	Notifier  Notifier      // may be nil: defaults to NoopNotifier
	Registry  *Registry     // may be nil: no upcasting, no type resolution

	SnapshotPolicy  SnapshotDecider // may be nil: never snapshots
	SnapshotTimeout time.Duration   // default 5s

	Metrics metrics.Recorder
	Logger  logging.Logger
}

// SnapshotDecider is the subset of policy/snapshot.Policy the stream
// needs, kept as an interface here so this package has no import
// cycle with policy/snapshot.
type SnapshotDecider interface {
	ShouldSnapshot(totalEvents, eventsSinceLast int64, lastAppendedType string) bool
}

// NewStream wires the minimal required collaborators. Optional fields
// (Snapshots, Notifier, Registry, SnapshotPolicy, Metrics, Logger) can
// be set directly on the returned Stream before first use.
func NewStream(id ObjectIdentifier, streamType string, documents DocumentStore, data DataStore) *Stream {
	return &Stream{
		ID:              id,
		StreamType:      streamType,
		Documents:       documents,
		Data:            data,
		Notifier:        NoopNotifier{},
		SnapshotTimeout: 5 * time.Second,
		Metrics:         metrics.Noop(),
		Logger:          logging.Noop(),
	}
}

// Session opens a LeasedSession under constraint, runs body, and —
// unless body already committed — commits on a nil return from body.
// A non-nil return from body aborts without committing.
func (s *Stream) Session(ctx context.Context, constraint SessionConstraint, body func(*Session) error) error {
	doc, err := s.Documents.GetOrCreate(ctx, s.ID.ObjectName, s.ID.ObjectID)
	if err != nil {
		return err
	}

	switch constraint {
	case Existing:
		if doc.Active.CurrentStreamVersion == NoEvents && !streamHasPhysicalData(ctx, s, doc) {
			return elfaeserr.New(elfaeserr.CodeNoSuchStream, elfaeserr.KindNotFound,
				fmt.Sprintf("no active stream for %s/%s", s.ID.ObjectName, s.ID.ObjectID))
		}
	case New:
		doc, err = s.terminateActive(ctx, doc)
		if err != nil {
			return err
		}
	case Loose:
		// fall through: GetOrCreate already guarantees an active stream exists.
	}

	sess := &Session{stream: s, doc: doc, constraint: constraint}
	if err := body(sess); err != nil {
		return err
	}
	if !sess.committed {
		return sess.Commit(ctx)
	}
	return nil
}

func streamHasPhysicalData(ctx context.Context, s *Stream, doc ObjectDocument) bool {
	events, err := s.Data.Read(ctx, doc, ReadOptions{StartVersion: 0})
	return err == nil && len(events) > 0
}

// terminateActive moves doc.Active into TerminatedStreams and starts a
// fresh active stream with a new stream identifier, preserving the
// terminated list (state machine transition Terminated -> Active(new)).
func (s *Stream) terminateActive(ctx context.Context, doc ObjectDocument) (ObjectDocument, error) {
	if doc.Active.CurrentStreamVersion == NoEvents && !doc.Active.Terminated {
		// nothing to terminate, nothing committed yet: reuse as-is.
		return doc, nil
	}
	terminated := doc.Active
	terminated.Terminated = true
	doc.TerminatedStreams = append(doc.TerminatedStreams, terminated)
	doc.Active = NewStreamInformation(nextStreamIdentifier(doc), s.StreamType)
	return s.Documents.Set(ctx, doc)
}

func nextStreamIdentifier(doc ObjectDocument) string {
	return fmt.Sprintf("%s:%s:%d", doc.ObjectName, doc.ObjectID, len(doc.TerminatedStreams)+1)
}

// Read returns committed events for the object's active stream in
// [fromVersion, untilVersion], with the upcaster pipeline applied.
// until == nil reads through the current tail.
func (s *Stream) Read(ctx context.Context, fromVersion int64, untilVersion *int64) ([]Event, error) {
	doc, err := s.Documents.GetOrCreate(ctx, s.ID.ObjectName, s.ID.ObjectID)
	if err != nil {
		return nil, err
	}
	raw, err := s.Data.Read(ctx, doc, ReadOptions{StartVersion: fromVersion, UntilVersion: untilVersion})
	if err != nil {
		return nil, err
	}
	s.Metrics.EventsRead(s.StreamType, len(raw))
	if s.Registry == nil {
		return raw, nil
	}
	return s.Registry.Pipeline().Apply(raw)
}

// IsTerminated reports whether the named stream (active or
// terminated) on this object is marked terminated.
func (s *Stream) IsTerminated(ctx context.Context, streamIdentifier string) (bool, error) {
	doc, err := s.Documents.GetOrCreate(ctx, s.ID.ObjectName, s.ID.ObjectID)
	if err != nil {
		return false, err
	}
	if doc.Active.StreamIdentifier == streamIdentifier {
		return doc.Active.Terminated, nil
	}
	for _, t := range doc.TerminatedStreams {
		if t.StreamIdentifier == streamIdentifier {
			return true, nil
		}
	}
	return false, nil
}

// CurrentVersion implements VersionResolver for DecisionContext.Validate.
func (s *Stream) CurrentVersion(ctx context.Context, streamIdentifier string) (int64, error) {
	doc, err := s.Documents.GetOrCreate(ctx, s.ID.ObjectName, s.ID.ObjectID)
	if err != nil {
		return 0, err
	}
	if doc.Active.StreamIdentifier == streamIdentifier {
		return doc.Active.CurrentStreamVersion, nil
	}
	for _, t := range doc.TerminatedStreams {
		if t.StreamIdentifier == streamIdentifier {
			return t.CurrentStreamVersion, nil
		}
	}
	return NoEvents, nil
}
