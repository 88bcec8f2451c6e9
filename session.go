package elfaes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
	"github.com/elfaes-go/elfaes/logging"
)

// AppendArgs are the optional arguments to Session.Append.
type AppendArgs struct {
	ActionMetadata    *ActionMetadata
	OverrideEventType string // bypasses type-registry lookup
	ExternalSequencer string // tags the event for downstream correlation
	Metadata          Metadata
}

// Session is the transactional unit of mutation (C10): it buffers
// staged events, runs PreAppend/PostAppend hooks, and commits
// atomically against the document hash.
type Session struct {
	stream     *Stream
	doc        ObjectDocument
	constraint SessionConstraint

	pending []Event

	preAppend    []PreAppendAction
	postAppend   []PostAppendAction
	snapshotHook func(ctx context.Context) error

	committed bool
}

// OnPreAppend registers a PreAppend hook, run in registration order at commit.
func (s *Session) OnPreAppend(a PreAppendAction) { s.preAppend = append(s.preAppend, a) }

// OnPostAppend registers a PostAppend hook, run in registration order after commit.
func (s *Session) OnPostAppend(a PostAppendAction) { s.postAppend = append(s.postAppend, a) }

// OnSnapshot registers the hook invoked when the snapshot policy
// decides a snapshot is due (step 7). Callers that want automatic
// snapshotting wire this to a Folder's Snapshot method, e.g.:
//
//	sess.OnSnapshot(func(ctx context.Context) error { return folder.Snapshot(ctx, stream) })
//
// If no hook is registered, the policy is not consulted: nothing is
// persisted and no metric fires.
func (s *Session) OnSnapshot(h func(ctx context.Context) error) { s.snapshotHook = h }

// Document returns the session's in-memory view of the ObjectDocument
// as of open time (not refreshed by Append; refreshed by Commit).
func (s *Session) Document() ObjectDocument { return s.doc }

// EventTyper is implemented by domain event payloads that name their
// own wire event type, mirroring the common "EventType() string"
// convention; payloads that don't implement it fall back to their Go
// type name.
type EventTyper interface {
	EventType() string
}

// ResolveEventType returns payload's wire event type: EventTyper if
// implemented, else the Go type name.
func ResolveEventType(payload any) string {
	if named, ok := payload.(EventTyper); ok {
		return named.EventType()
	}
	return fmt.Sprintf("%T", payload)
}

// Append buffers a staged event. eventVersion is assigned as
// currentStreamVersion + (len(pending)+1). It does not touch storage.
// payload is marshaled to JSON once here and stored verbatim from then
// on (spec §9: raw-JSON payloads, never re-quoted downstream).
func (s *Session) Append(payload any, args AppendArgs) (Event, error) {
	if s.doc.Active.Terminated {
		return Event{}, ErrStreamTerminated(s.doc.Active.StreamIdentifier)
	}

	eventType := args.OverrideEventType
	if eventType == "" {
		eventType = ResolveEventType(payload)
	}
	schemaVersion := 1

	raw, err := MarshalPayload(payload)
	if err != nil {
		return Event{}, elfaeserr.Wrap(elfaeserr.CodeIdentityInvalid, elfaeserr.KindInvalidInput,
			"failed to marshal event payload", err)
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	nextVersion := s.doc.Active.CurrentStreamVersion + int64(len(s.pending)) + 1
	md := args.Metadata
	if args.ExternalSequencer != "" {
		if md == nil {
			md = Metadata{}
		} else {
			md = md.Merge(nil)
		}
		md["externalSequencer"] = args.ExternalSequencer
	}

	e := Event{
		EventType:      eventType,
		SchemaVersion:  schemaVersion,
		EventVersion:   nextVersion,
		Payload:        raw,
		ActionMetadata: args.ActionMetadata,
		Metadata:       md,
	}
	s.pending = append(s.pending, e)
	return e, nil
}

// Read reads committed events only — the staging buffer is invisible.
func (s *Session) Read(ctx context.Context, fromVersion int64, untilVersion *int64) ([]Event, error) {
	return s.stream.Read(ctx, fromVersion, untilVersion)
}

// IsTerminated consults the document's terminated list.
func (s *Session) IsTerminated(ctx context.Context, streamIdentifier string) (bool, error) {
	return s.stream.IsTerminated(ctx, streamIdentifier)
}

// Commit runs the commit protocol in spec §4.6 steps 1-7. Calling
// Commit more than once is a no-op after the first successful call.
func (s *Session) Commit(ctx context.Context) error {
	if s.committed {
		return nil
	}
	if len(s.pending) == 0 {
		s.committed = true
		return nil
	}

	started := time.Now()
	streamType := s.doc.Active.StreamType

	// Step 2: PreAppend actions, in registration order. May mutate or fail.
	events := s.pending
	for _, action := range s.preAppend {
		var err error
		events, err = action(ctx, s.stream.ID, events)
		if err != nil {
			s.stream.Metrics.CommitTotal(streamType, false)
			return err
		}
	}

	// Step 3: tentative new version and chunk descriptor.
	newVersion := s.doc.Active.CurrentStreamVersion + int64(len(events))
	nextDoc := s.doc
	applyChunking(&nextDoc.Active, newVersion)

	// Step 4: append to the data store. Per the documented ordering
	// decision (SPEC_FULL §Open Questions #1), this runs before the
	// document-store write: I1's contiguity check makes a retried
	// DocumentStore.Set idempotent, which narrows the reconciliation
	// window on a failure between the two writes.
	if err := s.stream.Data.Append(ctx, s.doc, events, AppendOptions{}); err != nil {
		s.stream.Metrics.CommitTotal(streamType, false)
		return err
	}

	// Step 5: advance the document and CAS it in.
	nextDoc.Active.CurrentStreamVersion = newVersion
	savedDoc, err := s.stream.Documents.Set(ctx, nextDoc)
	if err != nil {
		s.stream.Metrics.CommitTotal(streamType, false)
		return elfaeserr.Wrap(elfaeserr.CodeDocConflict, elfaeserr.KindConcurrencyConflict,
			"document commit failed: data store already advanced, reload and reconcile", err)
	}
	s.doc = savedDoc
	s.pending = nil
	s.committed = true

	s.stream.Metrics.EventsAppended(streamType, len(events))
	s.stream.Metrics.EventsPerCommit(streamType, len(events))
	s.stream.Metrics.CommitTotal(streamType, true)
	s.stream.Metrics.CommitDuration(streamType, time.Since(started))

	// Step 6: PostAppend actions and notifications — logged, never fail the commit.
	for _, action := range s.postAppend {
		action(ctx, s.stream.ID, events)
	}
	if err := s.stream.Notifier.Notify(ctx, s.stream.ID, events); err != nil {
		s.stream.Logger.Warn(ctx, "notification failed", logging.Err(err))
	}

	// Step 7: snapshot policy, inline and time-bounded; failures warn, never fail the commit.
	s.maybeSnapshot(ctx, events, streamType)

	return nil
}

// applyChunking extends StreamChunks when chunking is enabled and the
// current chunk is full, covering [0, newVersion] with disjoint ranges (I4).
func applyChunking(info *StreamInformation, newVersion int64) {
	if info.ChunkSettings == nil || !info.ChunkSettings.Enabled || info.ChunkSettings.ChunkSize <= 0 {
		return
	}
	size := int64(info.ChunkSettings.ChunkSize)
	if len(info.StreamChunks) == 0 {
		info.StreamChunks = append(info.StreamChunks, StreamChunk{ChunkID: 0, FirstVersion: 0, LastVersion: -1})
	}
	for v := info.CurrentStreamVersion + 1; v <= newVersion; v++ {
		last := &info.StreamChunks[len(info.StreamChunks)-1]
		if v-last.FirstVersion >= size {
			info.StreamChunks = append(info.StreamChunks, StreamChunk{
				ChunkID:      last.ChunkID + 1,
				FirstVersion: v,
				LastVersion:  v,
			})
		} else {
			last.LastVersion = v
		}
	}
}

// maybeSnapshot evaluates the snapshot policy and, if due and a hook
// is registered (see OnSnapshot), runs it time-bounded by
// Stream.SnapshotTimeout. The stream itself holds no reference to the
// live aggregate, so it cannot serialize a snapshot on its own;
// creating and persisting the actual bytes is delegated entirely to
// the hook (typically Folder.Snapshot). Firing stream.Metrics.SnapshotCreated
// is the hook's responsibility, since only it knows whether a snapshot
// was actually written.
func (s *Session) maybeSnapshot(ctx context.Context, appended []Event, streamType string) {
	if s.stream.SnapshotPolicy == nil || s.stream.Snapshots == nil || s.snapshotHook == nil {
		return
	}
	lastType := ""
	if len(appended) > 0 {
		lastType = appended[len(appended)-1].EventType
	}
	totalEvents := s.doc.Active.CurrentStreamVersion + 1
	eventsSinceLast := totalEvents
	if snaps, err := s.stream.Snapshots.List(ctx, s.doc); err == nil && len(snaps) > 0 {
		eventsSinceLast = s.doc.Active.CurrentStreamVersion - snaps[0].Version
	}
	if !s.stream.SnapshotPolicy.ShouldSnapshot(totalEvents, eventsSinceLast, lastType) {
		return
	}

	timeout := s.stream.SnapshotTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	snapCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.snapshotHook(snapCtx)
	}()

	select {
	case <-snapCtx.Done():
		s.stream.Logger.Warn(ctx, "snapshot creation timed out, commit already succeeded")
	case err := <-done:
		if err != nil {
			s.stream.Logger.Warn(ctx, "snapshot creation failed", logging.Err(err))
		}
	}
}
