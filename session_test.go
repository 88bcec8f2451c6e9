package elfaes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	elfaes "github.com/elfaes-go/elfaes"
	"github.com/elfaes-go/elfaes/metrics"
	"github.com/elfaes-go/elfaes/policy/snapshot"
	"github.com/elfaes-go/elfaes/stores/mem"
)

// spyMetrics wraps a no-op Recorder, counting SnapshotCreated calls so
// tests can assert it never fires on a fake/unwired snapshot.
type spyMetrics struct {
	metrics.Recorder
	snapshotCreated int
}

func (s *spyMetrics) SnapshotCreated(streamType string) {
	s.snapshotCreated++
	s.Recorder.SnapshotCreated(streamType)
}

func newSpyMetrics() *spyMetrics { return &spyMetrics{Recorder: metrics.Noop()} }

type orderOpened struct {
	ID string `json:"id"`
}

func newTestStream(id elfaes.ObjectIdentifier) (*elfaes.Stream, *mem.Store) {
	store := mem.New()
	return elfaes.NewStream(id, "order", store, store), store
}

func TestSession_Append_AssignsSequentialVersions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stream, _ := newTestStream(elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"})

	var versions []int64
	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		for range 3 {
			e, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
			require.NoError(t, err)
			versions = append(versions, e.EventVersion)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, versions)
}

func TestSession_Commit_PersistsEventsAndAdvancesDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}
	stream, _ := newTestStream(id)

	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		return err
	})
	require.NoError(t, err)

	events, err := stream.Read(ctx, 0, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(0), events[0].EventVersion)

	version, err := stream.CurrentVersion(ctx, id.ObjectID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestSession_Commit_RunsHooksInRegistrationOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stream, _ := newTestStream(elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"})

	var order []string
	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		sess.OnPreAppend(func(_ context.Context, _ elfaes.ObjectIdentifier, events []elfaes.Event) ([]elfaes.Event, error) {
			order = append(order, "pre1")
			return events, nil
		})
		sess.OnPreAppend(func(_ context.Context, _ elfaes.ObjectIdentifier, events []elfaes.Event) ([]elfaes.Event, error) {
			order = append(order, "pre2")
			return events, nil
		})
		sess.OnPostAppend(func(_ context.Context, _ elfaes.ObjectIdentifier, _ []elfaes.Event) {
			order = append(order, "post1")
		})
		sess.OnPostAppend(func(_ context.Context, _ elfaes.ObjectIdentifier, _ []elfaes.Event) {
			order = append(order, "post2")
		})
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pre1", "pre2", "post1", "post2"}, order)
}

func TestSession_Commit_PreAppendFailureAbortsCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}
	stream, _ := newTestStream(id)

	boom := assert.AnError
	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		sess.OnPreAppend(func(_ context.Context, _ elfaes.ObjectIdentifier, events []elfaes.Event) ([]elfaes.Event, error) {
			return nil, boom
		})
		_, appendErr := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		return appendErr
	})
	require.Error(t, err)

	events, err := stream.Read(ctx, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSession_Commit_PreAppendCanMutateEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stream, _ := newTestStream(elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"})

	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		sess.OnPreAppend(func(_ context.Context, _ elfaes.ObjectIdentifier, events []elfaes.Event) ([]elfaes.Event, error) {
			for i := range events {
				events[i].Metadata = elfaes.Metadata{"stamped": "true"}
			}
			return events, nil
		})
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		return err
	})
	require.NoError(t, err)

	events, err := stream.Read(ctx, 0, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "true", events[0].Metadata["stamped"])
}

func TestSession_Commit_NoPendingEventsIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}
	stream, _ := newTestStream(id)

	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		return nil
	})
	require.NoError(t, err)

	events, err := stream.Read(ctx, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSession_Commit_IsIdempotentAfterFirstSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stream, _ := newTestStream(elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"})

	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		if err != nil {
			return err
		}
		require.NoError(t, sess.Commit(ctx))
		return sess.Commit(ctx) // second call must be a no-op, not a double append
	})
	require.NoError(t, err)

	events, err := stream.Read(ctx, 0, nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSession_Commit_SnapshotDueButNoHookRegistered_FiresNoMetric(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}
	stream, store := newTestStream(id)
	stream.Snapshots = store.Snapshots()
	stream.SnapshotPolicy = snapshot.Policy{Every: 1, MinEventsBeforeSnapshot: 1, Enabled: true}
	spy := newSpyMetrics()
	stream.Metrics = spy

	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 0, spy.snapshotCreated, "no hook registered: nothing was actually snapshotted")
	snaps, err := store.Snapshots().List(ctx, mustGetDoc(t, ctx, store, id))
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSession_Commit_OnSnapshotHook_PersistsSnapshotAndFiresMetric(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}
	stream, store := newTestStream(id)
	stream.Snapshots = store.Snapshots()
	stream.SnapshotPolicy = snapshot.Policy{Every: 1, MinEventsBeforeSnapshot: 1, Enabled: true}
	spy := newSpyMetrics()
	stream.Metrics = spy

	agg := &counterAggregate{}
	folder := elfaes.NewFolder(agg)

	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		sess.OnSnapshot(func(ctx context.Context) error {
			return folder.Snapshot(ctx, stream)
		})
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		if err != nil {
			return err
		}
		agg.Count++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, spy.snapshotCreated)
	snaps, err := store.Snapshots().List(ctx, mustGetDoc(t, ctx, store, id))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.JSONEq(t, `{"Count":1}`, string(snaps[0].Data))
}

func mustGetDoc(t *testing.T, ctx context.Context, store *mem.Store, id elfaes.ObjectIdentifier) elfaes.ObjectDocument {
	t.Helper()
	doc, err := store.GetOrCreate(ctx, id.ObjectName, id.ObjectID)
	require.NoError(t, err)
	return doc
}

func TestStream_Session_ExistingConstraint_FailsWhenNoStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stream, _ := newTestStream(elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"})

	err := stream.Session(ctx, elfaes.Existing, func(sess *elfaes.Session) error {
		return nil
	})
	assert.Error(t, err)
}

func TestStream_Session_NewConstraint_TerminatesPreviousStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}
	stream, _ := newTestStream(id)

	var firstStreamID string
	require.NoError(t, stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		firstStreamID = sess.Document().Active.StreamIdentifier
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{})
		return err
	}))

	require.NoError(t, stream.Session(ctx, elfaes.New, func(sess *elfaes.Session) error {
		assert.NotEqual(t, firstStreamID, sess.Document().Active.StreamIdentifier)
		return nil
	}))

	terminated, err := stream.IsTerminated(ctx, firstStreamID)
	require.NoError(t, err)
	assert.True(t, terminated)
}

func TestStream_Read_AppliesUpcasterPipeline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	id := elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: "1"}
	stream, _ := newTestStream(id)

	registry := elfaes.NewRegistry()
	registry.RegisterUpcaster(elfaes.UpcasterFunc{
		Can: func(e elfaes.Event) bool { return e.EventType == "OrderOpened" && e.SchemaVersion == 1 },
		Up: func(e elfaes.Event) ([]elfaes.Event, error) {
			return []elfaes.Event{{EventType: "OrderOpened", SchemaVersion: 2, EventVersion: e.EventVersion, Payload: e.Payload}}, nil
		},
	})
	stream.Registry = registry

	require.NoError(t, stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		_, err := sess.Append(orderOpened{ID: "1"}, elfaes.AppendArgs{OverrideEventType: "OrderOpened"})
		return err
	}))

	events, err := stream.Read(ctx, 0, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].SchemaVersion)
}
