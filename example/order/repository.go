package main

import (
	"context"
	"time"

	elfaes "github.com/elfaes-go/elfaes"
)

// OrderRepository loads and saves Order aggregates through a per-order
// elfaes.Stream, wiring whatever snapshot store/policy/registry the
// application configured.
type OrderRepository struct {
	documents       elfaes.DocumentStore
	data            elfaes.DataStore
	snapshots       elfaes.SnapshotStore
	registry        *elfaes.Registry
	policy          elfaes.SnapshotDecider
	notifier        elfaes.Notifier
	snapshotTimeout time.Duration
}

// NewOrderRepository wires a repository backed by the given collaborators.
func NewOrderRepository(
	documents elfaes.DocumentStore,
	data elfaes.DataStore,
	snapshots elfaes.SnapshotStore,
	registry *elfaes.Registry,
	policy elfaes.SnapshotDecider,
	notifier elfaes.Notifier,
	snapshotTimeout time.Duration,
) *OrderRepository {
	return &OrderRepository{
		documents:       documents,
		data:            data,
		snapshots:       snapshots,
		registry:        registry,
		policy:          policy,
		notifier:        notifier,
		snapshotTimeout: snapshotTimeout,
	}
}

func (r *OrderRepository) stream(orderID string) *elfaes.Stream {
	s := elfaes.NewStream(elfaes.ObjectIdentifier{ObjectName: "Order", ObjectID: orderID}, "order", r.documents, r.data)
	s.Snapshots = r.snapshots
	s.Registry = r.registry
	s.SnapshotPolicy = r.policy
	if r.notifier != nil {
		s.Notifier = r.notifier
	}
	if r.snapshotTimeout > 0 {
		s.SnapshotTimeout = r.snapshotTimeout
	}
	return s
}

// Load rehydrates the order (snapshot-first, then replay) and returns
// the Stream it was loaded from, so Save can reuse the same document view.
func (r *OrderRepository) Load(ctx context.Context, orderID string) (*Order, *elfaes.Stream, error) {
	stream := r.stream(orderID)
	folder := elfaes.NewFolder(NewOrder())
	if err := folder.Load(ctx, stream, nil); err != nil {
		return nil, nil, err
	}
	return folder.Aggregate.(*Order), stream, nil
}

// Save appends order's pending events within a single session and, on
// success, clears the pending buffer.
func (r *OrderRepository) Save(ctx context.Context, stream *elfaes.Stream, order *Order, md elfaes.Metadata) error {
	pending := order.Pending()
	if len(pending) == 0 {
		return nil
	}
	folder := elfaes.NewFolder(order)
	err := stream.Session(ctx, elfaes.Loose, func(sess *elfaes.Session) error {
		sess.OnSnapshot(func(ctx context.Context) error {
			return folder.Snapshot(ctx, stream)
		})
		for _, payload := range pending {
			if _, err := sess.Append(payload, elfaes.AppendArgs{Metadata: md}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.ClearPending()
	return nil
}
