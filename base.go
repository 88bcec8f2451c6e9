package elfaes

// Base is an embeddable helper for implementing Aggregate's Apply
// boilerplate: a state-mutation applier plus a version counter.
//
// Unlike a simple event-sourcing helper that also buffers pending
// events for the aggregate to flush, here the buffering is owned by
// Session (C10) — the aggregate's command handlers call Session.Append
// directly, so Base only tracks applied-version state for folding and
// replay.
type Base struct {
	version int64
	applier func(Event)
}

// Init sets the state-mutation function (applier).
func (b *Base) Init(applier func(Event)) { b.applier = applier }

// SetApplier replaces the state mutation function.
func (b *Base) SetApplier(applier func(Event)) { b.applier = applier }

// SetVersion forces the internal version counter (used when restoring
// from a snapshot before replaying the remaining events).
func (b *Base) SetVersion(v int64) { b.version = v }

// Apply mutates state via the applier and advances the version by 1.
func (b *Base) Apply(e Event) {
	if b.applier != nil {
		b.applier(e)
	}
	b.version++
}

// Version returns the current version as last applied.
func (b *Base) Version() int64 { return b.version }
