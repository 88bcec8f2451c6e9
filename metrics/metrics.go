// Package metrics defines the named-metric contract elfaes emits at
// its instrumentation points, without binding to a concrete backend.
// Applications wire a Recorder to Prometheus, OTel, or anything else;
// the core only ever calls through this interface.
package metrics

import "time"

// Recorder receives the counters and histograms named in spec §6.
// All methods must be safe for concurrent use and must not block the
// caller meaningfully — recording is on the hot path of every commit.
type Recorder interface {
	EventsAppended(streamType string, n int)
	EventsRead(streamType string, n int)
	CommitTotal(streamType string, ok bool)
	CommitDuration(streamType string, d time.Duration)
	EventsPerCommit(streamType string, n int)
	SnapshotCreated(streamType string)
	UpcastPerformed(eventType string, fromVersion, toVersion int)
	CatchupItemsProcessed(streamType string, n int)
	ProjectionUpdateDuration(projection string, d time.Duration)
	ProjectionEventsFolded(projection string, n int)
	StorageReadDuration(backend string, d time.Duration)
	StorageWriteDuration(backend string, d time.Duration)
}

// Noop returns a Recorder whose methods do nothing, the default used
// when an application does not wire observability.
func Noop() Recorder { return noop{} }

type noop struct{}

func (noop) EventsAppended(string, int)                    {}
func (noop) EventsRead(string, int)                         {}
func (noop) CommitTotal(string, bool)                       {}
func (noop) CommitDuration(string, time.Duration)            {}
func (noop) EventsPerCommit(string, int)                     {}
func (noop) SnapshotCreated(string)                           {}
func (noop) UpcastPerformed(string, int, int)                 {}
func (noop) CatchupItemsProcessed(string, int)                {}
func (noop) ProjectionUpdateDuration(string, time.Duration)   {}
func (noop) ProjectionEventsFolded(string, int)               {}
func (noop) StorageReadDuration(string, time.Duration)        {}
func (noop) StorageWriteDuration(string, time.Duration)       {}
