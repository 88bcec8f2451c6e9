package elfaes

import (
	"context"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// ReadOptions narrows a Read call to a version range. Chunk names a
// single chunk, but none of the backends under stores/ reads it, so it
// does not narrow their results.
type ReadOptions struct {
	StartVersion int64
	UntilVersion *int64
	Chunk        *int
}

// AppendOptions controls how Append stamps timestamps. PreserveTimestamp
// means "if the event already carries its original At, store that
// verbatim" — used by migration tooling; the default stamps now().
type AppendOptions struct {
	PreserveTimestamp bool
}

// DataStore reads and appends events for one stream addressed by an
// ObjectDocument. Implementations enforce the terminated-stream rule
// and I1 (contiguous, strictly increasing eventVersion).
type DataStore interface {
	// Read returns events in [startVersion, untilVersion] (inclusive on
	// both ends), ascending by EventVersion. Returns (nil, nil) if the
	// stream does not exist physically.
	Read(ctx context.Context, doc ObjectDocument, opts ReadOptions) ([]Event, error)

	// Append appends a non-empty batch of events to doc.Active's stream.
	Append(ctx context.Context, doc ObjectDocument, events []Event, opts AppendOptions) error
}

// ErrEmptyBatch is returned by Append when events is empty.
func ErrEmptyBatch() error {
	return elfaeserr.New(elfaeserr.CodeEmptyBatch, elfaeserr.KindInvalidInput, "append requires a non-empty batch of events")
}

// ErrStreamTerminated is returned by Append when the target stream is terminated.
func ErrStreamTerminated(streamIdentifier string) error {
	return elfaeserr.New(elfaeserr.CodeStreamTerm, elfaeserr.KindStreamTerminated,
		"stream "+streamIdentifier+" is terminated and accepts no further appends")
}

// ErrConcurrencyConflictVersions is returned by Append when the writer
// detects a gap or overlap in eventVersion relative to the current tail.
func ErrConcurrencyConflictVersions(streamIdentifier string, expected, actual int64) error {
	return &elfaeserr.VersionConflictError{
		Code:            elfaeserr.CodeStreamGap,
		StreamID:        streamIdentifier,
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
}
