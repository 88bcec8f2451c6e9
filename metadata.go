package elfaes

import (
	"context"
)

// Metadata carries contextual information that accompanies an event:
// tenant_id, user_id, correlation_id, trace_id, and similar. Per the
// wire format it is a flat string-to-string mapping, never nested.
type Metadata map[string]string

// Merge returns a new Metadata that combines the receiver with the
// given maps. Safe to call on a nil receiver. Later maps take
// precedence over earlier ones. The receiver is not modified.
func (m Metadata) Merge(ms ...Metadata) Metadata {
	out := make(Metadata)

	for k, v := range m {
		out[k] = v
	}
	for _, other := range ms {
		for k, v := range other {
			out[k] = v
		}
	}
	return out
}

// MetadataExtractor builds Metadata from a context. Applications
// supply their own extractor that knows about private context keys.
type MetadataExtractor func(ctx context.Context) Metadata

// ActionMetadata describes the caller-supplied command context for a
// single appended event (distinct from the free-form Metadata map):
// who/what issued it and any correlation identifiers the domain
// itself wants to track structurally.
type ActionMetadata struct {
	ActorID       string
	CorrelationID string
	CausationID   string
}
