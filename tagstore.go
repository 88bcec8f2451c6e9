package elfaes

import "context"

// DocumentTagStore is the secondary index from a caller-defined tag to
// the object identities carrying it (e.g. "customer:42" -> all orders
// for that customer). Backed by documentTagType in StreamInformation.
type DocumentTagStore interface {
	Put(ctx context.Context, tag string, id ObjectIdentifier) error
	List(ctx context.Context, tag string) ([]ObjectIdentifier, error)
	Delete(ctx context.Context, tag string, id ObjectIdentifier) error
}

// StreamTagStore is the secondary index from a caller-defined tag to
// stream identifiers (e.g. an aggregate-type tag used by retention
// discovery to enumerate the streams of one configured type without a
// full table scan). Backed by eventStreamTagType in StreamInformation.
type StreamTagStore interface {
	Put(ctx context.Context, tag string, streamIdentifier string) error
	List(ctx context.Context, tag string) ([]string, error)
	Delete(ctx context.Context, tag string, streamIdentifier string) error
}
