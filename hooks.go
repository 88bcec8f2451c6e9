package elfaes

import "context"

// PreAppendAction runs synchronously within a commit against the
// buffered event set before it reaches the DataStore. It may mutate
// events in place (returning the possibly-modified slice) or fail the
// commit by returning a non-nil error.
type PreAppendAction func(ctx context.Context, id ObjectIdentifier, events []Event) ([]Event, error)

// PostAppendAction runs after a successful commit. Its error is logged
// and swallowed — it can never fail the commit (at-least-once semantics).
type PostAppendAction func(ctx context.Context, id ObjectIdentifier, events []Event)
