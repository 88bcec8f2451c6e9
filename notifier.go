package elfaes

import "context"

// Notifier publishes committed events downstream after a successful
// commit (spec §4.6 step 6). Notify failures are logged by the caller
// and never fail the commit — at-least-once semantics; subscribers
// must be idempotent.
type Notifier interface {
	Notify(ctx context.Context, id ObjectIdentifier, events []Event) error
}

// NoopNotifier discards every notification. It is the Stream default
// when no Notifier is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, ObjectIdentifier, []Event) error { return nil }
