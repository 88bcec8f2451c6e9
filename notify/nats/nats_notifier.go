// Package nats publishes committed events to a NATS subject as the
// Notifier for the commit flow's post-append step (spec.md §4.6 step 6).
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	elfaes "github.com/elfaes-go/elfaes"
	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// Config configures the Notifier.
type Config struct {
	Conn          *nats.Conn
	SubjectPrefix string        // default "elfaes.events."
	PublishTimeout time.Duration // default 2s
}

// Notifier implements elfaes.Notifier over a NATS connection. One
// message is published per call to Notify, carrying the object
// identity and the whole appended batch — subscribers reconstruct
// ordering from EventVersion.
type Notifier struct {
	conn           *nats.Conn
	subjectPrefix  string
	publishTimeout time.Duration
}

// New builds a Notifier from cfg, applying defaults for zero fields.
func New(cfg Config) *Notifier {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "elfaes.events."
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return &Notifier{conn: cfg.Conn, subjectPrefix: cfg.SubjectPrefix, publishTimeout: cfg.PublishTimeout}
}

// message is the wire envelope published for one commit's event batch.
type message struct {
	ObjectName string        `json:"objectName"`
	ObjectID   string        `json:"objectId"`
	Events     []elfaes.Event `json:"events"`
}

func (n *Notifier) subject(objectName string) string {
	return n.subjectPrefix + objectName
}

// Notify publishes events under subject "{prefix}{objectName}". It
// respects ctx's deadline but also bounds itself to publishTimeout, so
// a caller with no deadline still can't block the commit's
// already-completed work indefinitely.
func (n *Notifier) Notify(ctx context.Context, id elfaes.ObjectIdentifier, events []elfaes.Event) error {
	if n.conn == nil {
		return elfaeserr.New(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "nats notifier has no connection configured")
	}
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.publishTimeout)
	defer cancel()

	payload, err := json.Marshal(message{ObjectName: id.ObjectName, ObjectID: id.ObjectID, Events: events})
	if err != nil {
		return fmt.Errorf("nats notifier: could not encode message: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- n.conn.Publish(n.subject(id.ObjectName), payload)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("nats notifier: could not publish: %w", err)
		}
		return nil
	}
}

var _ elfaes.Notifier = (*Notifier)(nil)
