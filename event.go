package elfaes

import (
	"encoding/json"
	"time"
)

// Event is one immutable, versioned record in a stream. Payload is
// held as raw JSON and passed through verbatim on read and write —
// never re-quoted, never re-encoded — so a stored event's bytes
// round-trip exactly (P10).
type Event struct {
	EventType      string          `json:"eventType"`
	SchemaVersion  int             `json:"schemaVersion"`
	EventVersion   int64           `json:"eventVersion"`
	Payload        json.RawMessage `json:"payload"`
	ActionMetadata *ActionMetadata `json:"actionMetadata,omitempty"`
	Metadata       Metadata        `json:"metadata,omitempty"`

	// At is the physical timestamp assigned by the backend on write.
	// Preserved verbatim across migration when AppendOptions.PreserveTimestamp is set.
	At time.Time `json:"-"`
}

// normalizedSchemaVersion returns e.SchemaVersion, defaulting to 1 per spec.
func (e Event) normalizedSchemaVersion() int {
	if e.SchemaVersion <= 0 {
		return 1
	}
	return e.SchemaVersion
}

// NewEvent constructs an Event with a schema version default of 1 and
// an empty-object payload if payload is nil, matching the wire rule
// that empty payloads serialize as "{}" rather than null.
func NewEvent(eventType string, schemaVersion int, payload json.RawMessage) Event {
	if schemaVersion <= 0 {
		schemaVersion = 1
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return Event{
		EventType:     eventType,
		SchemaVersion: schemaVersion,
		Payload:       payload,
	}
}

// MarshalPayload is a convenience for callers that have a typed struct
// rather than raw JSON; the payload is still stored verbatim once encoded.
func MarshalPayload(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
