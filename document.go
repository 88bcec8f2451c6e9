package elfaes

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// AnyHash is the sentinel prevHash value meaning "accept any stored
// hash" — used for the first write against a freshly created document.
const AnyHash = "*"

// ChunkSettings configures stream chunking for a StreamInformation.
type ChunkSettings struct {
	Enabled   bool
	ChunkSize int
}

// StreamChunk is one contiguous range of events stored under its own
// partition-key suffix (spec §3, I4: first <= last, disjoint, covers
// [0, currentStreamVersion]).
type StreamChunk struct {
	ChunkID      int   `json:"chunkId"`
	FirstVersion int64 `json:"firstVersion"`
	LastVersion  int64 `json:"lastVersion"`
}

// SnapshotRef records that a snapshot exists at a given version, optionally named.
type SnapshotRef struct {
	Version int64  `json:"version"`
	Name    string `json:"name,omitempty"`
}

// StreamInformation is the active (or terminated) stream descriptor
// embedded in an ObjectDocument.
type StreamInformation struct {
	StreamIdentifier      string `json:"streamIdentifier"`
	StreamType            string `json:"streamType"`
	CurrentStreamVersion  int64  `json:"currentStreamVersion"`
	Terminated            bool   `json:"terminated"`

	DocumentType       string `json:"documentType,omitempty"`
	DocumentTagType    string `json:"documentTagType,omitempty"`
	EventStreamTagType string `json:"eventStreamTagType,omitempty"`
	DocumentRefType    string `json:"documentRefType,omitempty"`

	DataStore        string `json:"dataStore,omitempty"`
	DocumentStore     string `json:"documentStore,omitempty"`
	DocumentTagStore  string `json:"documentTagStore,omitempty"`
	StreamTagStore    string `json:"streamTagStore,omitempty"`
	SnapShotStore     string `json:"snapShotStore,omitempty"`

	ChunkSettings *ChunkSettings `json:"chunkSettings,omitempty"`
	StreamChunks  []StreamChunk  `json:"streamChunks,omitempty"`
	Snapshots     []SnapshotRef  `json:"snapshots,omitempty"`
}

// NewStreamInformation returns a fresh, empty active stream.
func NewStreamInformation(streamIdentifier, streamType string) StreamInformation {
	return StreamInformation{
		StreamIdentifier:     streamIdentifier,
		StreamType:           streamType,
		CurrentStreamVersion: NoEvents,
	}
}

// ObjectDocument is the object-level descriptor: exactly one per
// (objectName, objectId). Hash/PrevHash implement the compare-and-swap
// protocol described in spec §3 and §4.4.
type ObjectDocument struct {
	ObjectID           string              `json:"objectId"`
	ObjectName         string              `json:"objectName"`
	Active             StreamInformation   `json:"active"`
	TerminatedStreams  []StreamInformation `json:"terminatedStreams,omitempty"`
	SchemaVersion      int                 `json:"schemaVersion"`

	Hash     string `json:"hash"`
	PrevHash string `json:"-"`
}

// NewObjectDocument creates the document shape returned by a
// DocumentStore's GetOrCreate on first access: empty active stream,
// currentStreamVersion = -1, sentinel hash meaning "any".
func NewObjectDocument(objectName, objectID, streamIdentifier, streamType string) ObjectDocument {
	doc := ObjectDocument{
		ObjectID:      objectID,
		ObjectName:    objectName,
		Active:        NewStreamInformation(streamIdentifier, streamType),
		SchemaVersion: 1,
		Hash:          AnyHash,
		PrevHash:      AnyHash,
	}
	return doc
}

// canonicalDocument is the subset of ObjectDocument that participates in
// hashing: hash/prevHash are excluded so the hash is a pure function
// of content (I6), and field order is fixed by struct declaration
// order, which encoding/json preserves.
type canonicalDocument struct {
	ObjectID          string              `json:"objectId"`
	ObjectName        string              `json:"objectName"`
	Active            StreamInformation   `json:"active"`
	TerminatedStreams []StreamInformation `json:"terminatedStreams,omitempty"`
	SchemaVersion     int                 `json:"schemaVersion"`
}

// CanonicalJSON serializes doc deterministically, excluding hash/prevHash,
// so that two semantically equal documents always hash equally (I6/P2).
func CanonicalJSON(doc ObjectDocument) ([]byte, error) {
	c := canonicalDocument{
		ObjectID:          doc.ObjectID,
		ObjectName:        doc.ObjectName,
		Active:            doc.Active,
		TerminatedStreams: doc.TerminatedStreams,
		SchemaVersion:     doc.SchemaVersion,
	}
	return json.Marshal(c)
}

// ComputeHash returns the deterministic hash of doc's canonical form.
func ComputeHash(doc ObjectDocument) (string, error) {
	canon, err := CanonicalJSON(doc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(canon)), nil
}

// WithNewHash returns a copy of doc with PrevHash set to doc.Hash and
// Hash recomputed from the current content — the transformation a
// DocumentStore applies on a successful Set (spec §3: "on success, new
// hash is computed and prevHash is set to the previous value").
func WithNewHash(doc ObjectDocument) (ObjectDocument, error) {
	next := doc
	next.PrevHash = doc.Hash
	h, err := ComputeHash(next)
	if err != nil {
		return ObjectDocument{}, err
	}
	next.Hash = h
	return next, nil
}
