// Package pgx is a PostgreSQL-backed DataStore and DocumentStore,
// using optimistic concurrency via the document hash chain and
// gzip-compressed event payloads for the data store.
package pgx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/gzip"

	elfaes "github.com/elfaes-go/elfaes"
	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// Schema is the DDL a fresh database needs; callers run it themselves
// (AutoCreate in elfaes/config only governs application-level
// provisioning decisions, not migrations).
const Schema = `
CREATE TABLE IF NOT EXISTS elfaes_documents (
	object_name TEXT NOT NULL,
	object_id   TEXT NOT NULL,
	hash        TEXT NOT NULL,
	doc         JSONB NOT NULL,
	PRIMARY KEY (object_name, object_id)
);

CREATE TABLE IF NOT EXISTS elfaes_events (
	stream_identifier TEXT NOT NULL,
	event_version     BIGINT NOT NULL,
	event_type        TEXT NOT NULL,
	schema_version    INT NOT NULL,
	payload           BYTEA NOT NULL,
	metadata          JSONB,
	action_metadata   JSONB,
	at                TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (stream_identifier, event_version)
);

CREATE TABLE IF NOT EXISTS elfaes_snapshots (
	stream_identifier TEXT NOT NULL,
	version           BIGINT NOT NULL,
	name              TEXT NOT NULL DEFAULT '',
	data              BYTEA NOT NULL,
	aggregate_type    TEXT,
	PRIMARY KEY (stream_identifier, version, name)
);
`

// DocumentStore implements elfaes.DocumentStore over elfaes_documents.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore wraps pool.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore { return &DocumentStore{pool: pool} }

// Get fetches the document or fails with NotFound.
func (s *DocumentStore) Get(ctx context.Context, objectName, objectID string) (elfaes.ObjectDocument, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM elfaes_documents WHERE object_name = $1 AND object_id = $2`,
		objectName, objectID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return elfaes.ObjectDocument{}, elfaes.ErrDocumentNotFound(objectName, objectID)
	}
	if err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure,
			"could not query document", err)
	}
	var doc elfaes.ObjectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure,
			"could not decode document", err)
	}
	doc.PrevHash = doc.Hash
	return doc, nil
}

// GetOrCreate fetches the document, creating it transactionally on first access.
func (s *DocumentStore) GetOrCreate(ctx context.Context, objectName, objectID string) (elfaes.ObjectDocument, error) {
	doc, err := s.Get(ctx, objectName, objectID)
	if err == nil {
		return doc, nil
	}
	if !elfaeserr.Is(err, elfaeserr.KindNotFound) {
		return elfaes.ObjectDocument{}, err
	}

	fresh := elfaes.NewObjectDocument(objectName, objectID, objectID, "")
	raw, err := json.Marshal(fresh)
	if err != nil {
		return elfaes.ObjectDocument{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO elfaes_documents (object_name, object_id, hash, doc) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (object_name, object_id) DO NOTHING`,
		objectName, objectID, fresh.Hash, raw,
	)
	if err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure,
			"could not create document", err)
	}
	return s.Get(ctx, objectName, objectID)
}

// Set performs the compare-and-swap against the stored hash.
func (s *DocumentStore) Set(ctx context.Context, doc elfaes.ObjectDocument) (elfaes.ObjectDocument, error) {
	next, err := elfaes.WithNewHash(doc)
	if err != nil {
		return elfaes.ObjectDocument{}, err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return elfaes.ObjectDocument{}, err
	}

	var matchClause string
	args := []any{doc.ObjectName, doc.ObjectID, next.Hash, raw}
	if doc.PrevHash != elfaes.AnyHash {
		matchClause = " AND hash = $5"
		args = append(args, doc.PrevHash)
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE elfaes_documents SET hash = $3, doc = $4
		 WHERE object_name = $1 AND object_id = $2%s`, matchClause),
		args...,
	)
	if err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure,
			"could not update document", err)
	}
	if tag.RowsAffected() == 0 {
		stored, getErr := s.Get(ctx, doc.ObjectName, doc.ObjectID)
		actual := "<missing>"
		if getErr == nil {
			actual = stored.Hash
		}
		return elfaes.ObjectDocument{}, elfaes.ErrDocumentConflict(doc.ObjectName, doc.ObjectID, doc.PrevHash, actual)
	}
	return next, nil
}

var _ elfaes.DocumentStore = (*DocumentStore)(nil)

// DataStore implements elfaes.DataStore over elfaes_events, with
// gzip-compressed payloads.
type DataStore struct {
	pool *pgxpool.Pool
}

// NewDataStore wraps pool.
func NewDataStore(pool *pgxpool.Pool) *DataStore { return &DataStore{pool: pool} }

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Append appends events to doc.Active's stream inside one transaction.
// The primary key on (stream_identifier, event_version) rejects a
// duplicate event_version; a gap in event_version is not detected.
func (s *DataStore) Append(ctx context.Context, doc elfaes.ObjectDocument, events []elfaes.Event, opts elfaes.AppendOptions) error {
	if len(events) == 0 {
		return elfaes.ErrEmptyBatch()
	}
	if doc.Active.Terminated {
		return elfaes.ErrStreamTerminated(doc.Active.StreamIdentifier)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	streamID := doc.Active.StreamIdentifier
	now := time.Now()
	for _, e := range events {
		if !opts.PreserveTimestamp || e.At.IsZero() {
			e.At = now
		}
		payload, err := compress(e.Payload)
		if err != nil {
			return elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not compress payload", err)
		}
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		actionMetadata, err := json.Marshal(e.ActionMetadata)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO elfaes_events (stream_identifier, event_version, event_type, schema_version, payload, metadata, action_metadata, at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			streamID, e.EventVersion, e.EventType, e.SchemaVersion, payload, metadata, actionMetadata, e.At,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return elfaes.ErrConcurrencyConflictVersions(streamID, e.EventVersion, e.EventVersion)
			}
			return elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not insert event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not commit transaction", err)
	}
	return nil
}

// Read returns events in [opts.StartVersion, opts.UntilVersion], ascending.
func (s *DataStore) Read(ctx context.Context, doc elfaes.ObjectDocument, opts elfaes.ReadOptions) ([]elfaes.Event, error) {
	query := `
		SELECT event_version, event_type, schema_version, payload, metadata, action_metadata, at
		FROM elfaes_events
		WHERE stream_identifier = $1 AND event_version >= $2`
	args := []any{doc.Active.StreamIdentifier, opts.StartVersion}
	if opts.UntilVersion != nil {
		query += " AND event_version <= $3"
		args = append(args, *opts.UntilVersion)
	}
	query += " ORDER BY event_version ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not query events", err)
	}
	defer rows.Close()

	var out []elfaes.Event
	for rows.Next() {
		var e elfaes.Event
		var compressed []byte
		var metadata, actionMetadata []byte
		if err := rows.Scan(&e.EventVersion, &e.EventType, &e.SchemaVersion, &compressed, &metadata, &actionMetadata, &e.At); err != nil {
			return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not scan event", err)
		}
		raw, err := decompress(compressed)
		if err != nil {
			return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not decompress payload", err)
		}
		e.Payload = raw
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &e.Metadata)
		}
		if len(actionMetadata) > 0 && string(actionMetadata) != "null" {
			e.ActionMetadata = &elfaes.ActionMetadata{}
			_ = json.Unmarshal(actionMetadata, e.ActionMetadata)
		}
		out = append(out, e)
	}
	return out, nil
}

var _ elfaes.DataStore = (*DataStore)(nil)
