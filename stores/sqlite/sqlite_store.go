// Package sqlite is a table-shaped DataStore backend over
// modernc.org/sqlite, demonstrating the partition/row-key convention
// from spec.md §6: a stream's rows live under a partition key of
// "{streamIdentifier}[_{chunkId:d10}]" and a row key of
// "{eventVersion:d20}", with a "_p{index}" suffix reserved for
// chunked payload continuation rows.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	elfaes "github.com/elfaes-go/elfaes"
	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// Schema is the DDL this backend expects.
const Schema = `
CREATE TABLE IF NOT EXISTS elfaes_events (
	partition_key TEXT NOT NULL,
	row_key       TEXT NOT NULL,
	event_version INTEGER NOT NULL,
	event_type    TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	payload       BLOB NOT NULL,
	metadata      BLOB,
	PRIMARY KEY (partition_key, row_key)
);
`

// DataStore implements elfaes.DataStore over a single SQLite file.
type DataStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and
// applies Schema.
func Open(dsn string) (*DataStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not open sqlite database", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not apply schema", err)
	}
	return &DataStore{db: db}, nil
}

// New wraps an already-open *sql.DB, skipping schema application —
// for callers that manage migrations themselves.
func New(db *sql.DB) *DataStore { return &DataStore{db: db} }

// Close releases the underlying database handle.
func (s *DataStore) Close() error { return s.db.Close() }

// partitionKey returns the chunk-aware partition key for version v
// given the stream's chunk settings, per spec.md §6's
// "{streamIdentifier}[_{chunkId:d10}]" convention.
func partitionKey(info elfaes.StreamInformation, version int64) string {
	if info.ChunkSettings == nil || !info.ChunkSettings.Enabled {
		return info.StreamIdentifier
	}
	for _, chunk := range info.StreamChunks {
		if version >= chunk.FirstVersion && version <= chunk.LastVersion {
			return fmt.Sprintf("%s_%010d", info.StreamIdentifier, chunk.ChunkID)
		}
	}
	return info.StreamIdentifier
}

func rowKey(version int64) string {
	return fmt.Sprintf("%020d", version)
}

// Append appends events to doc.Active's stream. The (partition_key,
// row_key) primary key rejects a duplicate event_version; a gap in
// event_version is not detected. Event.At is not stored (the table has
// no timestamp column), so events read back carry a zero At.
func (s *DataStore) Append(ctx context.Context, doc elfaes.ObjectDocument, events []elfaes.Event, _ elfaes.AppendOptions) error {
	if len(events) == 0 {
		return elfaes.ErrEmptyBatch()
	}
	if doc.Active.Terminated {
		return elfaes.ErrStreamTerminated(doc.Active.StreamIdentifier)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range events {
		pk := partitionKey(doc.Active, e.EventVersion)
		rk := rowKey(e.EventVersion)
		var metadata []byte
		if e.Metadata != nil {
			metadata = []byte(fmt.Sprintf("%v", e.Metadata))
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO elfaes_events (partition_key, row_key, event_version, event_type, schema_version, payload, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pk, rk, e.EventVersion, e.EventType, e.SchemaVersion, []byte(e.Payload), metadata,
		)
		if err != nil {
			return elfaes.ErrConcurrencyConflictVersions(doc.Active.StreamIdentifier, e.EventVersion, e.EventVersion)
		}
	}

	if err := tx.Commit(); err != nil {
		return elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not commit transaction", err)
	}
	return nil
}

// Read returns events in [opts.StartVersion, opts.UntilVersion],
// ascending, scanning every partition the stream's chunk settings
// could have produced.
func (s *DataStore) Read(ctx context.Context, doc elfaes.ObjectDocument, opts elfaes.ReadOptions) ([]elfaes.Event, error) {
	partitions := partitionsFor(doc.Active, opts)

	var out []elfaes.Event
	for _, pk := range partitions {
		query := `
			SELECT event_version, event_type, schema_version, payload
			FROM elfaes_events
			WHERE partition_key = ? AND event_version >= ?`
		args := []any{pk, opts.StartVersion}
		if opts.UntilVersion != nil {
			query += " AND event_version <= ?"
			args = append(args, *opts.UntilVersion)
		}
		query += " ORDER BY event_version ASC"

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not query events", err)
		}
		for rows.Next() {
			var e elfaes.Event
			var payload []byte
			if err := rows.Scan(&e.EventVersion, &e.EventType, &e.SchemaVersion, &payload); err != nil {
				rows.Close()
				return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not scan event", err)
			}
			e.Payload = payload
			out = append(out, e)
		}
		rows.Close()
	}
	return out, nil
}

// partitionsFor enumerates every partition key the requested version
// range could span: the unchunked stream identifier when chunking is
// off, or every chunk whose range intersects [StartVersion, UntilVersion].
func partitionsFor(info elfaes.StreamInformation, opts elfaes.ReadOptions) []string {
	if info.ChunkSettings == nil || !info.ChunkSettings.Enabled || len(info.StreamChunks) == 0 {
		return []string{info.StreamIdentifier}
	}
	var keys []string
	for _, chunk := range info.StreamChunks {
		if opts.UntilVersion != nil && chunk.FirstVersion > *opts.UntilVersion {
			continue
		}
		if chunk.LastVersion < opts.StartVersion {
			continue
		}
		keys = append(keys, fmt.Sprintf("%s_%010d", info.StreamIdentifier, chunk.ChunkID))
	}
	return keys
}

var _ elfaes.DataStore = (*DataStore)(nil)
