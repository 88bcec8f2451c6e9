// Package redisdoc is a Redis-backed DocumentStore, SnapshotStore, and
// pair of tag stores. Documents are stored as JSON strings keyed by
// identity; tag indexes use sorted sets so List returns insertion
// order without a secondary sort.
package redisdoc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	elfaes "github.com/elfaes-go/elfaes"
	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// Store bundles the Redis-backed implementations of DocumentStore,
// SnapshotStore, DocumentTagStore, and StreamTagStore.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New wraps client. prefix namespaces every key this store touches
// (defaulting to "elfaes:"), so one Redis database can host several
// independent deployments.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "elfaes:"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) docKey(objectName, objectID string) string {
	return fmt.Sprintf("%sdoc:%s:%s", s.prefix, objectName, objectID)
}

func (s *Store) snapshotKey(streamIdentifier string) string {
	return fmt.Sprintf("%ssnap:%s", s.prefix, streamIdentifier)
}

func (s *Store) snapshotBlobKey(streamIdentifier string, version int64, name string) string {
	return fmt.Sprintf("%ssnapblob:%s:%d:%s", s.prefix, streamIdentifier, version, name)
}

func (s *Store) docTagKey(tag string) string    { return fmt.Sprintf("%sdoctag:%s", s.prefix, tag) }
func (s *Store) streamTagKey(tag string) string { return fmt.Sprintf("%sstreamtag:%s", s.prefix, tag) }

// Get fetches the document or fails with NotFound.
func (s *Store) Get(ctx context.Context, objectName, objectID string) (elfaes.ObjectDocument, error) {
	raw, err := s.client.Get(ctx, s.docKey(objectName, objectID)).Bytes()
	if err == redis.Nil {
		return elfaes.ObjectDocument{}, elfaes.ErrDocumentNotFound(objectName, objectID)
	}
	if err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not get document", err)
	}
	var doc elfaes.ObjectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not decode document", err)
	}
	doc.PrevHash = doc.Hash
	return doc, nil
}

// GetOrCreate fetches the document, creating it on first access via SETNX.
func (s *Store) GetOrCreate(ctx context.Context, objectName, objectID string) (elfaes.ObjectDocument, error) {
	fresh := elfaes.NewObjectDocument(objectName, objectID, objectID, "")
	raw, err := json.Marshal(fresh)
	if err != nil {
		return elfaes.ObjectDocument{}, err
	}
	ok, err := s.client.SetNX(ctx, s.docKey(objectName, objectID), raw, 0).Result()
	if err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not create document", err)
	}
	if ok {
		return fresh, nil
	}
	return s.Get(ctx, objectName, objectID)
}

var setIfHashMatches = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
local storedHash = "*"
if stored then
	local doc = cjson.decode(stored)
	storedHash = doc["hash"]
end
if ARGV[2] ~= "*" and ARGV[2] ~= storedHash then
	return {storedHash, 0}
end
redis.call("SET", KEYS[1], ARGV[1])
return {storedHash, 1}
`)

// Set performs the compare-and-swap against the stored hash, via a
// Lua script so the read-compare-write is atomic.
func (s *Store) Set(ctx context.Context, doc elfaes.ObjectDocument) (elfaes.ObjectDocument, error) {
	next, err := elfaes.WithNewHash(doc)
	if err != nil {
		return elfaes.ObjectDocument{}, err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return elfaes.ObjectDocument{}, err
	}

	res, err := setIfHashMatches.Run(ctx, s.client, []string{s.docKey(doc.ObjectName, doc.ObjectID)}, string(raw), doc.PrevHash).Result()
	if err != nil {
		return elfaes.ObjectDocument{}, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not run CAS script", err)
	}
	fields, ok := res.([]any)
	if !ok || len(fields) != 2 {
		return elfaes.ObjectDocument{}, elfaeserr.New(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "unexpected CAS script result shape")
	}
	storedHash, _ := fields[0].(string)
	applied, _ := fields[1].(int64)
	if applied == 0 {
		return elfaes.ObjectDocument{}, elfaes.ErrDocumentConflict(doc.ObjectName, doc.ObjectID, doc.PrevHash, storedHash)
	}
	return next, nil
}

var _ elfaes.DocumentStore = (*Store)(nil)

// Put upserts a snapshot, recording it in the stream's sorted set keyed by version.
func (s *Store) Put(ctx context.Context, doc elfaes.ObjectDocument, snap elfaes.Snapshot) error {
	blob, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.snapshotBlobKey(doc.Active.StreamIdentifier, snap.Version, snap.Name), blob, 0)
	pipe.ZAdd(ctx, s.snapshotKey(doc.Active.StreamIdentifier), redis.Z{
		Score:  float64(snap.Version),
		Member: fmt.Sprintf("%d:%s", snap.Version, snap.Name),
	})
	_, err = pipe.Exec(ctx)
	if err != nil {
		return elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not put snapshot", err)
	}
	return nil
}

// GetSnapshot returns the snapshot at version/name, or ok=false if absent.
func (s *Store) GetSnapshot(ctx context.Context, doc elfaes.ObjectDocument, version int64, name string) (elfaes.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.snapshotBlobKey(doc.Active.StreamIdentifier, version, name)).Bytes()
	if err == redis.Nil {
		return elfaes.Snapshot{}, false, nil
	}
	if err != nil {
		return elfaes.Snapshot{}, false, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not get snapshot", err)
	}
	var snap elfaes.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return elfaes.Snapshot{}, false, err
	}
	return snap, true, nil
}

// List returns snapshots ordered by Version descending.
func (s *Store) List(ctx context.Context, doc elfaes.ObjectDocument) ([]elfaes.Snapshot, error) {
	members, err := s.client.ZRevRange(ctx, s.snapshotKey(doc.Active.StreamIdentifier), 0, -1).Result()
	if err != nil {
		return nil, elfaeserr.Wrap(elfaeserr.CodeBackend, elfaeserr.KindBackendFailure, "could not list snapshots", err)
	}
	var out []elfaes.Snapshot
	for _, m := range members {
		versionPart, name, _ := strings.Cut(m, ":")
		version, err := strconv.ParseInt(versionPart, 10, 64)
		if err != nil {
			continue
		}
		snap, ok, err := s.GetSnapshot(ctx, doc, version, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

// DeleteMany removes the given versions, returning the count deleted.
func (s *Store) DeleteMany(ctx context.Context, doc elfaes.ObjectDocument, versions []int64) (int, error) {
	deleted := 0
	for _, v := range versions {
		members, err := s.client.ZRangeByScore(ctx, s.snapshotKey(doc.Active.StreamIdentifier), &redis.ZRangeBy{
			Min: fmt.Sprintf("%d", v), Max: fmt.Sprintf("%d", v),
		}).Result()
		if err != nil {
			return deleted, err
		}
		for _, m := range members {
			pipe := s.client.TxPipeline()
			pipe.ZRem(ctx, s.snapshotKey(doc.Active.StreamIdentifier), m)
			var version int64
			var name string
			_, _ = fmt.Sscanf(m, "%d:%s", &version, &name)
			pipe.Del(ctx, s.snapshotBlobKey(doc.Active.StreamIdentifier, version, name))
			if _, err := pipe.Exec(ctx); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

// Snapshots returns an elfaes.SnapshotStore view over s.
func (s *Store) Snapshots() elfaes.SnapshotStore { return snapshotAdapter{s: s} }

type snapshotAdapter struct{ s *Store }

func (a snapshotAdapter) Put(ctx context.Context, doc elfaes.ObjectDocument, snap elfaes.Snapshot) error {
	return a.s.Put(ctx, doc, snap)
}
func (a snapshotAdapter) Get(ctx context.Context, doc elfaes.ObjectDocument, version int64, name string) (elfaes.Snapshot, bool, error) {
	return a.s.GetSnapshot(ctx, doc, version, name)
}
func (a snapshotAdapter) List(ctx context.Context, doc elfaes.ObjectDocument) ([]elfaes.Snapshot, error) {
	return a.s.List(ctx, doc)
}
func (a snapshotAdapter) DeleteMany(ctx context.Context, doc elfaes.ObjectDocument, versions []int64) (int, error) {
	return a.s.DeleteMany(ctx, doc, versions)
}

var _ elfaes.SnapshotStore = snapshotAdapter{}

// DocumentTags returns an elfaes.DocumentTagStore view over s, backed
// by a sorted set per tag ordered by insertion order.
func (s *Store) DocumentTags() elfaes.DocumentTagStore { return docTagAdapter{s: s} }

type docTagAdapter struct{ s *Store }

func tagMember(id elfaes.ObjectIdentifier) string {
	return fmt.Sprintf("%s:%s", id.ObjectName, id.ObjectID)
}

func (a docTagAdapter) Put(ctx context.Context, tag string, id elfaes.ObjectIdentifier) error {
	seq, err := a.s.nextSeq(ctx, tag)
	if err != nil {
		return err
	}
	return a.s.client.ZAdd(ctx, a.s.docTagKey(tag), redis.Z{Score: float64(seq), Member: tagMember(id)}).Err()
}

func (a docTagAdapter) List(ctx context.Context, tag string) ([]elfaes.ObjectIdentifier, error) {
	members, err := a.s.client.ZRange(ctx, a.s.docTagKey(tag), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]elfaes.ObjectIdentifier, 0, len(members))
	for _, m := range members {
		if objectName, objectID, ok := strings.Cut(m, ":"); ok {
			out = append(out, elfaes.ObjectIdentifier{ObjectName: objectName, ObjectID: objectID})
		}
	}
	return out, nil
}

func (a docTagAdapter) Delete(ctx context.Context, tag string, id elfaes.ObjectIdentifier) error {
	return a.s.client.ZRem(ctx, a.s.docTagKey(tag), tagMember(id)).Err()
}

var _ elfaes.DocumentTagStore = docTagAdapter{}

// StreamTags returns an elfaes.StreamTagStore view over s.
func (s *Store) StreamTags() elfaes.StreamTagStore { return streamTagAdapter{s: s} }

type streamTagAdapter struct{ s *Store }

func (a streamTagAdapter) Put(ctx context.Context, tag, streamIdentifier string) error {
	seq, err := a.s.nextSeq(ctx, tag)
	if err != nil {
		return err
	}
	return a.s.client.ZAdd(ctx, a.s.streamTagKey(tag), redis.Z{Score: float64(seq), Member: streamIdentifier}).Err()
}

func (a streamTagAdapter) List(ctx context.Context, tag string) ([]string, error) {
	return a.s.client.ZRange(ctx, a.s.streamTagKey(tag), 0, -1).Result()
}

func (a streamTagAdapter) Delete(ctx context.Context, tag, streamIdentifier string) error {
	return a.s.client.ZRem(ctx, a.s.streamTagKey(tag), streamIdentifier).Err()
}

var _ elfaes.StreamTagStore = streamTagAdapter{}

// nextSeq returns a monotonically increasing score for tag's sorted
// set, so List preserves insertion order without depending on wall-clock time.
func (s *Store) nextSeq(ctx context.Context, tag string) (int64, error) {
	return s.client.Incr(ctx, fmt.Sprintf("%sseq:%s", s.prefix, tag)).Result()
}
