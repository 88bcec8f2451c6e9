// Package config holds typed option structs for the data store,
// snapshot, and retention configuration surfaces named in spec.md §6,
// assembled with the teacher's functional-options pattern.
package config

import (
	"time"

	"github.com/elfaes-go/elfaes/policy/retention"
	"github.com/elfaes-go/elfaes/policy/snapshot"
)

// DataStoreConfig is the top-level wiring for a Stream's storage backend.
type DataStoreConfig struct {
	DefaultDataStore    string // backend identifier: "mem", "pgx", "sqlite"
	AutoCreate          bool   // create the underlying schema/table if missing
	EnableStreamChunks  bool
	DefaultChunkSize    int
	SnapshotTimeout     time.Duration
	SnapshotOverrides   map[string]snapshot.Policy  // objectName -> policy
	DefaultSnapshot     snapshot.Policy
	RetentionBatchSize  int
	RetentionConcurrent int
	RetentionPolicies   map[string]retention.Policy // objectName -> policy
}

// Option mutates a DataStoreConfig during construction.
type Option func(*DataStoreConfig)

// New builds a DataStoreConfig from its defaults plus opts, in order.
func New(opts ...Option) DataStoreConfig {
	c := DataStoreConfig{
		DefaultDataStore:    "mem",
		AutoCreate:          true,
		EnableStreamChunks:  false,
		DefaultChunkSize:    1000,
		SnapshotTimeout:     5 * time.Second,
		SnapshotOverrides:   map[string]snapshot.Policy{},
		DefaultSnapshot:     snapshot.Default(),
		RetentionBatchSize:  100,
		RetentionConcurrent: 1,
		RetentionPolicies:   map[string]retention.Policy{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDefaultDataStore selects the backend identifier used when a
// Stream is opened without an explicit store override.
func WithDefaultDataStore(name string) Option {
	return func(c *DataStoreConfig) { c.DefaultDataStore = name }
}

// WithAutoCreate toggles whether a backend provisions its own schema
// on first use.
func WithAutoCreate(enabled bool) Option {
	return func(c *DataStoreConfig) { c.AutoCreate = enabled }
}

// WithStreamChunks enables chunked streams at the given chunk size.
func WithStreamChunks(enabled bool, size int) Option {
	return func(c *DataStoreConfig) {
		c.EnableStreamChunks = enabled
		c.DefaultChunkSize = size
	}
}

// WithSnapshotTimeout bounds inline snapshot creation during commit (§4.6 step 7).
func WithSnapshotTimeout(d time.Duration) Option {
	return func(c *DataStoreConfig) { c.SnapshotTimeout = d }
}

// WithSnapshotPolicy registers a configuration-level snapshot policy
// override for objectName — resolution step 2 in spec §4.7.
func WithSnapshotPolicy(objectName string, p snapshot.Policy) Option {
	return func(c *DataStoreConfig) {
		if c.SnapshotOverrides == nil {
			c.SnapshotOverrides = map[string]snapshot.Policy{}
		}
		c.SnapshotOverrides[objectName] = p
	}
}

// WithDefaultSnapshotPolicy sets the resolution step-4 fallback policy.
func WithDefaultSnapshotPolicy(p snapshot.Policy) Option {
	return func(c *DataStoreConfig) { c.DefaultSnapshot = p }
}

// WithRetentionPolicy registers a retention policy for objectName.
func WithRetentionPolicy(objectName string, p retention.Policy) Option {
	return func(c *DataStoreConfig) {
		if c.RetentionPolicies == nil {
			c.RetentionPolicies = map[string]retention.Policy{}
		}
		c.RetentionPolicies[objectName] = p
	}
}

// WithRetentionDiscovery sets pagination and concurrency knobs for
// the retention engine's discovery pass.
func WithRetentionDiscovery(batchSize, concurrency int) Option {
	return func(c *DataStoreConfig) {
		c.RetentionBatchSize = batchSize
		c.RetentionConcurrent = concurrency
	}
}

// SnapshotResolver adapts this config into a snapshot.Resolver with
// this config's overrides and default, leaving Registered to the
// caller (resolution step 1 is a runtime concern, not a config one).
func (c DataStoreConfig) SnapshotResolver() snapshot.Resolver {
	overrides := make(map[string]snapshot.Policy, len(c.SnapshotOverrides))
	for k, v := range c.SnapshotOverrides {
		overrides[k] = v
	}
	def := c.DefaultSnapshot
	return snapshot.Resolver{Overrides: overrides, Default: &def}
}
