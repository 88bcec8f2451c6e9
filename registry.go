package elfaes

import (
	"sync"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// TypeInfo describes a registered (eventName, schemaVersion) payload
// type. Factory returns a zero-value instance a caller can unmarshal
// the raw payload into; CodecHint is an optional serialization
// hint (the registry itself never serializes — payload stays raw JSON).
type TypeInfo struct {
	Factory   func() any
	CodecHint string
}

func (t TypeInfo) equal(other TypeInfo) bool {
	return t.CodecHint == other.CodecHint
}

type registryKey struct {
	eventName     string
	schemaVersion int
}

// Registry maps (eventName, schemaVersion) to TypeInfo and owns the
// upcaster pipeline (C3) seeded for one aggregate type. Lookup is
// O(1); mutation (Register) is rare and uses a plain RWMutex per the
// "effectively read-only after setup" resource policy.
type Registry struct {
	mu       sync.RWMutex
	types    map[registryKey]TypeInfo
	pipeline *Pipeline
}

// NewRegistry returns an empty Registry with an empty upcaster pipeline.
func NewRegistry() *Registry {
	return &Registry{
		types:    make(map[registryKey]TypeInfo),
		pipeline: NewPipeline(),
	}
}

// Register adds a (eventName, schemaVersion) -> TypeInfo mapping.
// Re-registering the same eventName/schemaVersion with an equal
// TypeInfo succeeds (idempotent); a conflicting re-registration fails
// SchemaConflict.
func (r *Registry) Register(eventName string, schemaVersion int, info TypeInfo) error {
	if schemaVersion <= 0 {
		schemaVersion = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{eventName, schemaVersion}
	if existing, ok := r.types[key]; ok {
		if existing.equal(info) {
			return nil
		}
		return elfaeserr.New(elfaeserr.CodeSchemaConflict, elfaeserr.KindSchemaConflict,
			"conflicting registration for event "+eventName)
	}
	r.types[key] = info
	return nil
}

// Resolve looks up the TypeInfo for (eventName, schemaVersion).
func (r *Registry) Resolve(eventName string, schemaVersion int) (TypeInfo, bool) {
	if schemaVersion <= 0 {
		schemaVersion = 1
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.types[registryKey{eventName, schemaVersion}]
	return info, ok
}

// RegisterUpcaster adds u to the registry's upcaster pipeline.
func (r *Registry) RegisterUpcaster(u Upcaster) {
	r.pipeline.Register(u)
}

// Pipeline returns the registry's upcaster pipeline, for callers that
// read events directly without going through Stream.Read.
func (r *Registry) Pipeline() *Pipeline {
	return r.pipeline
}
