package elfaes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	elfaes "github.com/elfaes-go/elfaes"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Parallel()
	r := elfaes.NewRegistry()
	info := elfaes.TypeInfo{Factory: func() any { return &struct{}{} }, CodecHint: "json"}
	require.NoError(t, r.Register("OrderOpened", 1, info))

	got, ok := r.Resolve("OrderOpened", 1)
	require.True(t, ok)
	assert.Equal(t, info.CodecHint, got.CodecHint)

	_, ok = r.Resolve("Unknown", 1)
	assert.False(t, ok)
}

func TestRegistry_Register_IdempotentForEqualInfo(t *testing.T) {
	t.Parallel()
	r := elfaes.NewRegistry()
	info := elfaes.TypeInfo{CodecHint: "json"}
	require.NoError(t, r.Register("OrderOpened", 1, info))
	assert.NoError(t, r.Register("OrderOpened", 1, info))
}

func TestRegistry_Register_ConflictsOnDifferentInfo(t *testing.T) {
	t.Parallel()
	r := elfaes.NewRegistry()
	require.NoError(t, r.Register("OrderOpened", 1, elfaes.TypeInfo{CodecHint: "json"}))
	err := r.Register("OrderOpened", 1, elfaes.TypeInfo{CodecHint: "proto"})
	assert.Error(t, err)
}

func TestRegistry_DefaultsSchemaVersionToOne(t *testing.T) {
	t.Parallel()
	r := elfaes.NewRegistry()
	require.NoError(t, r.Register("OrderOpened", 0, elfaes.TypeInfo{CodecHint: "json"}))
	_, ok := r.Resolve("OrderOpened", 1)
	assert.True(t, ok)
}

func TestRegistry_PipelineIsSharedAcrossCalls(t *testing.T) {
	t.Parallel()
	r := elfaes.NewRegistry()
	r.RegisterUpcaster(elfaes.UpcasterFunc{
		Can: func(e elfaes.Event) bool { return e.SchemaVersion == 1 },
		Up: func(e elfaes.Event) ([]elfaes.Event, error) {
			return []elfaes.Event{{EventType: e.EventType, SchemaVersion: 2, EventVersion: e.EventVersion, Payload: e.Payload}}, nil
		},
	})

	out, err := r.Pipeline().Apply([]elfaes.Event{{EventType: "X", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")}})
	require.NoError(t, err)
	assert.Equal(t, 2, out[0].SchemaVersion)
}
