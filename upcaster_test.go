package elfaes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	elfaes "github.com/elfaes-go/elfaes"
)

func v1to2() elfaes.Upcaster {
	return elfaes.UpcasterFunc{
		Can: func(e elfaes.Event) bool { return e.EventType == "OrderOpened" && e.SchemaVersion == 1 },
		Up: func(e elfaes.Event) ([]elfaes.Event, error) {
			return []elfaes.Event{{
				EventType: "OrderOpened", SchemaVersion: 2, EventVersion: e.EventVersion,
				Payload: []byte(`{"id":"upgraded"}`),
			}}, nil
		},
	}
}

func TestPipeline_AppliesFixedPoint(t *testing.T) {
	t.Parallel()
	p := elfaes.NewPipeline()
	p.Register(v1to2())

	events := []elfaes.Event{{EventType: "OrderOpened", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")}}
	out, err := p.Apply(events)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].SchemaVersion)
}

func TestPipeline_NoMatchingUpcasterPassesThrough(t *testing.T) {
	t.Parallel()
	p := elfaes.NewPipeline()
	p.Register(v1to2())

	events := []elfaes.Event{{EventType: "OrderClosed", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")}}
	out, err := p.Apply(events)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, events[0], out[0])
}

func TestPipeline_FansOutIntoMultipleEvents(t *testing.T) {
	t.Parallel()
	p := elfaes.NewPipeline()
	p.Register(elfaes.UpcasterFunc{
		Can: func(e elfaes.Event) bool { return e.EventType == "LineAdded" && e.SchemaVersion == 1 },
		Up: func(e elfaes.Event) ([]elfaes.Event, error) {
			return []elfaes.Event{
				{EventType: "LineAdded", SchemaVersion: 2, EventVersion: e.EventVersion, Payload: []byte(`{"n":1}`)},
				{EventType: "LineAdded", SchemaVersion: 2, EventVersion: e.EventVersion, Payload: []byte(`{"n":2}`)},
			}, nil
		},
	})

	events := []elfaes.Event{{EventType: "LineAdded", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")}}
	out, err := p.Apply(events)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestPipeline_FanOutSiblingsEachReceiveFurtherUpcasting(t *testing.T) {
	t.Parallel()
	p := elfaes.NewPipeline()
	// U1 splits one OrderCreated v1 into three LineAdded v2 siblings.
	p.Register(elfaes.UpcasterFunc{
		Can: func(e elfaes.Event) bool { return e.EventType == "OrderCreated" && e.SchemaVersion == 1 },
		Up: func(e elfaes.Event) ([]elfaes.Event, error) {
			return []elfaes.Event{
				{EventType: "LineAdded", SchemaVersion: 2, EventVersion: e.EventVersion, Payload: []byte(`{"n":1}`)},
				{EventType: "LineAdded", SchemaVersion: 2, EventVersion: e.EventVersion, Payload: []byte(`{"n":2}`)},
				{EventType: "LineAdded", SchemaVersion: 2, EventVersion: e.EventVersion, Payload: []byte(`{"n":3}`)},
			}, nil
		},
	})
	// U2 claims every sibling independently: LineAdded v2 -> v3.
	p.Register(elfaes.UpcasterFunc{
		Can: func(e elfaes.Event) bool { return e.EventType == "LineAdded" && e.SchemaVersion == 2 },
		Up: func(e elfaes.Event) ([]elfaes.Event, error) {
			return []elfaes.Event{{EventType: "LineAdded", SchemaVersion: 3, EventVersion: e.EventVersion, Payload: e.Payload}}, nil
		},
	})

	events := []elfaes.Event{{EventType: "OrderCreated", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")}}
	out, err := p.Apply(events)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, e := range out {
		assert.Equal(t, "LineAdded", e.EventType)
		assert.Equal(t, 3, e.SchemaVersion)
	}
}

func TestPipeline_DetectsCycles(t *testing.T) {
	t.Parallel()
	p := elfaes.NewPipeline()
	p.Register(elfaes.UpcasterFunc{
		Can: func(e elfaes.Event) bool { return e.EventType == "Loop" },
		Up: func(e elfaes.Event) ([]elfaes.Event, error) {
			return []elfaes.Event{{EventType: "Loop", SchemaVersion: e.SchemaVersion, EventVersion: e.EventVersion, Payload: e.Payload}}, nil
		},
	})

	events := []elfaes.Event{{EventType: "Loop", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")}}
	_, err := p.Apply(events)
	assert.Error(t, err)
}

func TestPipeline_EmptyPipelinePassesThroughUnchanged(t *testing.T) {
	t.Parallel()
	p := elfaes.NewPipeline()
	events := []elfaes.Event{{EventType: "Anything", SchemaVersion: 1, EventVersion: 0, Payload: []byte("{}")}}
	out, err := p.Apply(events)
	require.NoError(t, err)
	assert.Equal(t, events, out)
}
