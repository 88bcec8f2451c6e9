package snapshot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elfaes-go/elfaes/policy/snapshot"
)

func TestPolicy_ShouldSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("disabled never snapshots", func(t *testing.T) {
		p := snapshot.None()
		assert.False(t, p.ShouldSnapshot(1000, 1000, "AnyEvent"))
	})

	t.Run("below minimum events never snapshots", func(t *testing.T) {
		p := snapshot.Policy{Enabled: true, MinEventsBeforeSnapshot: 10, Every: 1}
		assert.False(t, p.ShouldSnapshot(5, 5, ""))
	})

	t.Run("forcing event type triggers regardless of every", func(t *testing.T) {
		p := snapshot.Policy{
			Enabled:                 true,
			MinEventsBeforeSnapshot: 1,
			OnEvents:                map[string]struct{}{"OrderClosed": {}},
		}
		assert.True(t, p.ShouldSnapshot(10, 1, "OrderClosed"))
		assert.False(t, p.ShouldSnapshot(10, 1, "OrderOpened"))
	})

	t.Run("every triggers once threshold reached", func(t *testing.T) {
		p := snapshot.Policy{Enabled: true, MinEventsBeforeSnapshot: 1, Every: 5}
		assert.False(t, p.ShouldSnapshot(10, 4, ""))
		assert.True(t, p.ShouldSnapshot(10, 5, ""))
	})
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 2 * 7 * 24 * time.Hour},
		{"1m", 30 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
		{"3D", 3 * 24 * time.Hour},
	}
	for _, c := range cases {
		got, err := snapshot.ParseDuration(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := snapshot.ParseDuration("garbage")
	assert.Error(t, err)
	_, err = snapshot.ParseDuration("")
	assert.Error(t, err)
}

func TestPolicy_Cleanup(t *testing.T) {
	t.Parallel()
	now := time.Now()
	maxAge := 48 * time.Hour

	p := snapshot.Policy{KeepSnapshots: 2, MaxAge: &maxAge}
	snaps := []snapshot.Listed{
		{Version: 30, At: now},
		{Version: 20, At: now.Add(-1 * time.Hour)},
		{Version: 10, At: now.Add(-72 * time.Hour)},
		{Version: 5, At: now.Add(-96 * time.Hour)},
	}

	deleted := p.Cleanup(snaps)
	require.Len(t, deleted, 2)
	assert.Equal(t, int64(10), deleted[0].Version)
	assert.Equal(t, int64(5), deleted[1].Version)
}

func TestPolicy_Cleanup_RetainsSingleSnapshot(t *testing.T) {
	t.Parallel()
	p := snapshot.Policy{KeepSnapshots: 1}
	assert.Nil(t, p.Cleanup([]snapshot.Listed{{Version: 1}}))
	assert.Nil(t, p.Cleanup(nil))
}

func TestResolver_ResolutionOrder(t *testing.T) {
	t.Parallel()

	registered := snapshot.Policy{Every: 1, Enabled: true}
	overridden := snapshot.Policy{Every: 2, Enabled: true}
	def := snapshot.Policy{Every: 3, Enabled: true}

	r := snapshot.Resolver{
		Registered: map[string]snapshot.Policy{"Order": registered},
		Overrides:  map[string]snapshot.Policy{"Order": overridden, "order": overridden},
		Default:    &def,
	}

	assert.Equal(t, registered, r.Resolve("Order", "order", nil))

	r.Registered = nil
	assert.Equal(t, overridden, r.Resolve("Order", "order", nil))

	r.Overrides = nil
	assert.Equal(t, def, r.Resolve("Order", "order", nil))

	r.Default = nil
	assert.Equal(t, snapshot.None(), r.Resolve("Order", "order", nil))
}

type fakeAggregateWithPolicy struct{ policy snapshot.Policy }

func (f fakeAggregateWithPolicy) SnapshotPolicy() snapshot.Policy { return f.policy }

func TestResolver_TypeAttributeStep(t *testing.T) {
	t.Parallel()
	attrPolicy := snapshot.Policy{Every: 7, Enabled: true}
	r := snapshot.Resolver{}
	got := r.Resolve("Order", "order", fakeAggregateWithPolicy{policy: attrPolicy})
	assert.Equal(t, attrPolicy, got)
}
