package retention_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elfaes-go/elfaes/policy/retention"
)

func TestPolicy_CheckViolation(t *testing.T) {
	t.Parallel()
	maxAge := 30 * 24 * time.Hour
	p := retention.Policy{Enabled: true, MaxAge: &maxAge, MaxEvents: 1000}

	assert.Equal(t, retention.NoViolation, p.CheckViolation(10, time.Now()))
	assert.Equal(t, retention.ExceedsMaxAge, p.CheckViolation(10, time.Now().Add(-31*24*time.Hour)))
	assert.Equal(t, retention.ExceedsMaxEvents, p.CheckViolation(1001, time.Now()))
	assert.Equal(t, retention.ExceedsBoth, p.CheckViolation(1001, time.Now().Add(-31*24*time.Hour)))

	disabled := retention.Policy{Enabled: false, MaxEvents: 1}
	assert.Equal(t, retention.NoViolation, disabled.CheckViolation(999, time.Now().Add(-999*24*time.Hour)))
}

type fakeSource struct {
	pages map[string][][]retention.StreamMetadata
}

func (f *fakeSource) ListStreams(_ context.Context, objectName, cursor string, _ int) ([]retention.StreamMetadata, string, error) {
	pages := f.pages[objectName]
	idx := 0
	if cursor != "" {
		idx = cursorIndex(cursor)
	}
	if idx >= len(pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(pages) {
		next = cursorFor(idx + 1)
	}
	return pages[idx], next, nil
}

func cursorFor(i int) string { return string(rune('a' + i)) }
func cursorIndex(c string) int {
	if c == "" {
		return 0
	}
	return int(c[0] - 'a')
}

func TestDiscoverer_DiscoverViolations(t *testing.T) {
	t.Parallel()
	src := &fakeSource{pages: map[string][][]retention.StreamMetadata{
		"Order": {
			{
				{StreamID: "order-1", EventCount: 2000, OldestEventDate: time.Now()},
				{StreamID: "order-2", EventCount: 10, OldestEventDate: time.Now()},
			},
			{
				{StreamID: "order-3", EventCount: 5000, OldestEventDate: time.Now()},
			},
		},
	}}

	d := retention.Discoverer{
		Source:   src,
		PageSize: 2,
		Policies: map[string]retention.Policy{
			"Order": {Enabled: true, MaxEvents: 1000, Action: retention.FlagForReview},
		},
	}

	violations, err := d.DiscoverViolations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, violations, 2)
	assert.Equal(t, "order-1", violations[0].StreamID)
	assert.Equal(t, "order-3", violations[1].StreamID)
}

func TestDiscoverer_DiscoverViolations_RespectsMaxResults(t *testing.T) {
	t.Parallel()
	src := &fakeSource{pages: map[string][][]retention.StreamMetadata{
		"Order": {
			{
				{StreamID: "order-1", EventCount: 2000},
				{StreamID: "order-2", EventCount: 2000},
			},
		},
	}}
	d := retention.Discoverer{
		Source:   src,
		Policies: map[string]retention.Policy{"Order": {Enabled: true, MaxEvents: 1, Action: retention.FlagForReview}},
	}
	violations, err := d.DiscoverViolations(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, violations, 1)
}

func TestDiscoverer_DiscoverViolations_CancelsCooperatively(t *testing.T) {
	t.Parallel()
	src := &fakeSource{pages: map[string][][]retention.StreamMetadata{
		"Order": {{{StreamID: "order-1", EventCount: 2000}}},
	}}
	d := retention.Discoverer{
		Source:   src,
		Policies: map[string]retention.Policy{"Order": {Enabled: true, MaxEvents: 1, Action: retention.FlagForReview}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.DiscoverViolations(ctx, 0)
	assert.Error(t, err)
}

type recordingMigrator struct {
	called bool
	err    error
}

func (m *recordingMigrator) Migrate(_ context.Context, _ retention.RetentionViolation, _ bool) error {
	m.called = true
	return m.err
}

type recordingDeleter struct{ called bool }

func (d *recordingDeleter) Delete(_ context.Context, _ retention.RetentionViolation, _ int) error {
	d.called = true
	return nil
}

func TestProcessViolation_DispatchesByAction(t *testing.T) {
	t.Parallel()

	migrator := &recordingMigrator{}
	v := retention.RetentionViolation{Policy: retention.Policy{Action: retention.Migrate}}
	result := retention.ProcessViolation(context.Background(), v, migrator, nil)
	assert.True(t, migrator.called)
	assert.True(t, result.Succeeded)

	deleter := &recordingDeleter{}
	v.Policy.Action = retention.Delete
	result = retention.ProcessViolation(context.Background(), v, nil, deleter)
	assert.True(t, deleter.called)
	assert.True(t, result.Succeeded)

	v.Policy.Action = retention.FlagForReview
	result = retention.ProcessViolation(context.Background(), v, nil, nil)
	assert.True(t, result.Succeeded)

	v.Policy.Action = retention.Migrate
	result = retention.ProcessViolation(context.Background(), v, nil, nil)
	assert.False(t, result.Succeeded)
	assert.Error(t, result.Err)
}
