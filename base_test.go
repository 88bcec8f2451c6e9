package elfaes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	elfaes "github.com/elfaes-go/elfaes"
)

type counting struct {
	elfaes.Base
	applied int
}

func newCounting() *counting {
	c := &counting{}
	c.Init(func(elfaes.Event) { c.applied++ })
	return c
}

func TestBase_Apply_InvokesApplierAndAdvancesVersion(t *testing.T) {
	t.Parallel()
	c := newCounting()
	c.Apply(elfaes.Event{EventType: "X"})
	c.Apply(elfaes.Event{EventType: "X"})

	assert.Equal(t, 2, c.applied)
	assert.Equal(t, int64(2), c.Version())
}

func TestBase_SetVersion_OverridesCounterWithoutInvokingApplier(t *testing.T) {
	t.Parallel()
	c := newCounting()
	c.SetVersion(10)

	assert.Equal(t, int64(10), c.Version())
	assert.Equal(t, 0, c.applied)
}

func TestBase_SetApplier_ReplacesStateTransition(t *testing.T) {
	t.Parallel()
	c := newCounting()
	var replaced bool
	c.SetApplier(func(elfaes.Event) { replaced = true })

	c.Apply(elfaes.Event{EventType: "X"})
	assert.True(t, replaced)
	assert.Equal(t, 0, c.applied)
}

var _ elfaes.Aggregate = (*counting)(nil)
