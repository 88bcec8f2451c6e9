package elfaes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	elfaes "github.com/elfaes-go/elfaes"
)

func TestNewObjectDocument_StartsWithAnyHashSentinel(t *testing.T) {
	t.Parallel()
	doc := elfaes.NewObjectDocument("Order", "1", "stream-1", "order")
	assert.Equal(t, elfaes.AnyHash, doc.Hash)
	assert.Equal(t, elfaes.AnyHash, doc.PrevHash)
	assert.Equal(t, elfaes.NoEvents, doc.Active.CurrentStreamVersion)
}

func TestComputeHash_IsDeterministic(t *testing.T) {
	t.Parallel()
	docA := elfaes.NewObjectDocument("Order", "1", "stream-1", "order")
	docB := elfaes.NewObjectDocument("Order", "1", "stream-1", "order")

	hashA, err := elfaes.ComputeHash(docA)
	require.NoError(t, err)
	hashB, err := elfaes.ComputeHash(docB)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestComputeHash_ExcludesHashAndPrevHash(t *testing.T) {
	t.Parallel()
	doc := elfaes.NewObjectDocument("Order", "1", "stream-1", "order")
	hashBefore, err := elfaes.ComputeHash(doc)
	require.NoError(t, err)

	doc.Hash = "some-other-hash"
	doc.PrevHash = "yet-another"
	hashAfter, err := elfaes.ComputeHash(doc)
	require.NoError(t, err)
	assert.Equal(t, hashBefore, hashAfter, "hash/prevHash must not participate in the canonical form")
}

func TestComputeHash_ChangesWithContent(t *testing.T) {
	t.Parallel()
	doc := elfaes.NewObjectDocument("Order", "1", "stream-1", "order")
	hashBefore, err := elfaes.ComputeHash(doc)
	require.NoError(t, err)

	doc.Active.CurrentStreamVersion = 5
	hashAfter, err := elfaes.ComputeHash(doc)
	require.NoError(t, err)
	assert.NotEqual(t, hashBefore, hashAfter)
}

func TestWithNewHash_ChainsPrevHash(t *testing.T) {
	t.Parallel()
	doc := elfaes.NewObjectDocument("Order", "1", "stream-1", "order")
	first, err := elfaes.WithNewHash(doc)
	require.NoError(t, err)
	assert.Equal(t, elfaes.AnyHash, first.PrevHash)

	first.Active.CurrentStreamVersion = 1
	second, err := elfaes.WithNewHash(first)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.PrevHash)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestCanonicalJSON_FieldOrderIsStable(t *testing.T) {
	t.Parallel()
	doc := elfaes.NewObjectDocument("Order", "1", "stream-1", "order")
	a, err := elfaes.CanonicalJSON(doc)
	require.NoError(t, err)
	b, err := elfaes.CanonicalJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
