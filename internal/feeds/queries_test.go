package feeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idxbench/idxbench/internal/runcfg"
)

func TestSimpleQueryMaker_CyclesQuerySet(t *testing.T) {
	qm, err := NewQueryMaker(runcfg.New(), ResolveQueryMaker(runcfg.New()))
	require.NoError(t, err)

	set := qm.Queries()
	require.NotEmpty(t, set)

	// One full cycle plus one: the stream wraps to the first query.
	for i := 0; i < len(set); i++ {
		req, err := qm.Next()
		require.NoError(t, err)
		require.NotNil(t, req.Query)
	}
	wrapped, err := qm.Next()
	require.NoError(t, err)
	first, err := func() (*SimpleQueryMaker, error) {
		fresh := &SimpleQueryMaker{}
		return fresh, fresh.Configure(nil)
	}()
	require.NoError(t, err)
	firstReq, err := first.Next()
	require.NoError(t, err)
	assert.IsType(t, firstReq.Query, wrapped.Query)
}

func TestSimpleQueryMaker_ResetRewindsStream(t *testing.T) {
	qm := &SimpleQueryMaker{}
	require.NoError(t, qm.Configure(nil))

	a, err := qm.Next()
	require.NoError(t, err)
	_, err = qm.Next()
	require.NoError(t, err)

	qm.ResetInputs()
	b, err := qm.Next()
	require.NoError(t, err)
	assert.IsType(t, a.Query, b.Query)
}

func TestSimpleQueryMaker_IndependentInstances(t *testing.T) {
	cfg := runcfg.New()
	a, err := NewQueryMaker(cfg, "simple")
	require.NoError(t, err)
	b, err := NewQueryMaker(cfg, "simple")
	require.NoError(t, err)

	// Advance a; b's position is unaffected.
	_, err = a.Next()
	require.NoError(t, err)
	_, err = a.Next()
	require.NoError(t, err)

	bReq, err := b.Next()
	require.NoError(t, err)

	fresh := &SimpleQueryMaker{}
	require.NoError(t, fresh.Configure(nil))
	freshReq, err := fresh.Next()
	require.NoError(t, err)
	assert.IsType(t, freshReq.Query, bReq.Query)
}

func TestNewQueryMaker_UnknownNameFails(t *testing.T) {
	_, err := NewQueryMaker(runcfg.New(), "fuzzy-ai-queries")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuzzy-ai-queries")
}
