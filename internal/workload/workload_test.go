package workload

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/idxbench/idxbench/internal/bench"
	"github.com/idxbench/idxbench/internal/runcfg"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunDefaultConfig(t *testing.T) {
	rd, err := bench.New(runcfg.New(), nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, rd.Dispose()) }()

	opts := Options{Docs: 250, BatchSize: 50, Searchers: 3, Rounds: 20}
	require.NoError(t, Run(context.Background(), rd, opts))

	labels := rd.Points().Labels()
	assert.Contains(t, labels, "add-doc")
	assert.Contains(t, labels, "ingest-batch")
	assert.Contains(t, labels, "search")
	assert.Equal(t, int64(250+250/50+3*20), rd.Points().TotalCount())

	count, err := rd.IndexWriter().DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(250), count)

	// The published reader is held only by its cell after the run.
	reader, searcher, ok := rd.IndexReader()
	require.True(t, ok)
	assert.NotNil(t, searcher)
	assert.Equal(t, int32(2), reader.Refs())
	reader.Unpin()

	var sb strings.Builder
	require.NoError(t, rd.Points().Report(&sb))
	assert.Contains(t, sb.String(), "search")
	assert.Contains(t, sb.String(), rd.RunID())
}

func TestRunPersistentDirs(t *testing.T) {
	work := t.TempDir()
	rd, err := bench.New(runcfg.FromMap(map[string]string{
		"work.dir":           work,
		"directory.index":    "fs",
		"directory.taxonomy": "fs",
	}), nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, rd.Dispose()) }()

	opts := Options{Docs: 120, BatchSize: 40, Searchers: 2, Rounds: 10}
	require.NoError(t, Run(context.Background(), rd, opts))

	assert.Greater(t, rd.IndexDir().SizeBytes(), uint64(0))

	tr, ok := rd.TaxonomyReader()
	require.True(t, ok)
	assert.Greater(t, tr.Size(), 0)
	tr.Unpin()
}

func TestRunBatchSizeFromConfig(t *testing.T) {
	rd, err := bench.New(runcfg.FromMap(map[string]string{
		BatchSizeKey: "25",
	}), nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, rd.Dispose()) }()

	require.NoError(t, Run(context.Background(), rd, Options{Docs: 100, Searchers: 1, Rounds: 1}))
	// 100 docs at batch size 25 flushes four batches.
	assert.Equal(t, int64(100+4+1), rd.Points().TotalCount())
}
