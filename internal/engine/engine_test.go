package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/feeds"
	"github.com/idxbench/idxbench/internal/runcfg"
	"github.com/idxbench/idxbench/internal/storage"
)

func memDir(t *testing.T, kind string) *storage.Dir {
	t.Helper()
	d, err := storage.Provision(runcfg.New(), kind, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func testDocs(n int) []*feeds.Document {
	docs := make([]*feeds.Document, n)
	for i := range docs {
		docs[i] = &feeds.Document{
			ID:      fmt.Sprintf("doc-%06d", i),
			Title:   fmt.Sprintf("Synthetic document %d", i),
			Body:    "a benchmark measures the quick brown fox",
			Date:    "2020-07-01T00:00:00Z",
			Ordinal: int64(i),
		}
	}
	return docs
}

func TestResolveAnalyzer_DefaultAndNamed(t *testing.T) {
	name, a, err := ResolveAnalyzer(runcfg.New())
	require.NoError(t, err)
	assert.Equal(t, "standard", name)
	assert.NotNil(t, a)

	cfg := runcfg.FromMap(map[string]string{AnalyzerKey: "keyword"})
	name, a, err = ResolveAnalyzer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "keyword", name)
	assert.NotNil(t, a)
}

func TestResolveAnalyzer_UnknownFails(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{AnalyzerKey: "klingon"})
	_, _, err := ResolveAnalyzer(cfg)
	require.Error(t, err)
	assert.Equal(t, ixerrors.ErrCodeUnknownComponent, ixerrors.GetCode(err))
}

func TestIndexWriter_IndexAndCount(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.IndexBatch(testDocs(12)))
	count, err := w.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(12), count)

	require.NoError(t, w.Delete("doc-000000"))
	count, err = w.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), count)
}

func TestIndexWriter_FilesystemReopen(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{
		"directory.index": "fs",
		"work.dir":        t.TempDir(),
	})

	d, err := storage.Provision(cfg, "index", false)
	require.NoError(t, err)
	w, err := OpenIndexWriter(d, BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	require.NoError(t, w.Index(testDocs(1)[0]))
	require.NoError(t, w.Close())
	require.NoError(t, d.Close())

	// Reopen without erasing: the document survives.
	d2, err := storage.Provision(cfg, "index", false)
	require.NoError(t, err)
	defer d2.Close()
	w2, err := OpenIndexWriter(d2, BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w2.Close()

	count, err := w2.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndexWriter_CloseIdempotent(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestReaderHandle_SnapshotIsPointInTime(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.IndexBatch(testDocs(5)))
	r, err := w.OpenReader()
	require.NoError(t, err)

	// Writes after the snapshot are not visible through it.
	require.NoError(t, w.IndexBatch(testDocs(10)))
	count, err := r.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	r.Unpin()
}

func TestReaderHandle_PinUnpinCounts(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w.Close()

	r, err := w.OpenReader()
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.Refs())

	r.Pin()
	assert.Equal(t, int32(2), r.Refs())
	r.Unpin()
	assert.Equal(t, int32(1), r.Refs())
	r.Unpin()
	assert.Equal(t, int32(0), r.Refs())
}

func TestReaderHandle_PinAfterReleasePanics(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w.Close()

	r, err := w.OpenReader()
	require.NoError(t, err)
	r.Unpin()

	assert.Panics(t, func() { r.Pin() })
}

func TestReaderHandle_UnpinWithoutPinPanics(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w.Close()

	r, err := w.OpenReader()
	require.NoError(t, err)
	r.Unpin()

	assert.Panics(t, func() { r.Unpin() })
}

func TestSearcher_FindsIndexedDocuments(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.IndexBatch(testDocs(8)))

	r, err := w.OpenReader()
	require.NoError(t, err)
	defer r.Unpin()

	s := NewSearcher(r)
	assert.Same(t, r, s.Reader())

	q := bleve.NewTermQuery("benchmark")
	q.SetField("body")
	res, err := s.Search(context.Background(), bleve.NewSearchRequest(q))
	require.NoError(t, err)
	assert.Equal(t, uint64(8), res.Total)
	require.NotEmpty(t, res.Hits)
	assert.Regexp(t, `^doc-\d{6}$`, res.Hits[0].ID)
}

func TestSearcher_AnswersFromSnapshot(t *testing.T) {
	w, err := OpenIndexWriter(memDir(t, "index"), BuildIndexMapping(DefaultAnalyzer))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.IndexBatch(testDocs(5)))
	r, err := w.OpenReader()
	require.NoError(t, err)
	defer r.Unpin()
	s := NewSearcher(r)

	// Grow the live index well past the snapshot.
	require.NoError(t, w.IndexBatch(testDocs(15)))
	live, err := w.DocCount()
	require.NoError(t, err)
	require.Equal(t, uint64(15), live)

	q := bleve.NewTermQuery("benchmark")
	q.SetField("body")
	res, err := s.Search(context.Background(), bleve.NewSearchRequest(q))
	require.NoError(t, err)

	// The searcher and its paired reader describe the same snapshot.
	count, err := r.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
	assert.Equal(t, uint64(5), res.Total)
}
