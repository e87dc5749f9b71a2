package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idxbench/idxbench/internal/feeds"
	"github.com/idxbench/idxbench/internal/runcfg"
	"github.com/idxbench/idxbench/internal/storage"
)

func TestTaxonomyWriter_AddCategoryDeduplicates(t *testing.T) {
	w, err := OpenTaxonomyWriter(memDir(t, "taxonomy"))
	require.NoError(t, err)
	defer w.Close()

	blue, err := w.AddCategory(feeds.FacetPath{"color", "blue"})
	require.NoError(t, err)
	red, err := w.AddCategory(feeds.FacetPath{"color", "red"})
	require.NoError(t, err)
	again, err := w.AddCategory(feeds.FacetPath{"color", "blue"})
	require.NoError(t, err)

	assert.NotEqual(t, blue, red)
	assert.Equal(t, blue, again)

	n, err := w.NumCategories()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTaxonomyWriter_RejectsEmptyPath(t *testing.T) {
	w, err := OpenTaxonomyWriter(memDir(t, "taxonomy"))
	require.NoError(t, err)
	defer w.Close()

	_, err = w.AddCategory(feeds.FacetPath{})
	assert.Error(t, err)
}

func TestTaxonomyReader_SnapshotIsPointInTime(t *testing.T) {
	w, err := OpenTaxonomyWriter(memDir(t, "taxonomy"))
	require.NoError(t, err)
	defer w.Close()

	ordinal, err := w.AddCategory(feeds.FacetPath{"shape", "circle"})
	require.NoError(t, err)

	r, err := w.OpenReader()
	require.NoError(t, err)
	defer r.Unpin()

	// Categories added after the snapshot are not visible through it.
	_, err = w.AddCategory(feeds.FacetPath{"shape", "square"})
	require.NoError(t, err)

	assert.Equal(t, 1, r.Size())
	got, ok := r.Ordinal("shape/circle")
	require.True(t, ok)
	assert.Equal(t, ordinal, got)

	path, ok := r.Path(ordinal)
	require.True(t, ok)
	assert.Equal(t, "shape/circle", path)

	_, ok = r.Ordinal("shape/square")
	assert.False(t, ok)
}

func TestTaxonomyReader_PinProtocol(t *testing.T) {
	w, err := OpenTaxonomyWriter(memDir(t, "taxonomy"))
	require.NoError(t, err)
	defer w.Close()

	r, err := w.OpenReader()
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.Refs())

	r.Pin()
	r.Unpin()
	r.Unpin()
	assert.Equal(t, int32(0), r.Refs())

	assert.Panics(t, func() { r.Pin() })
	assert.Panics(t, func() { r.Unpin() })
}

func TestTaxonomyWriter_PersistsOnFilesystem(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{
		"directory.taxonomy": "fs",
		"work.dir":           t.TempDir(),
	})

	d, err := storage.Provision(cfg, "taxonomy", false)
	require.NoError(t, err)
	w, err := OpenTaxonomyWriter(d)
	require.NoError(t, err)
	_, err = w.AddCategory(feeds.FacetPath{"material", "steel"})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, d.Close())

	d2, err := storage.Provision(cfg, "taxonomy", false)
	require.NoError(t, err)
	defer d2.Close()
	w2, err := OpenTaxonomyWriter(d2)
	require.NoError(t, err)
	defer w2.Close()

	n, err := w2.NumCategories()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTaxonomyWriter_CloseIdempotent(t *testing.T) {
	w, err := OpenTaxonomyWriter(memDir(t, "taxonomy"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
