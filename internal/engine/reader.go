package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/collector"
	index "github.com/blevesearch/bleve_index_api"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
)

// ReaderHandle is a reference-counted point-in-time snapshot of the index.
// It starts with one pin owned by its creator. The handle stays open while
// the pin count is above zero; the holder that drops it to zero closes the
// snapshot. Pin/unpin misuse is a programming error and panics.
type ReaderHandle struct {
	parent   bleve.Index
	snapshot index.IndexReader
	refs     atomic.Int32
}

// OpenReader takes a snapshot of the writer's current index state. The
// returned handle carries one pin owned by the caller.
func (w *IndexWriter) OpenReader() (*ReaderHandle, error) {
	adv, err := w.idx.Advanced()
	if err != nil {
		return nil, ixerrors.Wrap(ixerrors.ErrCodeIndexOpen, err)
	}
	snapshot, err := adv.Reader()
	if err != nil {
		return nil, ixerrors.Wrap(ixerrors.ErrCodeIndexOpen, err)
	}
	r := &ReaderHandle{parent: w.idx, snapshot: snapshot}
	r.refs.Store(1)
	return r, nil
}

// Pin increments the reference count. Pinning a handle whose count already
// reached zero would resurrect a closed snapshot, so it panics.
func (r *ReaderHandle) Pin() {
	for {
		cur := r.refs.Load()
		if cur <= 0 {
			panic(fmt.Sprintf("engine: pin of released index reader (refs=%d)", cur))
		}
		if r.refs.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Unpin decrements the reference count, closing the snapshot when the count
// reaches zero. Unpinning below zero panics.
func (r *ReaderHandle) Unpin() {
	n := r.refs.Add(-1)
	if n < 0 {
		panic("engine: unpin of index reader without matching pin")
	}
	if n == 0 {
		if err := r.snapshot.Close(); err != nil {
			slog.Warn("index reader snapshot close failed", "error", err)
		}
	}
}

// Refs returns the current pin count.
func (r *ReaderHandle) Refs() int32 {
	return r.refs.Load()
}

// DocCount returns the number of documents visible in this snapshot.
func (r *ReaderHandle) DocCount() (uint64, error) {
	return r.snapshot.DocCount()
}

// Searcher is the searchable handle derived from exactly one reader
// snapshot. The run context rebuilds it whenever the reader cell changes,
// in the same critical section, so a pair returned together is always
// consistent.
type Searcher struct {
	reader *ReaderHandle
}

// NewSearcher binds a searcher to a reader handle.
func NewSearcher(r *ReaderHandle) *Searcher {
	return &Searcher{reader: r}
}

// Reader returns the reader handle this searcher wraps.
func (s *Searcher) Reader() *ReaderHandle {
	return s.reader
}

// Search executes a search request against the reader's snapshot. Writes
// made after the snapshot was taken are not visible, matching what the
// handle's DocCount reports. Highlighting, facets, and stored-field loading
// are not supported; benchmark queries only need hits and totals.
func (s *Searcher) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	qs, err := req.Query.Searcher(ctx, s.reader.snapshot, s.reader.parent.Mapping(), search.SearcherOptions{
		Explain: req.Explain,
		Score:   req.Score,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := qs.Close(); cerr != nil {
			slog.Warn("query searcher close failed", "error", cerr)
		}
	}()

	sortOrder := req.Sort
	if len(sortOrder) == 0 {
		sortOrder = search.SortOrder{&search.SortScore{Desc: true}}
	}
	coll := collector.NewTopNCollector(req.Size, req.From, sortOrder)
	if err := coll.Collect(ctx, qs, s.reader.snapshot); err != nil {
		return nil, err
	}

	return &bleve.SearchResult{
		Status:   &bleve.SearchStatus{Total: 1, Successful: 1},
		Request:  req,
		Hits:     coll.Results(),
		Total:    coll.Total(),
		MaxScore: coll.MaxScore(),
		Took:     coll.Took(),
	}, nil
}
