package engine

import (
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/feeds"
	"github.com/idxbench/idxbench/internal/storage"
)

// IndexWriter is the exclusive write handle on the benchmark index. The run
// context holds at most one current writer; document-writing tasks assume
// single-writer ownership by convention.
type IndexWriter struct {
	mu     sync.Mutex
	idx    bleve.Index
	dir    *storage.Dir
	closed bool
}

// OpenIndexWriter opens (or creates) the index backed by dir. Volatile dirs
// get a memory-only index; filesystem dirs reopen an existing index in
// place, creating it on first use.
func OpenIndexWriter(dir *storage.Dir, im mapping.IndexMapping) (*IndexWriter, error) {
	var (
		idx bleve.Index
		err error
	)
	if dir.IsMem() {
		idx, err = bleve.NewMemOnly(im)
	} else {
		path := dir.IndexPath()
		if _, statErr := os.Stat(path); statErr == nil {
			idx, err = bleve.Open(path)
		} else {
			idx, err = bleve.New(path, im)
		}
	}
	if err != nil {
		return nil, ixerrors.New(ixerrors.ErrCodeIndexOpen,
			fmt.Sprintf("open index on %s dir: %v", dir.Backend(), err), err)
	}
	return &IndexWriter{idx: idx, dir: dir}, nil
}

// Index adds or replaces one document.
func (w *IndexWriter) Index(doc *feeds.Document) error {
	return w.idx.Index(doc.ID, doc)
}

// IndexBatch adds or replaces documents in one engine batch.
func (w *IndexWriter) IndexBatch(docs []*feeds.Document) error {
	batch := w.idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return err
		}
	}
	return w.idx.Batch(batch)
}

// Delete removes one document by id.
func (w *IndexWriter) Delete(id string) error {
	return w.idx.Delete(id)
}

// DocCount returns the current number of live documents.
func (w *IndexWriter) DocCount() (uint64, error) {
	return w.idx.DocCount()
}

// Dir returns the storage location backing this writer.
func (w *IndexWriter) Dir() *storage.Dir {
	return w.dir
}

// Close closes the underlying index. Safe to call more than once; reader
// snapshots taken from this writer must be unpinned before Close.
func (w *IndexWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.idx.Close()
}
