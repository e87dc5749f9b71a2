package engine

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/feeds"
	"github.com/idxbench/idxbench/internal/storage"
)

// TaxonomyWriter maintains the category-path → ordinal mapping backing
// faceted documents. Filesystem dirs persist it in a WAL-mode SQLite
// database; volatile dirs use an in-memory database.
type TaxonomyWriter struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// OpenTaxonomyWriter opens (or creates) the taxonomy store backed by dir.
func OpenTaxonomyWriter(dir *storage.Dir) (*TaxonomyWriter, error) {
	db, err := sql.Open("sqlite", dir.TaxonomyDSN())
	if err != nil {
		return nil, ixerrors.Wrap(ixerrors.ErrCodeTaxonomyOpen, err)
	}
	// One pooled connection: an in-memory database exists per connection,
	// and the writer serializes access anyway.
	db.SetMaxOpenConns(1)

	if !dir.IsMem() {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, ixerrors.Wrap(ixerrors.ErrCodeTaxonomyOpen, err)
		}
	}
	const schema = `CREATE TABLE IF NOT EXISTS categories (
		ordinal INTEGER PRIMARY KEY AUTOINCREMENT,
		path    TEXT NOT NULL UNIQUE
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, ixerrors.Wrap(ixerrors.ErrCodeTaxonomyOpen, err)
	}
	return &TaxonomyWriter{db: db}, nil
}

// AddCategory records a category path and returns its ordinal. Paths are
// deduplicated; adding an existing path returns the original ordinal.
func (w *TaxonomyWriter) AddCategory(path feeds.FacetPath) (int64, error) {
	p := path.String()
	if p == "" {
		return 0, fmt.Errorf("empty category path")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, fmt.Errorf("taxonomy writer is closed")
	}
	if _, err := w.db.Exec(
		`INSERT INTO categories (path) VALUES (?) ON CONFLICT(path) DO NOTHING`, p); err != nil {
		return 0, err
	}
	var ordinal int64
	if err := w.db.QueryRow(
		`SELECT ordinal FROM categories WHERE path = ?`, p).Scan(&ordinal); err != nil {
		return 0, err
	}
	return ordinal, nil
}

// NumCategories returns the number of recorded category paths.
func (w *TaxonomyWriter) NumCategories() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, fmt.Errorf("taxonomy writer is closed")
	}
	var n int64
	err := w.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}

// OpenReader snapshots the current taxonomy state into a reference-counted
// reader. The returned handle carries one pin owned by the caller.
func (w *TaxonomyWriter) OpenReader() (*TaxonomyReader, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, fmt.Errorf("taxonomy writer is closed")
	}
	rows, err := w.db.Query(`SELECT ordinal, path FROM categories`)
	if err != nil {
		return nil, ixerrors.Wrap(ixerrors.ErrCodeTaxonomyOpen, err)
	}
	defer rows.Close()

	byPath := map[string]int64{}
	byOrdinal := map[int64]string{}
	for rows.Next() {
		var (
			ordinal int64
			path    string
		)
		if err := rows.Scan(&ordinal, &path); err != nil {
			return nil, ixerrors.Wrap(ixerrors.ErrCodeTaxonomyOpen, err)
		}
		byPath[path] = ordinal
		byOrdinal[ordinal] = path
	}
	if err := rows.Err(); err != nil {
		return nil, ixerrors.Wrap(ixerrors.ErrCodeTaxonomyOpen, err)
	}

	r := &TaxonomyReader{byPath: byPath, byOrdinal: byOrdinal}
	r.refs.Store(1)
	return r, nil
}

// Close closes the underlying database. Safe to call more than once.
func (w *TaxonomyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.db.Close()
}

// TaxonomyReader is a reference-counted point-in-time snapshot of the
// taxonomy. It follows the same pin/unpin protocol as ReaderHandle.
type TaxonomyReader struct {
	byPath    map[string]int64
	byOrdinal map[int64]string
	refs      atomic.Int32
}

// Pin increments the reference count; pinning a released reader panics.
func (r *TaxonomyReader) Pin() {
	for {
		cur := r.refs.Load()
		if cur <= 0 {
			panic(fmt.Sprintf("engine: pin of released taxonomy reader (refs=%d)", cur))
		}
		if r.refs.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Unpin decrements the reference count, releasing the snapshot at zero.
func (r *TaxonomyReader) Unpin() {
	n := r.refs.Add(-1)
	if n < 0 {
		panic("engine: unpin of taxonomy reader without matching pin")
	}
	if n == 0 {
		r.byPath = nil
		r.byOrdinal = nil
	}
}

// Refs returns the current pin count.
func (r *TaxonomyReader) Refs() int32 {
	return r.refs.Load()
}

// Ordinal looks up the ordinal for a category path string.
func (r *TaxonomyReader) Ordinal(path string) (int64, bool) {
	ordinal, ok := r.byPath[path]
	return ordinal, ok
}

// Path looks up the category path string for an ordinal.
func (r *TaxonomyReader) Path(ordinal int64) (string, bool) {
	path, ok := r.byOrdinal[ordinal]
	return path, ok
}

// Size returns the number of categories visible in this snapshot.
func (r *TaxonomyReader) Size() int {
	return len(r.byPath)
}
