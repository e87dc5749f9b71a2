// Package bench holds the shared run-context of a benchmark run: the
// expensive, re-openable resources (index writer, pinned reader snapshots,
// taxonomy writer/reader) and the configured producers that feed them.
// Independent benchmark tasks call into RunData concurrently; RunData
// enforces the swap/pin/teardown invariants and performs no scheduling of
// its own.
package bench

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/idxbench/idxbench/internal/engine"
	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/feeds"
	"github.com/idxbench/idxbench/internal/runcfg"
	"github.com/idxbench/idxbench/internal/stats"
	"github.com/idxbench/idxbench/internal/storage"
)

// Directory kinds provisioned per run.
const (
	IndexDirKind    = "index"
	TaxonomyDirKind = "taxonomy"
)

// SearchConsumerKind is the consumer kind used for the log.queries
// diagnostic: the query stream a plain search task would consume.
const SearchConsumerKind = "search"

// LogQueriesKey enables logging the resolved query set at construction.
const LogQueriesKey = "log.queries"

// RunData is the shared run-context. Create it once per benchmark run with
// New; Reinit may run any number of times between quiesced task phases;
// Dispose is terminal. Any operation on a disposed RunData panics.
type RunData struct {
	cfg   *runcfg.Config
	log   *slog.Logger
	runID string

	analyzerName string
	analyzer     analysis.Analyzer
	indexMapping mapping.IndexMapping

	contentSource feeds.ContentSource
	docMaker      feeds.DocMaker
	facetSource   feeds.FacetSource

	queries *queryCache
	perf    *perfRegistry
	points  *stats.Points

	readers     ReaderCell
	taxoReaders Cell[*engine.TaxonomyReader]

	mu          sync.Mutex // guards the fields below
	indexDir    *storage.Dir
	taxoDir     *storage.Dir
	indexWriter *engine.IndexWriter
	taxoWriter  *engine.TaxonomyWriter
	startTime   time.Time
	disposed    bool
}

// New constructs the run context: resolves the analyzer and producers from
// configuration, provisions directories via Reinit(false), and builds the
// statistics collector. Any resolution or configuration failure is fatal
// and aborts construction before resources are opened.
func New(cfg *runcfg.Config, log *slog.Logger) (*RunData, error) {
	if log == nil {
		log = slog.Default()
	}

	analyzerName, analyzer, err := engine.ResolveAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	contentSource, err := feeds.NewContentSource(cfg)
	if err != nil {
		return nil, err
	}
	docMaker, err := feeds.NewDocMaker(cfg, contentSource)
	if err != nil {
		return nil, err
	}
	facetSource, err := feeds.NewFacetSource(cfg)
	if err != nil {
		return nil, err
	}

	rd := &RunData{
		cfg:           cfg,
		log:           log,
		runID:         uuid.NewString(),
		analyzerName:  analyzerName,
		analyzer:      analyzer,
		indexMapping:  engine.BuildIndexMapping(analyzerName),
		contentSource: contentSource,
		docMaker:      docMaker,
		facetSource:   facetSource,
		queries:       newQueryCache(cfg, feeds.ResolveQueryMaker(cfg)),
		perf:          newPerfRegistry(),
	}

	if err := rd.Reinit(false); err != nil {
		return nil, err
	}
	rd.points = stats.NewPoints(rd.runID)

	if cfg.Bool(LogQueriesKey, false) {
		qm, err := rd.QueryMaker(SearchConsumerKind)
		if err != nil {
			// Directories are already provisioned; release them and their
			// locks before aborting construction.
			if derr := rd.Dispose(); derr != nil {
				log.Warn("cleanup after failed construction", slog.Any("error", derr))
			}
			return nil, err
		}
		for i, q := range qm.Queries() {
			log.Info("query", slog.Int("n", i), slog.String("query", q))
		}
	}

	log.Info("run context constructed",
		slog.String("run_id", rd.runID),
		slog.String("analyzer", analyzerName),
		slog.String("query_maker", feeds.ResolveQueryMaker(cfg)))
	return rd, nil
}

// Reinit releases the index and taxonomy state in order, re-provisions both
// directories, and rewinds every producer's input position. Producer
// identities survive; only the storage and open handles are recreated.
// Callers must quiesce task activity first. Teardown is best-effort: every
// step runs, and step failures are returned once as a single aggregate
// after the re-provision completes.
func (rd *RunData) Reinit(eraseExisting bool) error {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()

	var tc ixerrors.TeardownCollector
	rd.releaseResourcesLocked(&tc)

	indexDir, err := storage.Provision(rd.cfg, IndexDirKind, eraseExisting)
	if err != nil {
		return joinTeardown(err, &tc)
	}
	taxoDir, err := storage.Provision(rd.cfg, TaxonomyDirKind, eraseExisting)
	if err != nil {
		tc.Step("close index dir", indexDir.Close)
		return joinTeardown(err, &tc)
	}
	rd.indexDir = indexDir
	rd.taxoDir = taxoDir

	rd.contentSource.ResetInputs()
	rd.docMaker.ResetInputs()
	rd.facetSource.ResetInputs()
	rd.queries.resetInputs()

	// Advisory only: give back memory freed by the torn-down index state.
	debug.FreeOSMemory()

	rd.startTime = time.Now()
	return tc.Err()
}

// Dispose is terminal: releases every owned resource exactly once,
// including closeable perf objects, continuing past individual failures and
// returning them as one aggregate. A second call is a no-op; any other
// operation after Dispose panics.
func (rd *RunData) Dispose() error {
	rd.mu.Lock()
	if rd.disposed {
		rd.mu.Unlock()
		return nil
	}
	rd.disposed = true

	var tc ixerrors.TeardownCollector
	rd.releaseResourcesLocked(&tc)
	rd.mu.Unlock()

	rd.perf.closeAll(&tc)

	err := tc.Err()
	if err != nil {
		rd.log.Warn("run context disposed with failures",
			slog.String("run_id", rd.runID), slog.Any("error", err))
	} else {
		rd.log.Info("run context disposed", slog.String("run_id", rd.runID))
	}
	return err
}

// joinTeardown returns err with any teardown faults collected before the
// failure attached, so a provision fault never swallows them.
func joinTeardown(err error, tc *ixerrors.TeardownCollector) error {
	if terr := tc.Err(); terr != nil {
		return multierror.Append(err, terr)
	}
	return err
}

// releaseResourcesLocked tears down in order: index writer, index-reader
// cell (and its searcher), index dir, then the taxonomy triple. Every step
// tolerates an already-empty slot.
func (rd *RunData) releaseResourcesLocked(tc *ixerrors.TeardownCollector) {
	if rd.indexWriter != nil {
		tc.Step("close index writer", rd.indexWriter.Close)
		rd.indexWriter = nil
	}
	rd.readers.Clear()
	if rd.indexDir != nil {
		tc.Step("close index dir", rd.indexDir.Close)
		rd.indexDir = nil
	}

	if rd.taxoWriter != nil {
		tc.Step("close taxonomy writer", rd.taxoWriter.Close)
		rd.taxoWriter = nil
	}
	rd.taxoReaders.Clear()
	if rd.taxoDir != nil {
		tc.Step("close taxonomy dir", rd.taxoDir.Close)
		rd.taxoDir = nil
	}
}

// checkUsableLocked panics when the context was disposed: using a disposed
// run context is a programming error, not a recoverable condition.
func (rd *RunData) checkUsableLocked() {
	if rd.disposed {
		panic("bench: use of disposed RunData")
	}
}

func (rd *RunData) checkUsable() {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
}

// Config returns the run configuration.
func (rd *RunData) Config() *runcfg.Config {
	rd.checkUsable()
	return rd.cfg
}

// RunID returns this run's unique identifier.
func (rd *RunData) RunID() string {
	rd.checkUsable()
	return rd.runID
}

// Analyzer returns the resolved analyzer.
func (rd *RunData) Analyzer() analysis.Analyzer {
	rd.checkUsable()
	return rd.analyzer
}

// AnalyzerName returns the resolved analyzer's registry name.
func (rd *RunData) AnalyzerName() string {
	rd.checkUsable()
	return rd.analyzerName
}

// IndexMapping returns the document mapping built for this run.
func (rd *RunData) IndexMapping() mapping.IndexMapping {
	rd.checkUsable()
	return rd.indexMapping
}

// ContentSource returns the run's content source. Not reference-counted;
// its lifetime is the run context's.
func (rd *RunData) ContentSource() feeds.ContentSource {
	rd.checkUsable()
	return rd.contentSource
}

// DocMaker returns the run's doc maker.
func (rd *RunData) DocMaker() feeds.DocMaker {
	rd.checkUsable()
	return rd.docMaker
}

// FacetSource returns the run's facet source.
func (rd *RunData) FacetSource() feeds.FacetSource {
	rd.checkUsable()
	return rd.facetSource
}

// IndexDir returns the current index directory.
func (rd *RunData) IndexDir() *storage.Dir {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	return rd.indexDir
}

// TaxonomyDir returns the current taxonomy directory.
func (rd *RunData) TaxonomyDir() *storage.Dir {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	return rd.taxoDir
}

// IndexWriter returns the current index writer, or nil when none is set.
func (rd *RunData) IndexWriter() *engine.IndexWriter {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	return rd.indexWriter
}

// SetIndexWriter installs w as the current index writer. The slot is not
// reference-counted: writing tasks hold single-writer ownership by
// convention. Replacing a writer that is still set is logged but allowed;
// the previous writer's owner remains responsible for closing it.
func (rd *RunData) SetIndexWriter(w *engine.IndexWriter) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	if rd.indexWriter != nil && w != nil && w != rd.indexWriter {
		rd.log.Warn("replacing index writer that was not closed via run context",
			slog.String("run_id", rd.runID))
	}
	rd.indexWriter = w
}

// CreateIndexWriter opens a writer on the current index directory with the
// run's mapping and installs it as the current writer.
func (rd *RunData) CreateIndexWriter() (*engine.IndexWriter, error) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	if rd.indexDir == nil {
		return nil, fmt.Errorf("no index directory provisioned")
	}
	w, err := engine.OpenIndexWriter(rd.indexDir, rd.indexMapping)
	if err != nil {
		return nil, err
	}
	rd.indexWriter = w
	return w, nil
}

// IndexReader pins and returns the current index reader together with the
// searcher bound to it. The caller owns one pin on the reader and must
// unpin after use. ok is false when no reader is set.
func (rd *RunData) IndexReader() (*engine.ReaderHandle, *engine.Searcher, bool) {
	rd.checkUsable()
	return rd.readers.Get()
}

// SetIndexReader swaps the current index reader; the derived searcher is
// rebuilt in the same critical section. nil empties the slot.
func (rd *RunData) SetIndexReader(r *engine.ReaderHandle) {
	rd.checkUsable()
	rd.readers.Set(r)
}

// TaxonomyWriter returns the current taxonomy writer, or nil.
func (rd *RunData) TaxonomyWriter() *engine.TaxonomyWriter {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	return rd.taxoWriter
}

// SetTaxonomyWriter installs w as the current taxonomy writer.
func (rd *RunData) SetTaxonomyWriter(w *engine.TaxonomyWriter) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	if rd.taxoWriter != nil && w != nil && w != rd.taxoWriter {
		rd.log.Warn("replacing taxonomy writer that was not closed via run context",
			slog.String("run_id", rd.runID))
	}
	rd.taxoWriter = w
}

// CreateTaxonomyWriter opens a writer on the current taxonomy directory and
// installs it as the current writer.
func (rd *RunData) CreateTaxonomyWriter() (*engine.TaxonomyWriter, error) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	if rd.taxoDir == nil {
		return nil, fmt.Errorf("no taxonomy directory provisioned")
	}
	w, err := engine.OpenTaxonomyWriter(rd.taxoDir)
	if err != nil {
		return nil, err
	}
	rd.taxoWriter = w
	return w, nil
}

// TaxonomyReader pins and returns the current taxonomy reader. The caller
// owns one pin and must unpin after use.
func (rd *RunData) TaxonomyReader() (*engine.TaxonomyReader, bool) {
	rd.checkUsable()
	return rd.taxoReaders.Get()
}

// SetTaxonomyReader swaps the current taxonomy reader. nil empties the slot.
func (rd *RunData) SetTaxonomyReader(r *engine.TaxonomyReader) {
	rd.checkUsable()
	rd.taxoReaders.Set(r)
}

// QueryMaker returns the query maker for a consumer kind, creating it on
// first use. The same kind always gets the same instance until Dispose.
func (rd *RunData) QueryMaker(consumerKind string) (feeds.QueryMaker, error) {
	rd.checkUsable()
	return rd.queries.getOrCreate(consumerKind)
}

// PerfObject returns the shared object stored under key.
func (rd *RunData) PerfObject(key string) (any, bool) {
	rd.checkUsable()
	return rd.perf.get(key)
}

// SetPerfObject stores a shared object under key, last write wins. If the
// object implements io.Closer it is closed exactly once at Dispose.
func (rd *RunData) SetPerfObject(key string, obj any) {
	rd.checkUsable()
	rd.perf.set(key, obj)
}

// Points returns the run's statistics collector.
func (rd *RunData) Points() *stats.Points {
	rd.checkUsable()
	return rd.points
}

// StartTime returns the run start timestamp, reset by each Reinit.
func (rd *RunData) StartTime() time.Time {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	return rd.startTime
}

// SetStartTime overrides the run start timestamp.
func (rd *RunData) SetStartTime(t time.Time) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.checkUsableLocked()
	rd.startTime = t
}

// ResetInputs rewinds every producer to its starting position: content
// source, doc maker, facet source, and each cached query maker. Producer
// identities are untouched.
func (rd *RunData) ResetInputs() {
	rd.checkUsable()
	rd.contentSource.ResetInputs()
	rd.docMaker.ResetInputs()
	rd.facetSource.ResetInputs()
	rd.queries.resetInputs()
}
