// Package workload drives a small built-in benchmark against a run context:
// ingest synthetic faceted documents, publish a reader snapshot, then run
// concurrent search rounds. It stands in for the external task scheduler so
// the lifecycle core is exercisable end to end from the CLI.
package workload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/idxbench/idxbench/internal/bench"
	"github.com/idxbench/idxbench/internal/feeds"
)

// Configuration key for the ingest batch size.
const BatchSizeKey = "writer.batch.size"

// Options sizes the built-in workload.
type Options struct {
	// Docs is the number of documents to ingest.
	Docs int
	// BatchSize is the ingest batch size; zero falls back to the
	// writer.batch.size config key (default 100).
	BatchSize int
	// Searchers is the number of concurrent search goroutines.
	Searchers int
	// Rounds is the number of searches each searcher runs.
	Rounds int
}

// DefaultOptions returns a workload small enough for a smoke run.
func DefaultOptions() Options {
	return Options{Docs: 1000, Searchers: 4, Rounds: 50}
}

// Run executes the workload: ingest, snapshot swap, concurrent search.
// Latencies land in the run context's stats collector under the "add-doc",
// "ingest-batch", and "search" labels.
func Run(ctx context.Context, rd *bench.RunData, opts Options) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = rd.Config().Int(BatchSizeKey, 100)
	}

	w, err := rd.CreateIndexWriter()
	if err != nil {
		return err
	}
	tw, err := rd.CreateTaxonomyWriter()
	if err != nil {
		return err
	}

	if err := ingest(rd, opts.Docs, batchSize); err != nil {
		return err
	}

	r, err := w.OpenReader()
	if err != nil {
		return err
	}
	rd.SetIndexReader(r)
	r.Unpin()

	tr, err := tw.OpenReader()
	if err != nil {
		return err
	}
	rd.SetTaxonomyReader(tr)
	tr.Unpin()

	if err := search(ctx, rd, opts); err != nil {
		return err
	}

	rd.Points().SetIndexSize(rd.IndexDir().SizeBytes())

	count, err := w.DocCount()
	if err != nil {
		return err
	}
	categories, err := tw.NumCategories()
	if err != nil {
		return err
	}
	slog.Info("workload complete",
		slog.Uint64("docs", count),
		slog.Int64("categories", categories))
	return nil
}

func ingest(rd *bench.RunData, docs, batchSize int) error {
	w := rd.IndexWriter()
	tw := rd.TaxonomyWriter()
	dm := rd.DocMaker()
	facets := rd.FacetSource()

	batch := make([]*feeds.Document, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		if err := w.IndexBatch(batch); err != nil {
			return err
		}
		rd.Points().Record("ingest-batch", time.Since(start))
		batch = batch[:0]
		return nil
	}

	for i := 0; i < docs; i++ {
		start := time.Now()
		doc, err := dm.MakeDocument()
		if err != nil {
			return err
		}
		paths, err := facets.Next()
		if err != nil {
			return err
		}
		for _, p := range paths {
			if _, err := tw.AddCategory(p); err != nil {
				return err
			}
			doc.Facets = append(doc.Facets, p.String())
		}
		rd.Points().Record("add-doc", time.Since(start))

		batch = append(batch, doc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func search(ctx context.Context, rd *bench.RunData, opts Options) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.Searchers; i++ {
		g.Go(func() error {
			// All searchers are the same consumer kind: they share one
			// advancing query stream.
			qm, err := rd.QueryMaker(bench.SearchConsumerKind)
			if err != nil {
				return err
			}
			for round := 0; round < opts.Rounds; round++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				reader, searcher, ok := rd.IndexReader()
				if !ok {
					return fmt.Errorf("no index reader published")
				}
				req, err := qm.Next()
				if err != nil {
					reader.Unpin()
					return err
				}
				start := time.Now()
				_, err = searcher.Search(ctx, req)
				reader.Unpin()
				if err != nil {
					return err
				}
				rd.Points().Record("search", time.Since(start))
			}
			return nil
		})
	}
	return g.Wait()
}
