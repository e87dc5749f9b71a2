// Package engine wraps the index and taxonomy backends behind the handle
// types the run context manages: an exclusive index writer, reference-counted
// reader snapshots with their derived searchers, and a SQLite-backed
// taxonomy ordinal store.
package engine

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/mapping"

	// Analyzers selectable via the "analyzer" key. Standard is registered
	// by the mapping package itself.
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/web"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/runcfg"
)

// Configuration key and default for analyzer selection.
const (
	AnalyzerKey     = "analyzer"
	DefaultAnalyzer = "standard"
)

// ResolveAnalyzer resolves the configured analyzer name against the bleve
// registry. An unknown name is an initialization fault.
func ResolveAnalyzer(cfg *runcfg.Config) (string, analysis.Analyzer, error) {
	name := cfg.String(AnalyzerKey, DefaultAnalyzer)
	a := bleve.NewIndexMapping().AnalyzerNamed(name)
	if a == nil {
		return "", nil, ixerrors.UnknownComponent(AnalyzerKey, name)
	}
	return name, a, nil
}

// BuildIndexMapping builds the benchmark document mapping: analyzed title
// and body, keyword facets, a date field, and a numeric ordinal.
func BuildIndexMapping(analyzerName string) mapping.IndexMapping {
	title := bleve.NewTextFieldMapping()
	title.Analyzer = analyzerName
	body := bleve.NewTextFieldMapping()
	body.Analyzer = analyzerName

	facets := bleve.NewKeywordFieldMapping()
	date := bleve.NewDateTimeFieldMapping()
	ordinal := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", title)
	doc.AddFieldMappingsAt("body", body)
	doc.AddFieldMappingsAt("facets", facets)
	doc.AddFieldMappingsAt("date", date)
	doc.AddFieldMappingsAt("ordinal", ordinal)

	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = analyzerName
	im.DefaultMapping = doc
	return im
}
