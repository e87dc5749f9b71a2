// Package feeds contains the pluggable producers that feed a benchmark run:
// content sources, document makers, facet sources, and query makers. Concrete
// implementations are named by configuration and built through a registry of
// factory functions, so harnesses can register their own producers without
// touching this package.
package feeds

import (
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/runcfg"
)

// Configuration keys and their default component names.
const (
	ContentSourceKey     = "content.source"
	DefaultContentSource = "single-doc"

	DocMakerKey     = "doc.maker"
	DefaultDocMaker = "basic"

	FacetSourceKey     = "facet.source"
	DefaultFacetSource = "random"

	QueryMakerKey     = "query.maker"
	DefaultQueryMaker = "simple"
)

// Producer is the capability shared by every pluggable component: it is
// configured once from the run configuration and can restore its input
// position without being recreated.
type Producer interface {
	Configure(cfg *runcfg.Config) error
	ResetInputs()
}

// Content is one unit of raw content produced by a ContentSource.
type Content struct {
	ID      string
	Title   string
	Body    string
	Date    time.Time
	Ordinal int64
}

// ContentSource produces a stream of raw content. Implementations must be
// safe for concurrent Next calls.
type ContentSource interface {
	Producer
	Next() (*Content, error)
}

// Document is an indexable document assembled by a DocMaker.
type Document struct {
	ID      string   `json:"-"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Date    string   `json:"date"`
	Facets  []string `json:"facets,omitempty"`
	Ordinal int64    `json:"ordinal"`
}

// DocMaker assembles indexable documents from an upstream content source.
// The source is injected after construction and before Configure.
type DocMaker interface {
	Producer
	SetSource(src ContentSource)
	MakeDocument() (*Document, error)
}

// FacetPath is one category path, root first (e.g. ["color", "blue"]).
type FacetPath []string

// String joins the path with '/' separators.
func (p FacetPath) String() string {
	out := ""
	for i, seg := range p {
		if i > 0 {
			out += "/"
		}
		out += seg
	}
	return out
}

// FacetSource produces category paths to attach to documents.
type FacetSource interface {
	Producer
	Next() ([]FacetPath, error)
}

// QueryMaker produces search requests. One instance exists per consumer
// kind, so tasks of the same kind share one advancing query stream.
type QueryMaker interface {
	Producer
	Next() (*bleve.SearchRequest, error)
	// Queries describes the query set, for the log.queries diagnostic.
	Queries() []string
}

// Kind identifies a producer slot in the registry.
type Kind string

const (
	KindContentSource Kind = "content-source"
	KindDocMaker      Kind = "doc-maker"
	KindFacetSource   Kind = "facet-source"
	KindQueryMaker    Kind = "query-maker"
)

// Factory constructs an unconfigured producer.
type Factory func() Producer

var (
	registryMu sync.RWMutex
	registry   = map[Kind]map[string]Factory{}
)

// Register adds a factory under (kind, name). Later registrations replace
// earlier ones, which lets harnesses override the built-ins.
func Register(kind Kind, name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	byName, ok := registry[kind]
	if !ok {
		byName = map[string]Factory{}
		registry[kind] = byName
	}
	byName[name] = f
}

// Resolve reads the component name for key, falling back to def.
func Resolve(cfg *runcfg.Config, key, def string) string {
	return cfg.String(key, def)
}

// instantiate builds the named producer, unconfigured. Unknown names are an
// initialization fault identifying the offending key and name.
func instantiate(kind Kind, key, name string) (Producer, error) {
	registryMu.RLock()
	f, ok := registry[kind][name]
	registryMu.RUnlock()
	if !ok {
		return nil, ixerrors.UnknownComponent(key, name)
	}
	return f(), nil
}

// NewContentSource resolves, instantiates, and configures the content
// source named by configuration.
func NewContentSource(cfg *runcfg.Config) (ContentSource, error) {
	name := Resolve(cfg, ContentSourceKey, DefaultContentSource)
	return newContentSource(cfg, ContentSourceKey, name)
}

func newContentSource(cfg *runcfg.Config, key, name string) (ContentSource, error) {
	p, err := instantiate(KindContentSource, key, name)
	if err != nil {
		return nil, err
	}
	src, ok := p.(ContentSource)
	if !ok {
		return nil, ixerrors.MissingCapability(key, name, "feeds.ContentSource")
	}
	if err := src.Configure(cfg); err != nil {
		return nil, ixerrors.ComponentConfig(key, name, err)
	}
	return src, nil
}

// NewDocMaker resolves, instantiates, and configures the doc maker named by
// configuration, wiring it to the already-configured content source.
func NewDocMaker(cfg *runcfg.Config, src ContentSource) (DocMaker, error) {
	name := Resolve(cfg, DocMakerKey, DefaultDocMaker)
	p, err := instantiate(KindDocMaker, DocMakerKey, name)
	if err != nil {
		return nil, err
	}
	dm, ok := p.(DocMaker)
	if !ok {
		return nil, ixerrors.MissingCapability(DocMakerKey, name, "feeds.DocMaker")
	}
	dm.SetSource(src)
	if err := dm.Configure(cfg); err != nil {
		return nil, ixerrors.ComponentConfig(DocMakerKey, name, err)
	}
	return dm, nil
}

// NewFacetSource resolves, instantiates, and configures the facet source
// named by configuration.
func NewFacetSource(cfg *runcfg.Config) (FacetSource, error) {
	name := Resolve(cfg, FacetSourceKey, DefaultFacetSource)
	p, err := instantiate(KindFacetSource, FacetSourceKey, name)
	if err != nil {
		return nil, err
	}
	fs, ok := p.(FacetSource)
	if !ok {
		return nil, ixerrors.MissingCapability(FacetSourceKey, name, "feeds.FacetSource")
	}
	if err := fs.Configure(cfg); err != nil {
		return nil, ixerrors.ComponentConfig(FacetSourceKey, name, err)
	}
	return fs, nil
}

// ResolveQueryMaker returns the query-maker name from configuration without
// instantiating it. Instances are created lazily, one per consumer kind.
func ResolveQueryMaker(cfg *runcfg.Config) string {
	return Resolve(cfg, QueryMakerKey, DefaultQueryMaker)
}

// NewQueryMaker instantiates and configures one query maker of the given
// registered name.
func NewQueryMaker(cfg *runcfg.Config, name string) (QueryMaker, error) {
	p, err := instantiate(KindQueryMaker, QueryMakerKey, name)
	if err != nil {
		return nil, err
	}
	qm, ok := p.(QueryMaker)
	if !ok {
		return nil, ixerrors.MissingCapability(QueryMakerKey, name, "feeds.QueryMaker")
	}
	if err := qm.Configure(cfg); err != nil {
		return nil, ixerrors.ComponentConfig(QueryMakerKey, name, err)
	}
	return qm, nil
}
