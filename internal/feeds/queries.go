package feeds

import (
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/idxbench/idxbench/internal/runcfg"
)

func init() {
	Register(KindQueryMaker, "simple", func() Producer { return &SimpleQueryMaker{} })
}

// querySpec pairs a human-readable description with a query builder. A fresh
// query is built per request so concurrent searches never share state.
type querySpec struct {
	desc  string
	build func() query.Query
}

// SimpleQueryMaker cycles a small fixed set of term, match, phrase, and
// prefix queries against the body field. It is the default query maker.
// Each instance keeps its own stream position, so distinct consumer kinds
// iterate independently.
type SimpleQueryMaker struct {
	specs []querySpec
	next  atomic.Int64
}

func (m *SimpleQueryMaker) Configure(*runcfg.Config) error {
	m.specs = []querySpec{
		{"term(body:benchmark)", func() query.Query {
			q := bleve.NewTermQuery("benchmark")
			q.SetField("body")
			return q
		}},
		{"match(body:quick brown fox)", func() query.Query {
			q := bleve.NewMatchQuery("quick brown fox")
			q.SetField("body")
			return q
		}},
		{"phrase(body:lazy dog)", func() query.Query {
			q := bleve.NewMatchPhraseQuery("lazy dog")
			q.SetField("body")
			return q
		}},
		{"prefix(body:synth)", func() query.Query {
			q := bleve.NewPrefixQuery("synth")
			q.SetField("body")
			return q
		}},
		{"match(title:document)", func() query.Query {
			q := bleve.NewMatchQuery("document")
			q.SetField("title")
			return q
		}},
	}
	return nil
}

func (m *SimpleQueryMaker) ResetInputs() { m.next.Store(0) }

func (m *SimpleQueryMaker) Next() (*bleve.SearchRequest, error) {
	n := m.next.Add(1) - 1
	spec := m.specs[int(n)%len(m.specs)]
	req := bleve.NewSearchRequest(spec.build())
	req.Size = 10
	return req, nil
}

func (m *SimpleQueryMaker) Queries() []string {
	out := make([]string, len(m.specs))
	for i, spec := range m.specs {
		out[i] = spec.desc
	}
	return out
}
