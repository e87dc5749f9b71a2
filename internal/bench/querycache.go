package bench

import (
	"sync"

	"github.com/idxbench/idxbench/internal/feeds"
	"github.com/idxbench/idxbench/internal/runcfg"
)

// queryCache lazily creates one query maker per consumer kind. Two tasks of
// the same kind share one advancing query stream; distinct kinds iterate
// independently. Instances persist across Reinit; only Dispose discards the
// cache.
type queryCache struct {
	mu        sync.Mutex
	cfg       *runcfg.Config
	makerName string
	makers    map[string]feeds.QueryMaker
}

func newQueryCache(cfg *runcfg.Config, makerName string) *queryCache {
	return &queryCache{
		cfg:       cfg,
		makerName: makerName,
		makers:    map[string]feeds.QueryMaker{},
	}
}

// getOrCreate returns the query maker for a consumer kind, creating and
// configuring it on first use.
func (q *queryCache) getOrCreate(kind string) (feeds.QueryMaker, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if qm, ok := q.makers[kind]; ok {
		return qm, nil
	}
	qm, err := feeds.NewQueryMaker(q.cfg, q.makerName)
	if err != nil {
		return nil, err
	}
	q.makers[kind] = qm
	return qm, nil
}

// resetInputs rewinds every cached maker without discarding the cache.
func (q *queryCache) resetInputs() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, qm := range q.makers {
		qm.ResetInputs()
	}
}
