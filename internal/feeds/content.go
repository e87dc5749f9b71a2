package feeds

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/idxbench/idxbench/internal/runcfg"
)

// Configuration keys for the built-in content sources.
const (
	LineDocFileKey = "content.source.file"
	CacheInnerKey  = "content.source.cache"
	CacheSizeKey   = "content.source.cache.size"

	defaultCacheSize = 1024
)

func init() {
	Register(KindContentSource, "single-doc", func() Producer { return &SingleDocSource{} })
	Register(KindContentSource, "line-doc", func() Producer { return &LineDocSource{} })
	Register(KindContentSource, "cached", func() Producer { return &CachedContentSource{} })
}

// singleDocBody is the fixed content repeated by SingleDocSource. Long
// enough to give the analyzer and the index something to chew on.
const singleDocBody = "The quick brown fox jumps over the lazy dog. " +
	"A benchmark measures indexing throughput and query latency against a " +
	"steady stream of synthetic documents, holding content constant so " +
	"engine behavior is the only variable under test."

var singleDocEpoch = time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)

// SingleDocSource repeats one fixed document with an advancing ordinal and
// timestamp. It is the default content source.
type SingleDocSource struct {
	next atomic.Int64
}

func (s *SingleDocSource) Configure(*runcfg.Config) error { return nil }

func (s *SingleDocSource) ResetInputs() { s.next.Store(0) }

func (s *SingleDocSource) Next() (*Content, error) {
	n := s.next.Add(1) - 1
	return &Content{
		ID:      fmt.Sprintf("doc-%06d", n),
		Title:   fmt.Sprintf("Synthetic document %d", n),
		Body:    singleDocBody,
		Date:    singleDocEpoch.Add(time.Duration(n) * time.Minute),
		Ordinal: n,
	}, nil
}

// LineDocSource reads newline-delimited content from a file. Each line is
// either "title<TAB>body" or a bare body; the stream wraps around when it
// reaches the end of the file.
type LineDocSource struct {
	lines []string
	next  atomic.Int64
}

func (s *LineDocSource) Configure(cfg *runcfg.Config) error {
	path := cfg.String(LineDocFileKey, "")
	if path == "" {
		return fmt.Errorf("line-doc source requires %s", LineDocFileKey)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return fmt.Errorf("%s: %s has no content lines", LineDocFileKey, path)
	}
	s.lines = lines
	return nil
}

func (s *LineDocSource) ResetInputs() { s.next.Store(0) }

func (s *LineDocSource) Next() (*Content, error) {
	n := s.next.Add(1) - 1
	line := s.lines[int(n)%len(s.lines)]

	title := ""
	body := line
	if idx := strings.IndexByte(line, '\t'); idx >= 0 {
		title = line[:idx]
		body = line[idx+1:]
	}
	return &Content{
		ID:      fmt.Sprintf("doc-%06d", n),
		Title:   title,
		Body:    body,
		Date:    singleDocEpoch.Add(time.Duration(n) * time.Minute),
		Ordinal: n,
	}, nil
}

// CachedContentSource wraps another source and keeps recently produced
// content in an LRU cache keyed by ordinal, so repeated passes after a
// ResetInputs replay without re-reading the wrapped source.
type CachedContentSource struct {
	inner ContentSource
	cache *lru.Cache[int64, Content]
	next  atomic.Int64
}

func (s *CachedContentSource) Configure(cfg *runcfg.Config) error {
	innerName := cfg.String(CacheInnerKey, DefaultContentSource)
	if innerName == "cached" {
		return fmt.Errorf("%s must not name the cached source itself", CacheInnerKey)
	}
	inner, err := newContentSource(cfg, CacheInnerKey, innerName)
	if err != nil {
		return err
	}
	size := cfg.Int(CacheSizeKey, defaultCacheSize)
	cache, err := lru.New[int64, Content](size)
	if err != nil {
		return fmt.Errorf("%s=%d: %w", CacheSizeKey, size, err)
	}
	s.inner = inner
	s.cache = cache
	return nil
}

func (s *CachedContentSource) ResetInputs() {
	s.next.Store(0)
	s.inner.ResetInputs()
}

func (s *CachedContentSource) Next() (*Content, error) {
	n := s.next.Add(1) - 1
	if c, ok := s.cache.Get(n); ok {
		out := c
		return &out, nil
	}
	c, err := s.inner.Next()
	if err != nil {
		return nil, err
	}
	c.Ordinal = n
	s.cache.Add(n, *c)
	return c, nil
}
