package feeds

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/idxbench/idxbench/internal/runcfg"
)

// Configuration keys for the built-in facet source.
const (
	FacetSeedKey     = "facet.source.seed"
	FacetMaxDepthKey = "facet.source.max.depth"

	defaultFacetSeed     = 42
	defaultFacetMaxDepth = 3
)

func init() {
	Register(KindFacetSource, "random", func() Producer { return &RandomFacetSource{} })
}

// facetVocab are the root dimensions and their leaf vocabularies used by
// RandomFacetSource.
var facetVocab = []struct {
	root   string
	leaves []string
}{
	{"color", []string{"red", "green", "blue", "yellow", "black"}},
	{"shape", []string{"circle", "square", "triangle", "hexagon"}},
	{"material", []string{"wood", "steel", "glass", "paper", "stone"}},
	{"origin", []string{"north", "south", "east", "west"}},
}

// RandomFacetSource generates deterministic pseudo-random category paths.
// The same seed always yields the same facet stream, so runs are
// reproducible; ResetInputs rewinds the stream to its start.
type RandomFacetSource struct {
	mu       sync.Mutex
	rng      *rand.Rand
	seed     int64
	maxDepth int
}

func (s *RandomFacetSource) Configure(cfg *runcfg.Config) error {
	s.seed = int64(cfg.Int(FacetSeedKey, defaultFacetSeed))
	s.maxDepth = cfg.Int(FacetMaxDepthKey, defaultFacetMaxDepth)
	if s.maxDepth < 1 {
		return fmt.Errorf("%s must be >= 1, got %d", FacetMaxDepthKey, s.maxDepth)
	}
	s.rng = rand.New(rand.NewSource(s.seed))
	return nil
}

func (s *RandomFacetSource) ResetInputs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(s.seed))
}

func (s *RandomFacetSource) Next() ([]FacetPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		return nil, fmt.Errorf("facet source not configured")
	}

	count := 1 + s.rng.Intn(len(facetVocab)-1)
	paths := make([]FacetPath, 0, count)
	for i := 0; i < count; i++ {
		dim := facetVocab[s.rng.Intn(len(facetVocab))]
		depth := 1 + s.rng.Intn(s.maxDepth)

		path := FacetPath{dim.root}
		for len(path) < depth+1 {
			path = append(path, dim.leaves[s.rng.Intn(len(dim.leaves))])
		}
		paths = append(paths, path)
	}
	return paths, nil
}
