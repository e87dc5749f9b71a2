package bench

import (
	"io"
	"sync"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
)

// perfRegistry is the cross-task shared-state store: a lock-guarded string
// map with last-write-wins semantics. Entries exposing io.Closer are closed
// exactly once at run-context teardown; keys are coordinated by callers.
type perfRegistry struct {
	mu      sync.Mutex
	objects map[string]any
}

func newPerfRegistry() *perfRegistry {
	return &perfRegistry{objects: map[string]any{}}
}

func (r *perfRegistry) get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[key]
	return obj, ok
}

func (r *perfRegistry) set(key string, obj any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[key] = obj
}

// closeAll disposes every closeable entry, recording failures per key, and
// empties the registry so a second teardown finds nothing to close.
func (r *perfRegistry) closeAll(tc *ixerrors.TeardownCollector) {
	r.mu.Lock()
	objects := r.objects
	r.objects = map[string]any{}
	r.mu.Unlock()

	for key, obj := range objects {
		if closer, ok := obj.(io.Closer); ok {
			tc.Step("close perf object "+key, closer.Close)
		}
	}
}
