package bench

import (
	"sync"

	"github.com/idxbench/idxbench/internal/engine"
)

// Pinned is the reference-count capability required of cell-managed
// resources. Pinning keeps a resource open; the holder that unpins it to
// zero releases it. Misuse (pin after release, unpin without pin) is a
// programming error and panics.
type Pinned interface {
	Pin()
	Unpin()
}

// pinnedRef constrains cells to strictly comparable pinned types, so a cell
// can detect same-instance swaps.
type pinnedRef interface {
	comparable
	Pinned
}

// Cell is a lock-guarded slot holding at most one pinned resource. The cell
// owns exactly one pin on its current resource for as long as it holds it.
type Cell[T pinnedRef] struct {
	mu  sync.Mutex
	cur T
}

// Get pins the current resource and returns it. The caller owns one pin and
// must unpin after use. Returns ok=false when the cell is empty.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if c.cur == zero {
		return zero, false
	}
	c.cur.Pin()
	return c.cur, true
}

// Set swaps the cell's resource: pin next, unpin the previous current, store
// next, all under one critical section. Setting the instance the cell
// already holds is a true no-op, so no transient zero-pin window can let a
// concurrent teardown close a live resource.
func (c *Cell[T]) Set(next T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next == c.cur {
		return
	}
	var zero T
	if next != zero {
		next.Pin()
	}
	if c.cur != zero {
		c.cur.Unpin()
	}
	c.cur = next
}

// Clear empties the cell, releasing its pin on the current resource.
func (c *Cell[T]) Clear() {
	var zero T
	c.Set(zero)
}

// ReaderCell is the index-reader slot. It couples the reader handle with
// its derived searcher: both are swapped in one critical section, so a Get
// never observes a searcher wrapping a different reader than the handle
// returned with it.
type ReaderCell struct {
	mu       sync.Mutex
	cur      *engine.ReaderHandle
	searcher *engine.Searcher
}

// Get pins the current reader and returns it with its bound searcher. The
// caller owns one pin on the reader and must unpin after use.
func (c *ReaderCell) Get() (*engine.ReaderHandle, *engine.Searcher, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil, nil, false
	}
	c.cur.Pin()
	return c.cur, c.searcher, true
}

// Set swaps the reader and rebuilds the derived searcher in the same
// critical section. A nil next empties the cell and drops the searcher.
// Setting the current instance again is a true no-op.
func (c *ReaderCell) Set(next *engine.ReaderHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next == c.cur {
		return
	}
	if next != nil {
		next.Pin()
	}
	if c.cur != nil {
		c.cur.Unpin()
	}
	c.cur = next
	if next != nil {
		c.searcher = engine.NewSearcher(next)
	} else {
		c.searcher = nil
	}
}

// Clear empties the cell.
func (c *ReaderCell) Clear() {
	c.Set(nil)
}
