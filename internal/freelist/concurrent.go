package freelist

import (
	"sync"

	"github.com/hupe1980/blockpool/internal/arena"
)

// Concurrent is a mutex-guarded List. Every operation holds the lock for the
// duration of the underlying O(1) or O(n) list work.
type Concurrent struct {
	mu   sync.Mutex
	list List
}

// NewConcurrent returns an empty concurrent list over the blocks of mem.
func NewConcurrent(mem *arena.Arena) *Concurrent {
	return &Concurrent{list: New(mem)}
}

// Len returns the number of blocks.
func (c *Concurrent) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Push adds a free block.
func (c *Concurrent) Push(idx uint32) {
	c.mu.Lock()
	c.list.Push(idx)
	c.mu.Unlock()
}

// TryPop removes one block.
func (c *Concurrent) TryPop() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.TryPop()
}

// StealBlocks splices all of other (owned by the caller) into c.
func (c *Concurrent) StealBlocks(other *List) {
	c.mu.Lock()
	c.list.StealBlocks(other)
	c.mu.Unlock()
}

// TryPopList detaches exactly n blocks. It reports false, leaving c
// unchanged, when fewer than n blocks are present.
func (c *Concurrent) TryPopList(n int) (List, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || c.list.Len() < n {
		return New(c.list.mem), false
	}
	return c.list.TryPopBatch(n), true
}

// TryPopInto pops up to len(dst) blocks into dst and returns how many were written.
func (c *Concurrent) TryPopInto(dst []uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for n < len(dst) {
		idx, ok := c.list.TryPop()
		if !ok {
			break
		}
		dst[n] = idx
		n++
	}
	return n
}

// TakeAll detaches every block.
func (c *Concurrent) TakeAll() List {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := New(c.list.mem)
	out.StealBlocks(&c.list)
	return out
}

// Each calls fn for every block under the lock. fn must not call back into c.
func (c *Concurrent) Each(fn func(idx uint32)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Each(fn)
}
