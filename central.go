package blockpool

import (
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sys/cpu"

	"github.com/hupe1980/blockpool/internal/freelist"
)

// centralCache is the shared FIFO of batches.
//
// It holds complete batches, plus the construction remainder and whatever
// FlushIncomplete hands over. The total block count can never exceed the pool
// size, which bounds the queue.
type centralCache struct {
	_      cpu.CacheLinePad
	mu     sync.Mutex
	q      *queue.Queue
	blocks int
	limit  int
	_      cpu.CacheLinePad
}

func newCentralCache(limit int) *centralCache {
	return &centralCache{
		q:     queue.New(),
		limit: limit,
	}
}

// tryPush enqueues batch. It reports false for an empty batch or when the
// queue would hold more blocks than exist.
func (c *centralCache) tryPush(batch freelist.List) bool {
	n := batch.Len()
	if n == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.blocks+n > c.limit {
		return false
	}
	c.q.Add(batch)
	c.blocks += n
	return true
}

func (c *centralCache) tryPop() (freelist.List, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.q.Length() == 0 {
		return freelist.List{}, false
	}
	batch := c.q.Remove().(freelist.List) //nolint:forcetypeassert // only lists are enqueued
	c.blocks -= batch.Len()
	return batch, true
}

// size returns the number of queued batches and blocks.
func (c *centralCache) size() (batches, blocks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.q.Length(), c.blocks
}

// each calls fn for every queued batch, oldest first, under the lock.
func (c *centralCache) each(fn func(batch *freelist.List)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < c.q.Length(); i++ {
		batch := c.q.Get(i).(freelist.List) //nolint:forcetypeassert // only lists are enqueued
		fn(&batch)
	}
}
