package blockpool

import (
	"context"

	"github.com/hupe1980/blockpool/internal/freelist"
)

// Cache is a per-worker front end of a Pool.
//
// A Cache keeps up to MaxLocalCacheSize batches of free blocks. It is not
// safe for concurrent use: create one per goroutine with Pool.NewCache (or
// use Pool.WithCache / Pool.RunWorkers) and Close it when the goroutine is
// done. Blocks may be freed through any cache of the same pool.
//
// Every batch except the last one is full.
type Cache struct {
	pool    *Pool
	batches []freelist.List
	closed  bool
}

// CacheStats describes a local cache.
type CacheStats struct {
	Batches int
	Blocks  int
}

// Allocate returns a free block, or false when the pool is exhausted.
//
// The block has len == cap == MemoryBlockSize. Its first 8 bytes are zero;
// the rest holds whatever the previous owner left there.
func (c *Cache) Allocate() ([]byte, bool) {
	p := c.pool
	c.checkOpen()

	if len(c.batches) == 0 {
		batch, ok := p.central.tryPop()
		if !ok {
			p.exhausted()
			return nil, false
		}
		c.batches = append(c.batches, batch)
		p.metrics.RecordRefill(batch.Len())
	}

	last := len(c.batches) - 1
	idx := c.batches[last].Pop()
	if c.batches[last].Empty() {
		c.batches[last] = freelist.List{}
		c.batches = c.batches[:last]
	}

	if p.san != nil && !p.san.acquire(idx) {
		p.fatalf("block %d handed out twice", idx)
	}
	p.metrics.RecordAllocate(true)
	return p.mem.Block(idx), true
}

// Deallocate returns b to the pool. b must be a block obtained from
// Allocate on any cache of the same pool and not freed since.
//
// Freeing a slice that is not a block of this pool is fatal. With the
// sanitizer enabled, so is a double free.
func (c *Cache) Deallocate(b []byte) {
	p := c.pool
	c.checkOpen()

	idx := p.resolve(b)
	if p.san != nil && !p.san.release(idx) {
		p.fatalf("double free of block %d", idx)
	}

	n := len(c.batches)
	if n == 0 || c.batches[n-1].Len() >= p.batchSize {
		c.batches = append(c.batches, freelist.New(p.mem))
		n++
	}
	c.batches[n-1].Push(idx)
	p.metrics.RecordDeallocate()

	if n >= p.maxLocal && c.batches[n-1].Len() == p.batchSize {
		c.rebalance()
	}
}

// rebalance moves every batch but the last to the central cache.
func (c *Cache) rebalance() {
	p := c.pool
	last := len(c.batches) - 1
	for i := 0; i < last; i++ {
		p.assertf(c.batches[i].Len() == p.batchSize,
			"migrating batch of %d blocks, want %d", c.batches[i].Len(), p.batchSize)
		p.pushCentral(c.batches[i])
		c.batches[i] = freelist.List{}
	}
	c.batches[0] = c.batches[last]
	c.batches[last] = freelist.List{}
	c.batches = c.batches[:1]

	p.metrics.RecordRebalance(last)
	p.logger.LogRebalance(context.Background(), last)
}

// Stats returns the local occupancy. A nil cache reports zero.
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	s := CacheStats{Batches: len(c.batches)}
	for i := range c.batches {
		s.Blocks += c.batches[i].Len()
	}
	return s
}

// Close hands all cached blocks back to the pool.
//
// Full batches go to the central cache. A trailing short batch is merged
// into the pool's incomplete-batch accumulator, which releases a batch to
// the central cache each time it fills up. Close is idempotent; any other
// use of a closed cache is fatal.
func (c *Cache) Close() {
	if c.closed {
		return
	}
	c.closed = true

	p := c.pool
	p.liveCaches.Add(-1)
	if p.mem.Closed() {
		c.batches = nil
		return
	}

	full, merged := 0, 0
	for i := range c.batches {
		batch := &c.batches[i]
		if batch.Len() == p.batchSize {
			p.pushCentral(*batch)
			full++
		} else {
			merged += batch.Len()
			c.merge(batch)
		}
		*batch = freelist.List{}
	}
	c.batches = nil

	p.metrics.RecordTeardown(full, merged)
	p.logger.LogTeardown(context.Background(), full, merged)
}

// merge moves batch block by block into the accumulator.
func (c *Cache) merge(batch *freelist.List) {
	p := c.pool
	for {
		idx, ok := batch.TryPop()
		if !ok {
			return
		}
		p.incomplete.Push(idx)
		if complete, ok := p.incomplete.TryPopList(p.batchSize); ok {
			p.pushCentral(complete)
		}
	}
}

func (c *Cache) checkOpen() {
	if c.closed {
		c.pool.fatalf("use of closed cache")
	}
	if c.pool.mem.Closed() {
		c.pool.fatalf("use of closed pool")
	}
}
