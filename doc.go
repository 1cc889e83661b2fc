// Package blockpool provides a concurrent fixed-size block allocator.
//
// A Pool carves one contiguous arena into equally sized blocks. Free blocks
// are threaded through an intrusive free list (the link lives in the block
// itself) and grouped into batches. Each goroutine works on its own Cache of
// batches, so the hot path of Allocate and Deallocate takes no lock and
// touches no shared cache line. Caches exchange whole batches with a shared
// central cache when they run dry or hold too much.
//
// # Quick Start
//
//	pool, _ := blockpool.New(1024, 64)
//	defer pool.Close()
//
//	_ = pool.WithCache(func(c *blockpool.Cache) error {
//	    b, ok := c.Allocate()
//	    if !ok {
//	        return errors.New("pool exhausted")
//	    }
//	    defer c.Deallocate(b)
//	    copy(b, "hello")
//	    return nil
//	})
//
// # Workers
//
// RunWorkers starts n goroutines with one Cache each:
//
//	err := pool.RunWorkers(ctx, runtime.GOMAXPROCS(0), func(ctx context.Context, worker int, c *blockpool.Cache) error {
//	    // allocate and free through c
//	    return nil
//	})
//
// A block may be freed through a different cache than the one that
// allocated it.
//
// # Exhaustion
//
// Running out of blocks is not an error: Allocate returns (nil, false) and
// the caller decides what to do. Closing a cache leaves up to BatchSize-1
// blocks in an accumulator shared by all caches; FlushIncomplete releases
// them explicitly.
//
// # Fatal Errors
//
// Misuse that corrupts the free lists cannot be undone, so it panics with a
// *FatalError after logging it: freeing a slice that is not a block of the
// pool, using a closed cache, and, with the sanitizer enabled, double frees.
//
// # Registry
//
// A Registry keeps one pool per tag (a string or a Go type via GetFor).
// Asking for an existing tag with different parameters returns a
// *ConfigMismatchError instead of silently reusing the pool.
//
// # Memory
//
// By default the arena is an anonymous memory mapping, invisible to the
// garbage collector. WithOffHeap(false) uses an aligned heap buffer instead.
// WithResourceController accounts the arena against a memory limit.
package blockpool
