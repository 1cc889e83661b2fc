package blockpool

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/blockpool/internal/arena"
	"github.com/hupe1980/blockpool/internal/freelist"
	"github.com/hupe1980/blockpool/resource"
)

// Pool is a fixed-size block allocator.
//
// All blocks live in a single arena. Free blocks are kept in batches that move
// between per-worker caches (see Cache) and a shared central cache, so the
// common allocate/free path touches no shared state.
//
// Pool itself is safe for concurrent use. Allocation and deallocation go
// through a Cache, which is not.
type Pool struct {
	mem        *arena.Arena
	central    *centralCache
	incomplete *freelist.Concurrent
	san        *sanitizer // nil unless sanitizing

	params    Params
	batchSize int
	maxLocal  int

	logger     *Logger
	metrics    MetricsCollector
	controller *resource.Controller

	liveCaches atomic.Int64
}

// Stats is a snapshot of pool occupancy. Values are approximate while other
// goroutines allocate.
type Stats struct {
	BlockSize        int // effective block size
	NofBlocks        int
	BatchSize        int
	MaxLocalBatches  int
	CentralBatches   int
	CentralBlocks    int
	IncompleteBlocks int // blocks parked in the incomplete-batch accumulator
	LiveCaches       int
	LiveBlocks       int // blocks held by callers; only tracked with the sanitizer
}

// New creates a pool of nofBlocks blocks of at least blockSize bytes each.
//
// blockSize is rounded up to a multiple of 16 and must be at least 8 bytes,
// which hold the free-list link of a free block.
func New(nofBlocks, blockSize int, optFns ...Option) (*Pool, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.batchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, opts.batchSize)
	}
	if opts.maxLocalCapacity < minLocalBatches {
		return nil, fmt.Errorf("%w: %d, need at least %d", ErrInvalidCacheCapacity, opts.maxLocalCapacity, minLocalBatches)
	}

	arenaOpts := []arena.Option{arena.WithOffHeap(opts.offHeap)}
	if opts.controller != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(opts.controller))
	}

	mem, err := arena.New(nofBlocks, blockSize, arenaOpts...)
	if err != nil {
		return nil, translateError(err)
	}

	logger := opts.logger.WithPool(nofBlocks, mem.BlockSize())
	if opts.tag != "" {
		logger = logger.WithTag(opts.tag)
	}

	p := &Pool{
		mem:        mem,
		central:    newCentralCache(nofBlocks),
		incomplete: freelist.NewConcurrent(mem),
		params:     Params{NofBlocks: nofBlocks, BlockSize: blockSize},
		batchSize:  opts.batchSize,
		maxLocal:   maxLocalBatches(nofBlocks, opts.batchSize, opts.maxLocalCapacity),
		logger:     logger,
		metrics:    opts.metricsCollector,
		controller: opts.controller,
	}
	if opts.sanitize {
		p.san = newSanitizer()
	}

	p.carve()

	logger.LogCreated(context.Background(), p.Stats(), opts.offHeap)
	return p, nil
}

func maxLocalBatches(nofBlocks, batchSize, capacity int) int {
	n := nofBlocks / batchSize / localBatchDivisor
	return max(minLocalBatches, min(n, capacity))
}

// carve splits the arena into batches. Each batch pops its blocks in
// ascending address order; a trailing short batch holds the remainder.
func (p *Pool) carve() {
	n := p.mem.NofBlocks()
	for start := 0; start < n; start += p.batchSize {
		end := min(start+p.batchSize, n)
		batch := freelist.New(p.mem)
		for i := end - 1; i >= start; i-- {
			batch.Push(uint32(i)) //nolint:gosec // bounded by the arena block count
		}
		p.pushCentral(batch)
	}
}

// pushCentral enqueues batch or fails fatally.
func (p *Pool) pushCentral(batch freelist.List) {
	if !p.central.tryPush(batch) {
		batches, blocks := p.central.size()
		p.fatalf("central cache rejected batch of %d blocks (holding %d batches, %d of %d blocks)",
			batch.Len(), batches, blocks, p.mem.NofBlocks())
	}
}

// MemoryBlockSize returns the size of every block, after alignment.
func (p *Pool) MemoryBlockSize() int { return p.mem.BlockSize() }

// NofMemoryBlocks returns the number of blocks in the pool.
func (p *Pool) NofMemoryBlocks() int { return p.mem.NofBlocks() }

// MaxLocalCacheSize returns the number of batches a local cache may hold
// before it migrates surplus batches to the central cache.
func (p *Pool) MaxLocalCacheSize() int { return p.maxLocal }

// BatchSize returns the number of blocks per batch.
func (p *Pool) BatchSize() int { return p.batchSize }

// Params returns the parameters the pool was created with.
func (p *Pool) Params() Params { return p.params }

// Owns reports whether b is a block handed out by this pool.
func (p *Pool) Owns(b []byte) bool {
	_, ok := p.mem.Index(b)
	return ok
}

// Stats returns a snapshot of the pool occupancy.
func (p *Pool) Stats() Stats {
	batches, blocks := p.central.size()
	s := Stats{
		BlockSize:        p.mem.BlockSize(),
		NofBlocks:        p.mem.NofBlocks(),
		BatchSize:        p.batchSize,
		MaxLocalBatches:  p.maxLocal,
		CentralBatches:   batches,
		CentralBlocks:    blocks,
		IncompleteBlocks: p.incomplete.Len(),
		LiveCaches:       int(p.liveCaches.Load()),
	}
	if p.san != nil {
		s.LiveBlocks = p.san.count()
	}
	return s
}

// FlushIncomplete moves the blocks parked in the incomplete-batch accumulator
// to the central cache as one short batch and returns how many were moved.
//
// Closing caches leaves up to BatchSize-1 blocks in the accumulator; call
// FlushIncomplete when those must become allocatable again.
func (p *Pool) FlushIncomplete() int {
	batch := p.incomplete.TakeAll()
	n := batch.Len()
	if n > 0 {
		p.pushCentral(batch)
	}
	return n
}

// NewCache returns a local cache bound to p. Each goroutine that allocates
// needs its own cache, and must Close it when done.
func (p *Pool) NewCache() *Cache {
	p.liveCaches.Add(1)
	return &Cache{
		pool:    p,
		batches: make([]freelist.List, 0, p.maxLocal),
	}
}

// WithCache runs fn with a fresh cache and closes it afterwards, also when fn
// panics.
func (p *Pool) WithCache(fn func(c *Cache) error) error {
	c := p.NewCache()
	defer c.Close()
	return fn(c)
}

// PrintAllBuffers logs the occupancy of the central cache, the accumulator
// and c. c may be nil.
func (p *Pool) PrintAllBuffers(ctx context.Context, c *Cache) {
	p.logger.LogBuffers(ctx, p.Stats(), c.Stats())
}

// DebugString renders the same information as PrintAllBuffers.
func (p *Pool) DebugString(c *Cache) string {
	s := p.Stats()
	local := c.Stats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "central: %d batches, %d blocks\n", s.CentralBatches, s.CentralBlocks)
	fmt.Fprintf(&sb, "incomplete: %d blocks\n", s.IncompleteBlocks)
	fmt.Fprintf(&sb, "local: %d batches, %d blocks", local.Batches, local.Blocks)
	return sb.String()
}

func (p *Pool) String() string {
	return fmt.Sprintf("Pool{blocks: %d, blockSize: %d, batchSize: %d, maxLocal: %d}",
		p.mem.NofBlocks(), p.mem.BlockSize(), p.batchSize, p.maxLocal)
}

// exhausted reports a failed allocation.
func (p *Pool) exhausted() {
	p.metrics.RecordAllocate(false)
	if p.controller.AllowEvent() {
		p.logger.LogExhausted(context.Background(), p.Stats())
	}
}

// resolve maps b to its block index or fails fatally.
func (p *Pool) resolve(b []byte) uint32 {
	idx, ok := p.mem.Index(b)
	if !ok {
		if p.mem.Closed() {
			p.fatalf("deallocate on closed pool")
		}
		p.fatalf("deallocate of foreign or misaligned block (len %d)", len(b))
	}
	return idx
}
