package blockpool_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockpool"
	"github.com/hupe1980/blockpool/resource"
)

func newPool(t *testing.T, nofBlocks, blockSize int, opts ...blockpool.Option) *blockpool.Pool {
	t.Helper()
	p, err := blockpool.New(nofBlocks, blockSize, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func newCache(t *testing.T, p *blockpool.Pool) *blockpool.Cache {
	t.Helper()
	c := p.NewCache()
	t.Cleanup(c.Close)
	return c
}

// requireFatal runs fn and returns the *FatalError it panics with.
func requireFatal(t *testing.T, fn func()) *blockpool.FatalError {
	t.Helper()
	var fe *blockpool.FatalError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected fatal panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
			require.ErrorAs(t, err, &fe)
		}()
		fn()
	}()
	return fe
}

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := newPool(t, 256, 64)

		assert.Equal(t, 64, p.MemoryBlockSize())
		assert.Equal(t, 256, p.NofMemoryBlocks())
		assert.Equal(t, blockpool.DefaultBatchSize, p.BatchSize())
		assert.Equal(t, 2, p.MaxLocalCacheSize())
		assert.Equal(t, blockpool.Params{NofBlocks: 256, BlockSize: 64}, p.Params())

		s := p.Stats()
		assert.Equal(t, 8, s.CentralBatches)
		assert.Equal(t, 256, s.CentralBlocks)
		assert.Zero(t, s.IncompleteBlocks)
		assert.Zero(t, s.LiveCaches)
	})

	t.Run("BlockSizeIsAligned", func(t *testing.T) {
		p := newPool(t, 10, 20)
		assert.Equal(t, 32, p.MemoryBlockSize())
		assert.Equal(t, blockpool.Params{NofBlocks: 10, BlockSize: 20}, p.Params())
	})

	t.Run("RemainderBatch", func(t *testing.T) {
		p := newPool(t, 100, 16)
		s := p.Stats()
		assert.Equal(t, 4, s.CentralBatches)
		assert.Equal(t, 100, s.CentralBlocks)
	})

	t.Run("LocalCapacityScales", func(t *testing.T) {
		p := newPool(t, 32*32*10, 16)
		assert.Equal(t, 10, p.MaxLocalCacheSize())

		p = newPool(t, 32*32*10, 16, blockpool.WithMaxLocalBatchCapacity(4))
		assert.Equal(t, 4, p.MaxLocalCacheSize())
	})

	t.Run("HeapBacked", func(t *testing.T) {
		p := newPool(t, 64, 64, blockpool.WithOffHeap(false))
		c := newCache(t, p)

		b, ok := c.Allocate()
		require.True(t, ok)
		assert.True(t, p.Owns(b))
		c.Deallocate(b)
	})

	t.Run("InvalidParams", func(t *testing.T) {
		tests := []struct {
			name      string
			nofBlocks int
			blockSize int
			opts      []blockpool.Option
			want      error
		}{
			{name: "block too small", nofBlocks: 16, blockSize: 4, want: blockpool.ErrInvalidBlockSize},
			{name: "no blocks", nofBlocks: 0, blockSize: 16, want: blockpool.ErrInvalidBlockCount},
			{name: "negative blocks", nofBlocks: -1, blockSize: 16, want: blockpool.ErrInvalidBlockCount},
			{name: "zero batch", nofBlocks: 16, blockSize: 16, opts: []blockpool.Option{blockpool.WithBatchSize(0)}, want: blockpool.ErrInvalidBatchSize},
			{name: "local capacity", nofBlocks: 16, blockSize: 16, opts: []blockpool.Option{blockpool.WithMaxLocalBatchCapacity(1)}, want: blockpool.ErrInvalidCacheCapacity},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p, err := blockpool.New(tt.nofBlocks, tt.blockSize, tt.opts...)
				require.ErrorIs(t, err, tt.want)
				assert.Nil(t, p)
			})
		}
	})
}

func TestExhaustionAndRecovery(t *testing.T) {
	p := newPool(t, 256, 64)
	c := newCache(t, p)

	seen := make(map[*byte]bool)
	blocks := make([][]byte, 0, 256)
	for i := 0; i < 256; i++ {
		b, ok := c.Allocate()
		require.True(t, ok, "allocation %d", i)
		require.Len(t, b, 64)
		require.Equal(t, 64, cap(b))
		require.False(t, seen[&b[0]], "block handed out twice")
		seen[&b[0]] = true
		blocks = append(blocks, b)
	}

	b, ok := c.Allocate()
	assert.False(t, ok)
	assert.Nil(t, b)

	freed := blocks[17]
	c.Deallocate(freed)

	b, ok = c.Allocate()
	require.True(t, ok)
	assert.Same(t, &freed[0], &b[0])
}

func TestExhaustionAcrossCaches(t *testing.T) {
	p := newPool(t, 64, 16)
	a := newCache(t, p)
	b := newCache(t, p)

	held := make([][]byte, 0, 64)
	for {
		blk, ok := a.Allocate()
		if !ok {
			break
		}
		held = append(held, blk)
	}
	require.Len(t, held, 64)

	_, ok := b.Allocate()
	assert.False(t, ok)

	for _, blk := range held {
		b.Deallocate(blk)
	}
	_, ok = a.Allocate()
	assert.True(t, ok, "cache b migrated a batch to the central cache")
}

func TestAllocateClearsHeader(t *testing.T) {
	p := newPool(t, 32, 32)
	c := newCache(t, p)

	b, ok := c.Allocate()
	require.True(t, ok)
	for i := range b {
		b[i] = 0xff
	}
	c.Deallocate(b)

	b, ok = c.Allocate()
	require.True(t, ok)
	assert.Equal(t, make([]byte, 8), b[:8])
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 24), b[8:])
}

func TestOwns(t *testing.T) {
	p := newPool(t, 32, 64)
	c := newCache(t, p)

	b, ok := c.Allocate()
	require.True(t, ok)

	assert.True(t, p.Owns(b))
	assert.True(t, p.Owns(b[:1]))
	assert.False(t, p.Owns(b[8:]))
	assert.False(t, p.Owns(make([]byte, 64)))
	assert.False(t, p.Owns(nil))

	other := newPool(t, 32, 64)
	assert.False(t, other.Owns(b))
}

func TestDeallocateForeignIsFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := blockpool.NewLogger(slog.NewTextHandler(&buf, nil))
	p := newPool(t, 32, 64, blockpool.WithLogger(logger))
	c := newCache(t, p)

	fe := requireFatal(t, func() { c.Deallocate(make([]byte, 64)) })
	assert.Contains(t, fe.Msg, "foreign")
	assert.Contains(t, buf.String(), "fatal allocator error")

	b, ok := c.Allocate()
	require.True(t, ok)
	requireFatal(t, func() { c.Deallocate(b[16:]) })
}

func TestCrossCacheFree(t *testing.T) {
	p := newPool(t, 256, 16)
	a := p.NewCache()
	b := p.NewCache()
	assert.Equal(t, 2, p.Stats().LiveCaches)

	held := make([][]byte, 0, 10)
	for i := 0; i < 10; i++ {
		blk, ok := a.Allocate()
		require.True(t, ok)
		held = append(held, blk)
	}
	assert.Equal(t, blockpool.CacheStats{Batches: 1, Blocks: 22}, a.Stats())

	for _, blk := range held {
		b.Deallocate(blk)
	}
	assert.Equal(t, blockpool.CacheStats{Batches: 1, Blocks: 10}, b.Stats())

	a.Close()
	assert.Equal(t, 22, p.Stats().IncompleteBlocks)

	b.Close()
	s := p.Stats()
	assert.Zero(t, s.IncompleteBlocks)
	assert.Equal(t, 256, s.CentralBlocks)
	assert.Equal(t, 8, s.CentralBatches)
	assert.Zero(t, s.LiveCaches)
}

func TestRebalance(t *testing.T) {
	mc := &blockpool.BasicMetricsCollector{}
	p := newPool(t, 4096, 16, blockpool.WithMetricsCollector(mc))
	require.Equal(t, 4, p.MaxLocalCacheSize())

	a := newCache(t, p)
	held := make([][]byte, 0, 4096)
	for {
		blk, ok := a.Allocate()
		if !ok {
			break
		}
		held = append(held, blk)
	}
	require.Len(t, held, 4096)
	require.Zero(t, p.Stats().CentralBlocks)

	b := newCache(t, p)
	for _, blk := range held[:127] {
		b.Deallocate(blk)
	}
	assert.Equal(t, blockpool.CacheStats{Batches: 4, Blocks: 127}, b.Stats())
	assert.Zero(t, p.Stats().CentralBatches)

	b.Deallocate(held[127])
	assert.Equal(t, blockpool.CacheStats{Batches: 1, Blocks: 32}, b.Stats())

	s := p.Stats()
	assert.Equal(t, 3, s.CentralBatches)
	assert.Equal(t, 96, s.CentralBlocks)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.RebalanceCount)
	assert.Equal(t, int64(3), stats.RebalanceBatches)
}

func TestCloseMergesIncompleteBatches(t *testing.T) {
	p := newPool(t, 64, 16, blockpool.WithBatchSize(8))

	a := p.NewCache()
	held := make([][]byte, 0, 3)
	for i := 0; i < 3; i++ {
		b, ok := a.Allocate()
		require.True(t, ok)
		held = append(held, b)
	}
	a.Close()

	s := p.Stats()
	assert.Equal(t, 5, s.IncompleteBlocks)
	assert.Equal(t, 56, s.CentralBlocks)

	c := p.NewCache()
	for _, b := range held {
		c.Deallocate(b)
	}
	c.Close()

	s = p.Stats()
	assert.Zero(t, s.IncompleteBlocks)
	assert.Equal(t, 64, s.CentralBlocks)
	assert.Equal(t, 8, s.CentralBatches)
}

func TestFlushIncomplete(t *testing.T) {
	p := newPool(t, 16, 16, blockpool.WithBatchSize(8))

	a := p.NewCache()
	kept, ok := a.Allocate()
	require.True(t, ok)
	a.Close()
	require.Equal(t, 7, p.Stats().IncompleteBlocks)

	assert.Equal(t, 7, p.FlushIncomplete())
	assert.Zero(t, p.FlushIncomplete())

	b := p.NewCache()
	b.Deallocate(kept)
	b.Close()
	require.Equal(t, 1, p.Stats().IncompleteBlocks)

	c := newCache(t, p)
	for i := 0; i < 15; i++ {
		_, ok := c.Allocate()
		require.True(t, ok, "allocation %d", i)
	}
	_, ok = c.Allocate()
	assert.False(t, ok, "last block is stranded in the accumulator")

	assert.Equal(t, 1, p.FlushIncomplete())
	_, ok = c.Allocate()
	assert.True(t, ok)
}

func TestCacheClose(t *testing.T) {
	p := newPool(t, 32, 16)
	c := p.NewCache()

	c.Close()
	assert.NotPanics(t, c.Close)

	fe := requireFatal(t, func() { c.Allocate() })
	assert.Contains(t, fe.Msg, "closed cache")
}

func TestSanitizer(t *testing.T) {
	p := newPool(t, 64, 16, blockpool.WithSanitizer(true))
	c := newCache(t, p)

	b, ok := c.Allocate()
	require.True(t, ok)
	assert.Equal(t, 1, p.Stats().LiveBlocks)

	c.Deallocate(b)
	assert.Zero(t, p.Stats().LiveBlocks)

	fe := requireFatal(t, func() { c.Deallocate(b) })
	assert.Contains(t, fe.Msg, "double free")
}

func TestPoolClose(t *testing.T) {
	p, err := blockpool.New(32, 16)
	require.NoError(t, err)

	c := p.NewCache()
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.NotPanics(t, c.Close)

	c = p.NewCache()
	fe := requireFatal(t, func() { c.Allocate() })
	assert.Contains(t, fe.Msg, "closed pool")
}

func TestResourceController(t *testing.T) {
	t.Run("AccountsArena", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

		p, err := blockpool.New(256, 64, blockpool.WithResourceController(rc))
		require.NoError(t, err)
		assert.Equal(t, int64(256*64), rc.MemoryUsage())

		require.NoError(t, p.Close())
		assert.Zero(t, rc.MemoryUsage())
	})

	t.Run("RejectsOverLimit", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})

		_, err := blockpool.New(256, 64, blockpool.WithResourceController(rc))
		require.ErrorIs(t, err, blockpool.ErrMemoryLimitExceeded)
		assert.Zero(t, rc.MemoryUsage())
	})

	t.Run("ThrottlesExhaustionWarnings", func(t *testing.T) {
		var buf bytes.Buffer
		logger := blockpool.NewLogger(slog.NewTextHandler(&buf, nil))
		rc := resource.NewController(resource.Config{EventsPerSec: 0.001, EventBurst: 1})

		p := newPool(t, 32, 16, blockpool.WithLogger(logger), blockpool.WithResourceController(rc))
		c := newCache(t, p)
		for i := 0; i < 32; i++ {
			_, ok := c.Allocate()
			require.True(t, ok)
		}
		for i := 0; i < 3; i++ {
			_, ok := c.Allocate()
			require.False(t, ok)
		}

		assert.Equal(t, 1, strings.Count(buf.String(), "pool exhausted"))
		assert.Equal(t, int64(2), rc.DroppedEvents())
	})
}

func TestDebugOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := blockpool.NewLogger(slog.NewJSONHandler(&buf, nil))
	p := newPool(t, 64, 16, blockpool.WithLogger(logger))
	c := newCache(t, p)

	_, ok := c.Allocate()
	require.True(t, ok)

	buf.Reset()
	p.PrintAllBuffers(t.Context(), c)
	out := buf.String()
	assert.Contains(t, out, `"msg":"pool buffers"`)
	assert.Contains(t, out, `"central_batches":1`)
	assert.Contains(t, out, `"local_blocks":31`)
	assert.Contains(t, out, `"nof_blocks":64`)

	assert.Equal(t,
		"central: 1 batches, 32 blocks\nincomplete: 0 blocks\nlocal: 1 batches, 31 blocks",
		p.DebugString(c))
	assert.Contains(t, p.DebugString(nil), "local: 0 batches, 0 blocks")
	assert.Equal(t, "Pool{blocks: 64, blockSize: 16, batchSize: 32, maxLocal: 2}", p.String())
}

func BenchmarkAllocateDeallocate(b *testing.B) {
	p, err := blockpool.New(1<<16, 64)
	require.NoError(b, err)
	defer p.Close()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		c := p.NewCache()
		defer c.Close()
		for pb.Next() {
			blk, ok := c.Allocate()
			if !ok {
				b.Error("pool exhausted")
				return
			}
			c.Deallocate(blk)
		}
	})
}
