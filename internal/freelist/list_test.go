package freelist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blockpool/internal/arena"
)

func newArena(t *testing.T, n int) *arena.Arena {
	t.Helper()
	a, err := arena.New(n, 32, arena.WithOffHeap(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func collect(l *List) []uint32 {
	var out []uint32
	l.Each(func(idx uint32) { out = append(out, idx) })
	return out
}

func TestList_RoundTrip(t *testing.T) {
	a := newArena(t, 16)

	for i := uint32(0); i < 16; i++ {
		l := New(a)
		l.Push(i)
		assert.Equal(t, 1, l.Len())
		assert.Equal(t, i, l.Pop())
		assert.True(t, l.Empty())
		assert.Equal(t, Nil, l.Top())
	}
}

func TestList_LIFO(t *testing.T) {
	a := newArena(t, 8)
	l := New(a)
	for i := uint32(0); i < 8; i++ {
		l.Push(i)
	}
	assert.Equal(t, []uint32{7, 6, 5, 4, 3, 2, 1, 0}, collect(&l))

	for i := 7; i >= 0; i-- {
		assert.Equal(t, uint32(i), l.Pop())
	}
	_, ok := l.TryPop()
	assert.False(t, ok)
	assert.Panics(t, func() { l.Pop() })
}

func TestList_PopClearsHeader(t *testing.T) {
	a := newArena(t, 2)
	l := New(a)
	l.Push(0)
	l.Push(1)

	idx := l.Pop()
	for _, b := range a.Block(idx)[:arena.HeaderSize] {
		assert.Zero(t, b)
	}
}

func TestList_StealBlocks(t *testing.T) {
	a := newArena(t, 10)
	l := New(a)
	other := New(a)
	for i := uint32(0); i < 4; i++ {
		l.Push(i)
	}
	for i := uint32(4); i < 10; i++ {
		other.Push(i)
	}

	l.StealBlocks(&other)
	assert.Equal(t, 10, l.Len())
	assert.True(t, other.Empty())
	assert.Equal(t, []uint32{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, collect(&l))

	// Into an empty list.
	empty := New(a)
	empty.StealBlocks(&l)
	assert.Equal(t, 10, empty.Len())
	assert.True(t, l.Empty())

	// Pushing after a splice must keep the tail consistent.
	drained := empty.TryPopBatch(10)
	assert.Equal(t, 10, drained.Len())
	assert.True(t, empty.Empty())
}

func TestList_StealTop(t *testing.T) {
	a := newArena(t, 4)
	l := New(a)
	other := New(a)
	other.Push(1)
	other.Push(2)

	require.True(t, l.StealTop(&other))
	assert.Equal(t, uint32(2), l.Top())
	assert.Equal(t, 1, other.Len())

	require.True(t, l.StealTop(&other))
	assert.True(t, other.Empty())
	assert.False(t, l.StealTop(&other))
	assert.Equal(t, []uint32{1, 2}, collect(&l))
}

func TestList_TryPopBatch(t *testing.T) {
	a := newArena(t, 10)
	l := New(a)
	for i := uint32(0); i < 10; i++ {
		l.Push(i)
	}

	b := l.TryPopBatch(3)
	assert.Equal(t, []uint32{9, 8, 7}, collect(&b))
	assert.Equal(t, 7, l.Len())
	assert.Equal(t, uint32(6), l.Top())

	// Detached batch is an independent list: splice it back.
	l.StealBlocks(&b)
	assert.Equal(t, 10, l.Len())

	rest := l.TryPopBatch(100)
	assert.Equal(t, 10, rest.Len())
	assert.True(t, l.Empty())

	none := l.TryPopBatch(5)
	assert.True(t, none.Empty())

	zero := rest.TryPopBatch(0)
	assert.True(t, zero.Empty())
	assert.Equal(t, 10, rest.Len())
}

func TestConcurrent_TryPopList(t *testing.T) {
	a := newArena(t, 8)
	c := NewConcurrent(a)
	for i := uint32(0); i < 5; i++ {
		c.Push(i)
	}

	_, ok := c.TryPopList(6)
	assert.False(t, ok)
	assert.Equal(t, 5, c.Len())

	l, ok := c.TryPopList(5)
	require.True(t, ok)
	assert.Equal(t, 5, l.Len())
	assert.Zero(t, c.Len())
}

func TestConcurrent_TryPopIntoAndTakeAll(t *testing.T) {
	a := newArena(t, 8)
	c := NewConcurrent(a)
	l := New(a)
	for i := uint32(0); i < 8; i++ {
		l.Push(i)
	}
	c.StealBlocks(&l)
	assert.True(t, l.Empty())

	dst := make([]uint32, 3)
	assert.Equal(t, 3, c.TryPopInto(dst))
	assert.Equal(t, []uint32{7, 6, 5}, dst)

	idx, ok := c.TryPop()
	require.True(t, ok)
	assert.Equal(t, uint32(4), idx)

	all := c.TakeAll()
	assert.Equal(t, 4, all.Len())
	assert.Zero(t, c.Len())
	assert.Zero(t, c.TryPopInto(dst))
}

func TestConcurrent_Parallel(t *testing.T) {
	const n = 1024
	a := newArena(t, n)
	c := NewConcurrent(a)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < n; i += 8 {
				c.Push(uint32(i))
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, n, c.Len())

	seen := make([]bool, n)
	var mu sync.Mutex
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]uint32, 7)
			for {
				k := c.TryPopInto(buf)
				if k == 0 {
					return
				}
				mu.Lock()
				for _, idx := range buf[:k] {
					assert.False(t, seen[idx], "block %d popped twice", idx)
					seen[idx] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i, ok := range seen {
		assert.True(t, ok, "block %d lost", i)
	}
}

func BenchmarkList_PushPop(b *testing.B) {
	a, err := arena.New(1024, 64)
	require.NoError(b, err)
	defer a.Close()

	l := New(a)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l.Push(uint32(i & 1023))
		l.Pop()
	}
}

func TestConcurrent_Each(t *testing.T) {
	a := newArena(t, 4)
	c := NewConcurrent(a)
	for i := uint32(0); i < 4; i++ {
		c.Push(i)
	}

	var got []uint32
	c.Each(func(idx uint32) { got = append(got, idx) })
	assert.Equal(t, []uint32{3, 2, 1, 0}, got)
	assert.Equal(t, 4, c.Len())
}
