package objpool

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/blockpool/internal/conv"
	"github.com/hupe1980/blockpool/internal/lfstack"
)

// Pool is a fixed-capacity lock-free object pool.
type Pool[T any] struct {
	objects []T
	free    *lfstack.Stack
	size    atomic.Int64
}

// Handle owns one pooled object until Release is called. A nil *Handle is
// the empty handle returned when the pool is exhausted.
//
// Every Allocate returns a new Handle, so a handle kept after Release stays
// released even when its slot has a new owner.
type Handle[T any] struct {
	pool *Pool[T]
	slot uint32
	live atomic.Bool
}

// New creates a pool of capacity copies of init.
func New[T any](capacity int, init T) *Pool[T] {
	return NewFunc(capacity, func() T { return init })
}

// NewFunc creates a pool of capacity objects built by factory.
// It panics if capacity is not positive or exceeds the addressable slot range.
func NewFunc[T any](capacity int, factory func() T) *Pool[T] {
	n, err := conv.IntToUint32(capacity)
	if capacity <= 0 || err != nil || n == lfstack.Invalid {
		panic(fmt.Sprintf("objpool: invalid capacity %d", capacity))
	}

	p := &Pool[T]{
		objects: make([]T, capacity),
		free:    lfstack.New(lfstack.NewIndexLinks(capacity)),
	}
	// Push in reverse so the first Allocate returns slot 0.
	for i := capacity - 1; i >= 0; i-- {
		p.objects[i] = factory()
		p.free.Push(uint32(i))
	}
	p.size.Store(int64(capacity))
	return p
}

// Allocate takes an object from the pool. It returns nil when the pool is empty.
func (p *Pool[T]) Allocate() *Handle[T] {
	slot, ok := p.free.Pop()
	if !ok {
		return nil
	}
	p.size.Add(-1)
	h := &Handle[T]{pool: p, slot: slot}
	h.live.Store(true)
	return h
}

// Capacity returns the number of objects owned by the pool.
func (p *Pool[T]) Capacity() int {
	return len(p.objects)
}

// EstimatedSize returns the number of free objects. Under concurrency the
// value is advisory: it may briefly lag behind in-flight Allocate/Release calls.
func (p *Pool[T]) EstimatedSize() int {
	return int(p.size.Load())
}

// Valid reports whether h currently owns an object.
func (h *Handle[T]) Valid() bool {
	return h != nil && h.live.Load()
}

// Value returns the owned object. It returns nil for an empty or released handle.
func (h *Handle[T]) Value() *T {
	if !h.Valid() {
		return nil
	}
	return &h.pool.objects[h.slot]
}

// Release returns the object to the pool. Only the first call has an effect.
func (h *Handle[T]) Release() {
	if h == nil || !h.live.CompareAndSwap(true, false) {
		return
	}
	h.pool.size.Add(1)
	h.pool.free.Push(h.slot)
}
