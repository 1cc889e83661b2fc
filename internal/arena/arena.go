package arena

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/blockpool/internal/conv"
	"github.com/hupe1980/blockpool/internal/mem"
	"github.com/hupe1980/blockpool/internal/mmap"
)

// MemoryAcquirer is an interface for accounting arena memory.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrInvalidBlockSize is returned when the block size cannot hold a link header.
	ErrInvalidBlockSize = errors.New("arena: invalid block size")
	// ErrInvalidBlockCount is returned when the block count is zero or not addressable.
	ErrInvalidBlockCount = errors.New("arena: invalid block count")
	// ErrClosed is returned by operations on a closed arena.
	ErrClosed = errors.New("arena: closed")
)

const (
	// Invalid is the end-of-list marker. It is never a valid block index.
	Invalid uint32 = math.MaxUint32

	// Alignment is the alignment of every block (max_align_t on common ABIs).
	Alignment = 16

	// HeaderSize is the number of bytes a free block reserves for its link.
	HeaderSize = 8
)

// Stats describes the arena layout.
type Stats struct {
	BlockSize     int  // Effective (aligned) block size
	RequestedSize int  // Block size asked for at construction
	NofBlocks     int  // Number of blocks
	BytesReserved int  // Total bytes backing the arena
	OffHeap       bool // True if backed by an anonymous mapping
}

// Arena is a fixed-size block arena.
type Arena struct {
	buf       []byte
	base      uintptr
	blockSize int
	requested int
	nofBlocks int
	mapping   *mmap.Mapping // nil for heap-backed arenas
	acquirer  MemoryAcquirer
	closed    atomic.Bool
}

type config struct {
	offHeap  bool
	acquirer MemoryAcquirer
}

// Option is a configuration option for Arena.
type Option func(*config)

// WithOffHeap selects anonymous mmap backing (true, default) or an aligned
// heap buffer (false).
func WithOffHeap(enabled bool) Option {
	return func(c *config) {
		c.offHeap = enabled
	}
}

// WithMemoryAcquirer sets the memory acquirer for the arena.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(c *config) {
		c.acquirer = acquirer
	}
}

// New creates an arena of nofBlocks blocks. blockSize is rounded up to Alignment.
func New(nofBlocks, blockSize int, opts ...Option) (*Arena, error) {
	cfg := config{offHeap: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if blockSize < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidBlockSize, blockSize, HeaderSize)
	}
	if n, err := conv.IntToUint32(nofBlocks); nofBlocks <= 0 || err != nil || n == Invalid {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockCount, nofBlocks)
	}

	aligned, err := conv.AlignUp(blockSize, Alignment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlockSize, err)
	}
	total, err := conv.MulInt(nofBlocks, aligned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlockCount, err)
	}

	if cfg.acquirer != nil {
		if err := cfg.acquirer.AcquireMemory(conv.IntToInt64(total)); err != nil {
			return nil, fmt.Errorf("arena: reserve %d bytes: %w", total, err)
		}
	}

	a := &Arena{
		blockSize: aligned,
		requested: blockSize,
		nofBlocks: nofBlocks,
		acquirer:  cfg.acquirer,
	}

	if cfg.offHeap {
		mapping, err := mmap.MapAnon(total)
		if err != nil {
			if cfg.acquirer != nil {
				cfg.acquirer.ReleaseMemory(conv.IntToInt64(total))
			}
			return nil, fmt.Errorf("failed to map anonymous memory for arena: %w", err)
		}
		// Blocks are handed out in no particular order.
		_ = mapping.Advise(mmap.AccessRandom)
		a.mapping = mapping
		a.buf = mapping.Bytes()
	} else {
		a.buf = mem.AllocAligned(total)
	}

	a.base = uintptr(unsafe.Pointer(&a.buf[0])) //nolint:gosec // unsafe is required for arena implementation
	return a, nil
}

// BlockSize returns the effective (aligned) block size.
func (a *Arena) BlockSize() int { return a.blockSize }

// NofBlocks returns the number of blocks.
func (a *Arena) NofBlocks() int { return a.nofBlocks }

// Size returns the number of bytes backing the arena.
func (a *Arena) Size() int { return len(a.buf) }

// Block returns the full slice of block idx (len == cap == BlockSize).
func (a *Arena) Block(idx uint32) []byte {
	off := int(idx) * a.blockSize
	end := off + a.blockSize
	return a.buf[off:end:end]
}

// Index maps a block slice back to its index. It reports false for slices
// that do not start on a block boundary inside this arena.
//
// Index is not synchronized with Close: a call racing Close may pass the
// closed check and then read the released buffer. Callers must not Close an
// arena that is still in use.
func (a *Arena) Index(b []byte) (uint32, bool) {
	if cap(b) == 0 || a.closed.Load() {
		return Invalid, false
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b))) //nolint:gosec // unsafe is required for arena implementation
	if addr < a.base {
		return Invalid, false
	}
	off := addr - a.base
	if off >= uintptr(len(a.buf)) || off%uintptr(a.blockSize) != 0 {
		return Invalid, false
	}
	return uint32(off / uintptr(a.blockSize)), true
}

// Contains reports whether idx addresses a block of this arena.
func (a *Arena) Contains(idx uint32) bool {
	return int64(idx) < int64(a.nofBlocks)
}

func (a *Arena) header(idx uint32) *uint32 {
	off := uintptr(idx) * uintptr(a.blockSize)
	return (*uint32)(unsafe.Add(unsafe.Pointer(&a.buf[0]), off)) //nolint:gosec // unsafe is required for arena implementation
}

// Next reads the link header of a free block. Not synchronized.
func (a *Arena) Next(idx uint32) uint32 {
	return *a.header(idx)
}

// SetNext writes the link header of a free block. Not synchronized.
func (a *Arena) SetNext(idx, next uint32) {
	*a.header(idx) = next
}

// ClearHeader zeroes the link header of a block that leaves a free list.
func (a *Arena) ClearHeader(idx uint32) {
	*(*uint64)(unsafe.Pointer(a.header(idx))) = 0 //nolint:gosec // HeaderSize bytes are always present
}

// Stats returns the arena layout.
func (a *Arena) Stats() Stats {
	return Stats{
		BlockSize:     a.blockSize,
		RequestedSize: a.requested,
		NofBlocks:     a.nofBlocks,
		BytesReserved: len(a.buf),
		OffHeap:       a.mapping != nil,
	}
}

// Closed reports whether Close has been called.
func (a *Arena) Closed() bool {
	return a.closed.Load()
}

// Close releases the backing memory.
//
// IMPORTANT:
//  1. Do NOT call Close while blocks are still in use
//  2. All slices returned by Block become invalid (off-heap: unmapped)
//
// Close is idempotent.
func (a *Arena) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	var err error
	if a.mapping != nil {
		err = a.mapping.Close()
	}
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(conv.IntToInt64(len(a.buf)))
	}
	a.buf = nil
	return err
}

func (a *Arena) String() string {
	s := a.Stats()
	backing := "heap"
	if s.OffHeap {
		backing = "mmap"
	}
	return fmt.Sprintf(
		"Arena{blocks: %d, blockSize: %d (requested %d), reserved: %.2f KB, backing: %s}",
		s.NofBlocks, s.BlockSize, s.RequestedSize, float64(s.BytesReserved)/1024, backing,
	)
}
