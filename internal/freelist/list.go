package freelist

import (
	"github.com/hupe1980/blockpool/internal/arena"
)

// Nil marks the end of a list.
const Nil = arena.Invalid

// List is an intrusive LIFO list of free blocks.
//
// The zero value is not usable; create lists with New. Copying a List copies
// its head/tail bookkeeping, so after a copy only one of the two values may
// be used.
type List struct {
	mem  *arena.Arena
	head uint32
	tail uint32
	n    int
}

// New returns an empty list over the blocks of mem.
func New(mem *arena.Arena) List {
	return List{mem: mem, head: Nil, tail: Nil}
}

// Len returns the number of blocks in the list.
func (l *List) Len() int { return l.n }

// Empty reports whether the list holds no blocks.
func (l *List) Empty() bool { return l.n == 0 }

// Top returns the most recently pushed block, or Nil.
func (l *List) Top() uint32 { return l.head }

// Push adds a free block. The block's header bytes are overwritten.
func (l *List) Push(idx uint32) {
	l.mem.SetNext(idx, l.head)
	if l.n == 0 {
		l.tail = idx
	}
	l.head = idx
	l.n++
}

// Pop removes the most recently pushed block and clears its header.
// Pop panics if the list is empty.
func (l *List) Pop() uint32 {
	if l.n == 0 {
		panic("freelist: pop from empty list")
	}
	return l.pop()
}

// TryPop is Pop without the emptiness assertion.
func (l *List) TryPop() (uint32, bool) {
	if l.n == 0 {
		return Nil, false
	}
	return l.pop(), true
}

func (l *List) pop() uint32 {
	idx := l.head
	l.head = l.mem.Next(idx)
	l.n--
	if l.n == 0 {
		l.head, l.tail = Nil, Nil
	}
	l.mem.ClearHeader(idx)
	return idx
}

// StealBlocks splices all of other on top of l in O(1). other becomes empty.
func (l *List) StealBlocks(other *List) {
	if other.n == 0 {
		return
	}
	if l.n == 0 {
		l.tail = other.tail
	}
	l.mem.SetNext(other.tail, l.head)
	l.head = other.head
	l.n += other.n
	other.reset()
}

// StealTop moves exactly one block from other to l. It reports false if
// other is empty.
func (l *List) StealTop(other *List) bool {
	if other.n == 0 {
		return false
	}
	idx := other.head
	other.head = l.mem.Next(idx)
	other.n--
	if other.n == 0 {
		other.reset()
	}
	l.Push(idx)
	return true
}

// TryPopBatch detaches the top min(n, Len()) blocks as a new list in O(n).
// l keeps the remainder.
func (l *List) TryPopBatch(n int) List {
	out := New(l.mem)
	if n <= 0 || l.n == 0 {
		return out
	}
	if n >= l.n {
		out.StealBlocks(l)
		return out
	}

	last := l.head
	for i := 1; i < n; i++ {
		last = l.mem.Next(last)
	}
	out.head = l.head
	out.tail = last
	out.n = n

	l.head = l.mem.Next(last)
	l.n -= n
	l.mem.SetNext(last, Nil)
	return out
}

// Each calls fn for every block from top to bottom. fn must not modify l.
func (l *List) Each(fn func(idx uint32)) {
	idx := l.head
	for i := 0; i < l.n; i++ {
		fn(idx)
		idx = l.mem.Next(idx)
	}
}

func (l *List) reset() {
	l.head, l.tail, l.n = Nil, Nil, 0
}
