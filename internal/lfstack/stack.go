package lfstack

import (
	"math"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Invalid marks the end of the stack.
const Invalid uint32 = math.MaxUint32

// Links stores the next offset of every node. Implementations must make
// Next/SetNext atomic with respect to each other.
type Links interface {
	Next(off uint32) uint32
	SetNext(off, next uint32)
}

// Stack is a lock-free stack over a fixed set of nodes.
type Stack struct {
	_     cpu.CacheLinePad
	head  atomic.Uint64
	_     cpu.CacheLinePad
	links Links
}

// New returns an empty stack whose nodes are linked through links.
func New(links Links) *Stack {
	s := &Stack{links: links}
	s.head.Store(pack(Invalid, 0))
	return s
}

func pack(off, epoch uint32) uint64 {
	return uint64(epoch)<<32 | uint64(off)
}

func unpack(v uint64) (off, epoch uint32) {
	return uint32(v), uint32(v >> 32)
}

// Push adds node off.
func (s *Stack) Push(off uint32) {
	for {
		old := s.head.Load()
		top, epoch := unpack(old)
		s.links.SetNext(off, top)
		if s.head.CompareAndSwap(old, pack(off, epoch+1)) {
			return
		}
	}
}

// Pop removes the top node. It returns (Invalid, false) if the stack is empty.
func (s *Stack) Pop() (uint32, bool) {
	for {
		old := s.head.Load()
		top, epoch := unpack(old)
		if top == Invalid {
			return Invalid, false
		}
		next := s.links.Next(top)
		if s.head.CompareAndSwap(old, pack(next, epoch+1)) {
			return top, true
		}
	}
}

// Empty reports whether the stack was empty at the time of the call.
func (s *Stack) Empty() bool {
	top, _ := unpack(s.head.Load())
	return top == Invalid
}

// Epoch returns the current epoch (number of successful mutations, mod 2^32).
func (s *Stack) Epoch() uint32 {
	_, epoch := unpack(s.head.Load())
	return epoch
}

// IndexLinks is slice-backed Links for nodes 0..n-1.
type IndexLinks []atomic.Uint32

// NewIndexLinks returns links for n nodes.
func NewIndexLinks(n int) IndexLinks {
	return make(IndexLinks, n)
}

// Next implements Links.
func (l IndexLinks) Next(off uint32) uint32 { return l[off].Load() }

// SetNext implements Links.
func (l IndexLinks) SetNext(off, next uint32) { l[off].Store(next) }
