package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic workloads
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) ∝ 1/k^s; s=1.5 gives a heavy tail, which models bursty hold times.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Op is a workload step.
type Op int

const (
	// OpAllocate takes a block from the worker's cache.
	OpAllocate Op = iota
	// OpFree returns a held block through the worker's cache.
	OpFree
	// OpHandoff passes a held block to another worker.
	OpHandoff
	// OpAdopt frees a block handed off by another worker.
	OpAdopt
)

func (o Op) String() string {
	switch o {
	case OpAllocate:
		return "allocate"
	case OpFree:
		return "free"
	case OpHandoff:
		return "handoff"
	case OpAdopt:
		return "adopt"
	default:
		return "unknown"
	}
}

// OpMix holds relative weights of the workload steps.
type OpMix struct {
	Allocate float64
	Free     float64
	Handoff  float64
	Adopt    float64
}

// DefaultMix allocates about as often as it frees, and routes a fifth of the
// frees through another worker.
var DefaultMix = OpMix{Allocate: 5, Free: 3, Handoff: 1, Adopt: 1}

// NextOp draws a step according to m. A mix with no positive weight always
// yields OpAllocate.
func (r *RNG) NextOp(m OpMix) Op {
	weights := [...]float64{m.Allocate, m.Free, m.Handoff, m.Adopt}

	var total float64
	for _, w := range weights {
		total += max(w, 0)
	}
	if total == 0 {
		return OpAllocate
	}

	u := r.Float64() * total
	for i, w := range weights {
		u -= max(w, 0)
		if u < 0 {
			return Op(i)
		}
	}
	return OpAdopt
}
