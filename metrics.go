package blockpool

import (
	"sync/atomic"
)

// MetricsCollector defines an interface for collecting allocator metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Implementations are called on the allocation hot path and must be cheap
// and safe for concurrent use.
type MetricsCollector interface {
	// RecordAllocate is called after each allocation attempt.
	// ok is false when the pool was exhausted.
	RecordAllocate(ok bool)

	// RecordDeallocate is called after each deallocation.
	RecordDeallocate()

	// RecordRefill is called when a local cache pulls a batch of blocks
	// from the central cache.
	RecordRefill(blocks int)

	// RecordRebalance is called when a local cache migrates surplus
	// batches to the central cache.
	RecordRebalance(batches int)

	// RecordTeardown is called when a local cache is closed.
	// fullBatches went to the central cache, mergedBlocks to the
	// incomplete-batch accumulator.
	RecordTeardown(fullBatches, mergedBlocks int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAllocate(bool) {}
func (NoopMetricsCollector) RecordDeallocate() {}
func (NoopMetricsCollector) RecordRefill(int) {}
func (NoopMetricsCollector) RecordRebalance(int) {}
func (NoopMetricsCollector) RecordTeardown(int, int) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocateCount    atomic.Int64
	AllocateFailures atomic.Int64
	DeallocateCount  atomic.Int64
	RefillCount      atomic.Int64
	RefillBlocks     atomic.Int64
	RebalanceCount   atomic.Int64
	RebalanceBatches atomic.Int64
	TeardownCount    atomic.Int64
	TeardownBatches  atomic.Int64
	TeardownMerged   atomic.Int64
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(ok bool) {
	b.AllocateCount.Add(1)
	if !ok {
		b.AllocateFailures.Add(1)
	}
}

// RecordDeallocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDeallocate() {
	b.DeallocateCount.Add(1)
}

// RecordRefill implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefill(blocks int) {
	b.RefillCount.Add(1)
	b.RefillBlocks.Add(int64(blocks))
}

// RecordRebalance implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRebalance(batches int) {
	b.RebalanceCount.Add(1)
	b.RebalanceBatches.Add(int64(batches))
}

// RecordTeardown implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTeardown(fullBatches, mergedBlocks int) {
	b.TeardownCount.Add(1)
	b.TeardownBatches.Add(int64(fullBatches))
	b.TeardownMerged.Add(int64(mergedBlocks))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	allocs := b.AllocateCount.Load()
	failures := b.AllocateFailures.Load()
	return BasicMetricsStats{
		AllocateCount:    allocs,
		AllocateFailures: failures,
		InUse:            allocs - failures - b.DeallocateCount.Load(),
		DeallocateCount:  b.DeallocateCount.Load(),
		RefillCount:      b.RefillCount.Load(),
		RefillBlocks:     b.RefillBlocks.Load(),
		RebalanceCount:   b.RebalanceCount.Load(),
		RebalanceBatches: b.RebalanceBatches.Load(),
		TeardownCount:    b.TeardownCount.Load(),
		TeardownBatches:  b.TeardownBatches.Load(),
		TeardownMerged:   b.TeardownMerged.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocateCount    int64
	AllocateFailures int64
	InUse            int64 // successful allocations minus deallocations
	DeallocateCount  int64
	RefillCount      int64
	RefillBlocks     int64
	RebalanceCount   int64
	RebalanceBatches int64
	TeardownCount    int64
	TeardownBatches  int64
	TeardownMerged   int64
}
