// Package testutil provides workload helpers for blockpool tests, benchmarks
// and examples.
//
// # Random Workloads
//
//	rng := testutil.NewRNG(seed)
//	switch rng.NextOp(testutil.DefaultMix) {
//	case testutil.OpAllocate:
//	case testutil.OpFree:
//	case testutil.OpHandoff:
//	case testutil.OpAdopt:
//	}
//
// # Ownership Checks
//
// Stamp writes a token past the free-list header of a block; Verify checks
// it before the block is freed. A block handed to two owners at once shows
// up as a token mismatch.
//
// # Cross-Worker Frees
//
// Exchange is a mutex-guarded stack that workers use to pass blocks to each
// other, so blocks get freed through a different cache than the one that
// allocated them.
package testutil
