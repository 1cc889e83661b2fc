// Package mem provides aligned heap allocation for the on-heap arena mode.
//
// # Aligned Allocation
//
// Blocks carved from a heap-backed arena must start on the same boundary an
// off-heap mapping would give them, so the backing buffer is aligned to a
// cache line (64 bytes) by default.
package mem
