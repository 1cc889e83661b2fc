// Package arena provides the fixed block arena behind a block pool.
//
// An Arena is one contiguous allocation of nofBlocks * blockSize bytes that
// never grows. Blocks are addressed by uint32 index; byte slices are only
// produced at the API boundary (Block) and mapped back with Index.
//
// # Features
//
//   - Off-heap backing via anonymous mmap (no GC scanning), or an aligned
//     heap buffer when off-heap memory is disabled
//   - Intrusive link header: the first 4 bytes of a free block store the
//     index of the next free block
//   - Optional memory accounting through a MemoryAcquirer
//
// # Safety
//
// Index validates range and block alignment and reports foreign slices with
// ok=false instead of panicking. Link accessors perform no checks.
package arena
