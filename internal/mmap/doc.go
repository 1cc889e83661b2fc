// Package mmap provides anonymous memory mappings for off-heap block storage.
//
// # Overview
//
// A block arena that lives outside the Go heap is never scanned by the
// garbage collector and keeps stable addresses for its whole lifetime.
// MapAnon reserves such a region and returns a Mapping that owns it.
//
// # Usage
//
//	m, err := mmap.MapAnon(nofBlocks * blockSize)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	_ = m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) for hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (advise is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches Bytes() after Close returns.
package mmap
