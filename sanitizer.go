package blockpool

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// sanitizer tracks which blocks are held by callers.
type sanitizer struct {
	mu   sync.Mutex
	live *roaring.Bitmap
}

func newSanitizer() *sanitizer {
	return &sanitizer{live: roaring.New()}
}

// acquire marks idx live. It reports false if idx was already live.
func (s *sanitizer) acquire(idx uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.CheckedAdd(idx)
}

// release marks idx free. It reports false if idx was not live.
func (s *sanitizer) release(idx uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.CheckedRemove(idx)
}

func (s *sanitizer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.live.GetCardinality()) //nolint:gosec // bounded by the block count
}
