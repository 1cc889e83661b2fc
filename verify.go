package blockpool

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/blockpool/internal/freelist"
)

// VerifyFreeLists walks the central cache and the incomplete-batch
// accumulator and checks that every free block is a valid index that appears
// exactly once. It returns the number of free blocks visited.
//
// Blocks in local caches are not visited. Run it while no cache is in use to
// check conservation: the result plus the blocks held by callers must equal
// NofMemoryBlocks.
func (p *Pool) VerifyFreeLists() (int, error) {
	n := p.mem.NofBlocks()
	seen := bitset.New(uint(n)) //nolint:gosec // n is positive

	var (
		total int
		err   error
	)
	visit := func(where string) func(idx uint32) {
		return func(idx uint32) {
			if err != nil {
				return
			}
			switch {
			case !p.mem.Contains(idx):
				err = fmt.Errorf("%w: %s holds out-of-range block %d", ErrFreeListCorrupt, where, idx)
			case seen.Test(uint(idx)):
				err = fmt.Errorf("%w: block %d is free twice (%s)", ErrFreeListCorrupt, idx, where)
			default:
				seen.Set(uint(idx))
				total++
			}
		}
	}

	p.central.each(func(batch *freelist.List) {
		batch.Each(visit("central cache"))
	})
	if err != nil {
		return total, err
	}
	p.incomplete.Each(visit("accumulator"))
	if err != nil {
		return total, err
	}

	if uint(total) != seen.Count() {
		return total, fmt.Errorf("%w: visited %d blocks, %d distinct", ErrFreeListCorrupt, total, seen.Count())
	}
	return total, nil
}
