package blockpool

// Close releases the arena and returns its memory to the resource
// controller, if any.
//
// IMPORTANT:
//  1. Do NOT call Close while blocks are still in use
//  2. Off-heap blocks are unmapped; touching them afterwards faults
//  3. Caches of a closed pool are unusable and may be dropped without Close
//
// Close is idempotent.
func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	return translateError(p.mem.Close())
}
