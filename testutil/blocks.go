package testutil

import (
	"encoding/binary"
	"sync"
)

// StampOffset is where Stamp writes its token. The bytes before it hold the
// free-list link while a block is free.
const StampOffset = 8

// Stamp writes token into b. b must be at least StampOffset+8 bytes.
func Stamp(b []byte, token uint64) {
	binary.LittleEndian.PutUint64(b[StampOffset:], token)
}

// Verify reports whether b still carries token.
func Verify(b []byte, token uint64) bool {
	return binary.LittleEndian.Uint64(b[StampOffset:]) == token
}

// Held is a block together with the token it was stamped with.
type Held struct {
	Block []byte
	Token uint64
}

// Exchange is a LIFO of blocks shared between workers.
type Exchange struct {
	mu    sync.Mutex
	items []Held
}

// Put adds h.
func (e *Exchange) Put(h Held) {
	e.mu.Lock()
	e.items = append(e.items, h)
	e.mu.Unlock()
}

// Take removes the most recently added block.
func (e *Exchange) Take() (Held, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.items) == 0 {
		return Held{}, false
	}
	h := e.items[len(e.items)-1]
	e.items[len(e.items)-1] = Held{}
	e.items = e.items[:len(e.items)-1]
	return h, true
}

// Drain removes and returns all blocks.
func (e *Exchange) Drain() []Held {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := e.items
	e.items = nil
	return items
}

// Len returns the number of blocks waiting.
func (e *Exchange) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}
