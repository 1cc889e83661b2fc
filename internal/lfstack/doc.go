// Package lfstack implements a lock-free LIFO stack of uint32 offsets.
//
// The head of the stack is a single 64-bit word packing the top offset (low
// 32 bits) with an epoch counter (high 32 bits). Every successful push or pop
// increments the epoch, so a compare-and-swap that observed head {A, e}
// cannot succeed after another goroutine popped A and pushed it back: the
// head is then {A, e+2}. This defends against the ABA problem without hazard
// pointers. The epoch wraps after 2^32 mutations; a CAS that stalls across a
// full wrap can still be fooled, which is an accepted limitation.
//
// Nodes are never freed, only recycled, so reading the next link of a node
// that was concurrently popped is harmless: the CAS that would publish the
// stale link fails on the epoch.
//
// The stack is lock-free (some goroutine always makes progress) but not
// wait-free.
package lfstack
