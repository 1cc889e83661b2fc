// Package freelist implements singly-linked lists of free arena blocks.
//
// List is intrusive: the link of each node lives in the first bytes of the
// free block itself, so no metadata is allocated per block. It is not safe
// for concurrent use. Concurrent wraps a List with a mutex for the few places
// where several goroutines must share one list.
package freelist
