// Package objpool provides a fixed-capacity, lock-free pool of pre-built objects.
//
// A Pool[T] owns capacity objects constructed up front. Allocate hands out a
// *Handle[T] that refers to one of them, or nil when every object is in use;
// it never blocks and never grows. Releasing the handle returns the object
// exactly once, no matter how many times Release is called.
//
//	p := objpool.New(10, 5)
//	h := p.Allocate()
//	if h == nil {
//	    // exhausted
//	}
//	defer h.Release()
//	*h.Value() += 1
//
// Free slots are kept on the same packed {offset, epoch} lock-free stack the
// block pool's design is built around. Objects are not reset on release.
package objpool
