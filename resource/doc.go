// Package resource implements the Controller that governs arena memory and
// throttles diagnostic events.
//
// The Controller manages two resources:
//
//   - Memory: a hard cap on the bytes reserved by all block arenas sharing the
//     controller (non-blocking, fail-fast)
//   - Events: a token bucket that bounds how often noisy diagnostics (such as
//     "pool exhausted" warnings) are emitted on hot paths
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                  Controller                  │
//	├──────────────────────┬───────────────────────┤
//	│  Memory Limit        │  Event Limiter        │
//	│  (weighted sem)      │  (token bucket)       │
//	├──────────────────────┼───────────────────────┤
//	│  AcquireMemory       │  AllowEvent           │
//	│  ReleaseMemory       │                       │
//	│  MemoryUsage         │                       │
//	└──────────────────────┴───────────────────────┘
//
// # Memory Management
//
// AcquireMemory never blocks. It returns ErrMemoryLimitExceeded immediately
// when the reservation would exceed the limit:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//
//	if err := rc.AcquireMemory(arenaBytes); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(arenaBytes)
//
// # Nil Safety
//
// A nil *Controller is valid and behaves as "unlimited": every acquire
// succeeds and every event is allowed.
package resource
