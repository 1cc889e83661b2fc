package resource

import (
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// DefaultEventBurst is the burst size used when EventsPerSec is set without EventBurst.
const DefaultEventBurst = 1

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for arena memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// EventsPerSec bounds how many throttled diagnostics may fire per second.
	// If 0, events are unlimited.
	EventsPerSec float64

	// EventBurst is the token bucket size for events.
	// If 0, defaults to DefaultEventBurst.
	EventBurst int
}

// Controller manages arena memory and diagnostic event budgets.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Events
	eventLimiter *rate.Limiter // nil if unlimited
	dropped      atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.EventsPerSec > 0 {
		burst := cfg.EventBurst
		if burst <= 0 {
			burst = DefaultEventBurst
		}
		c.eventLimiter = rate.NewLimiter(rate.Limit(cfg.EventsPerSec), burst)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - arenas are sized once, so there is nothing to wait for.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AllowEvent reports whether a throttled diagnostic may be emitted now.
// Denied events are counted and can be read with DroppedEvents.
func (c *Controller) AllowEvent() bool {
	return c.AllowEventAt(time.Now())
}

// AllowEventAt is AllowEvent with an explicit clock, used by tests.
func (c *Controller) AllowEventAt(now time.Time) bool {
	if c == nil || c.eventLimiter == nil {
		return true
	}
	if c.eventLimiter.AllowN(now, 1) {
		return true
	}
	c.dropped.Add(1)
	return false
}

// DroppedEvents returns how many events AllowEvent has suppressed.
func (c *Controller) DroppedEvents() int64 {
	if c == nil {
		return 0
	}
	return c.dropped.Load()
}
