package blockpool

import (
	"log/slog"

	"github.com/hupe1980/blockpool/resource"
)

const (
	// DefaultBatchSize is the number of blocks moved between caches as a unit.
	DefaultBatchSize = 32

	// DefaultMaxLocalBatchCapacity caps the number of batches a local cache keeps.
	DefaultMaxLocalBatchCapacity = 64

	// minLocalBatches keeps at least one spare batch of local buffering.
	minLocalBatches = 2

	// localBatchDivisor scales the local capacity with the pool size.
	localBatchDivisor = 32
)

type options struct {
	batchSize        int
	maxLocalCapacity int
	offHeap          bool
	sanitize         bool
	logger           *Logger
	metricsCollector MetricsCollector
	controller       *resource.Controller
	tag              string // set by Registry
}

func defaultOptions() options {
	return options{
		batchSize:        DefaultBatchSize,
		maxLocalCapacity: DefaultMaxLocalBatchCapacity,
		offHeap:          true,
		sanitize:         sanitizeDefault,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

// Option configures a Pool.
type Option func(*options)

// WithBatchSize sets the number of blocks per batch.
//
// Larger batches amortize central cache locking at the cost of more blocks
// parked in idle local caches.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithMaxLocalBatchCapacity caps how many batches a local cache may hold
// before it migrates surplus batches to the central cache.
//
// The effective limit is clamp(nofBlocks/batchSize/32, 2, n).
func WithMaxLocalBatchCapacity(n int) Option {
	return func(o *options) {
		o.maxLocalCapacity = n
	}
}

// WithOffHeap selects the arena backing: an anonymous memory mapping (true,
// default) invisible to the garbage collector, or an aligned heap buffer.
func WithOffHeap(enabled bool) Option {
	return func(o *options) {
		o.offHeap = enabled
	}
}

// WithSanitizer enables live-block tracking. Double frees and double hand-outs
// become fatal. Every allocation and deallocation takes an extra lock.
//
// The default is off unless built with the blockpool_sanitize tag.
func WithSanitizer(enabled bool) Option {
	return func(o *options) {
		o.sanitize = enabled
	}
}

// WithLogger sets the logger.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger on stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController accounts the arena against c's memory limit and
// throttles repeated exhaustion warnings with c's event limiter.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

func withTag(tag string) Option {
	return func(o *options) {
		o.tag = tag
	}
}
