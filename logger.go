package blockpool

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with blockpool-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPool tags every record with the pool geometry.
func (l *Logger) WithPool(nofBlocks, blockSize int) *Logger {
	return &Logger{
		Logger: l.Logger.With("nof_blocks", nofBlocks, "block_size", blockSize),
	}
}

// WithTag adds the registry tag of a pool.
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		Logger: l.Logger.With("tag", tag),
	}
}

// LogCreated logs pool construction.
func (l *Logger) LogCreated(ctx context.Context, s Stats, offHeap bool) {
	l.InfoContext(ctx, "pool created",
		"batch_size", s.BatchSize,
		"max_local_batches", s.MaxLocalBatches,
		"central_batches", s.CentralBatches,
		"off_heap", offHeap,
	)
}

// LogExhausted logs an allocation that found both caches empty.
func (l *Logger) LogExhausted(ctx context.Context, s Stats) {
	l.WarnContext(ctx, "pool exhausted",
		"central_batches", s.CentralBatches,
		"incomplete_blocks", s.IncompleteBlocks,
		"live_caches", s.LiveCaches,
	)
}

// LogRebalance logs a migration of local batches to the central cache.
func (l *Logger) LogRebalance(ctx context.Context, batches int) {
	l.DebugContext(ctx, "local cache rebalanced",
		"batches_migrated", batches,
	)
}

// LogTeardown logs a local cache teardown.
func (l *Logger) LogTeardown(ctx context.Context, fullBatches, mergedBlocks int) {
	l.DebugContext(ctx, "local cache closed",
		"full_batches", fullBatches,
		"merged_blocks", mergedBlocks,
	)
}

// LogBuffers logs central and local cache occupancy.
func (l *Logger) LogBuffers(ctx context.Context, s Stats, local CacheStats) {
	l.InfoContext(ctx, "pool buffers",
		"central_batches", s.CentralBatches,
		"central_blocks", s.CentralBlocks,
		"incomplete_blocks", s.IncompleteBlocks,
		"local_batches", local.Batches,
		"local_blocks", local.Blocks,
	)
}

// LogFatal logs an invariant violation right before the pool panics.
func (l *Logger) LogFatal(ctx context.Context, msg string) {
	l.ErrorContext(ctx, "fatal allocator error",
		"error", msg,
	)
}
