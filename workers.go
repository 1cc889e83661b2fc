package blockpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// WorkerFunc is the body of a RunWorkers goroutine. c is owned by the worker.
type WorkerFunc func(ctx context.Context, worker int, c *Cache) error

// RunWorkers runs fn on n goroutines, each with its own Cache, and waits for
// all of them. Caches are closed when their worker returns.
//
// The first error cancels ctx for the remaining workers and is returned.
func (p *Pool) RunWorkers(ctx context.Context, n int, fn WorkerFunc) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkerCount, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return p.WithCache(func(c *Cache) error {
				return fn(gctx, i, c)
			})
		})
	}
	return g.Wait()
}
