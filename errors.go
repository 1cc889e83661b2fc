package blockpool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/blockpool/internal/arena"
	"github.com/hupe1980/blockpool/resource"
)

var (
	// ErrInvalidBlockSize is returned when a block cannot hold the free-list header.
	ErrInvalidBlockSize = errors.New("blockpool: invalid block size")
	// ErrInvalidBlockCount is returned when the block count is zero or too large.
	ErrInvalidBlockCount = errors.New("blockpool: invalid block count")
	// ErrInvalidBatchSize is returned for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("blockpool: invalid batch size")
	// ErrInvalidCacheCapacity is returned when the local batch capacity is below 2.
	ErrInvalidCacheCapacity = errors.New("blockpool: invalid local cache capacity")
	// ErrInvalidWorkerCount is returned by RunWorkers for a non-positive worker count.
	ErrInvalidWorkerCount = errors.New("blockpool: invalid worker count")
	// ErrConfigMismatch is returned when a registry tag is requested with
	// parameters that differ from the ones it was created with.
	ErrConfigMismatch = errors.New("blockpool: configuration mismatch")
	// ErrMemoryLimitExceeded is returned when the resource controller refuses the arena.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
	// ErrFreeListCorrupt is returned by VerifyFreeLists.
	ErrFreeListCorrupt = errors.New("blockpool: free list corrupt")
	// ErrClosed is returned by operations on a closed pool or registry.
	ErrClosed = errors.New("blockpool: closed")
)

// Params identifies the geometry a pool was created with.
type Params struct {
	NofBlocks int
	BlockSize int // requested, before alignment
}

func (p Params) String() string {
	return fmt.Sprintf("{blocks: %d, blockSize: %d}", p.NofBlocks, p.BlockSize)
}

// ConfigMismatchError reports a registry lookup whose parameters differ from
// the registered pool.
//
// errors.Is(err, ErrConfigMismatch) holds for every ConfigMismatchError.
type ConfigMismatchError struct {
	Tag        string
	Registered Params
	Requested  Params
}

func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("blockpool: pool %q registered as %s, requested %s", e.Tag, e.Registered, e.Requested)
}

func (e *ConfigMismatchError) Unwrap() error { return ErrConfigMismatch }

// FatalError is the panic value for broken allocator invariants: freeing a
// foreign or misaligned block, double frees caught by the sanitizer, and
// central cache overflow. The pool state is undefined after a FatalError.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return "blockpool: fatal: " + e.Msg
}

// fatalf logs msg at error level and panics with a *FatalError.
func (p *Pool) fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.logger.LogFatal(context.Background(), msg)
	panic(&FatalError{Msg: msg})
}

func (p *Pool) assertf(cond bool, format string, args ...any) {
	if !cond {
		p.fatalf(format, args...)
	}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, arena.ErrInvalidBlockSize):
		return fmt.Errorf("%w: %w", ErrInvalidBlockSize, err)
	case errors.Is(err, arena.ErrInvalidBlockCount):
		return fmt.Errorf("%w: %w", ErrInvalidBlockCount, err)
	case errors.Is(err, arena.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
