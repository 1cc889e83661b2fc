package blockpool

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Registry hands out one pool per tag.
//
// The first request for a tag creates the pool; later requests must use the
// same parameters or get a *ConfigMismatchError.
type Registry struct {
	mu     sync.RWMutex
	pools  map[any]*Pool
	opts   []Option
	closed bool
}

// NewRegistry returns an empty registry. opts apply to every pool it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		pools: make(map[any]*Pool),
		opts:  opts,
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Get returns the pool registered under tag, creating it on first use.
func (r *Registry) Get(tag string, nofBlocks, blockSize int) (*Pool, error) {
	return r.get(tag, tag, nofBlocks, blockSize)
}

// GetFor returns the pool registered for the type T, creating it on first
// use. T is only a key; it is typically the type stored in the blocks.
func GetFor[T any](r *Registry, nofBlocks, blockSize int) (*Pool, error) {
	t := reflect.TypeFor[T]()
	return r.get(t, t.String(), nofBlocks, blockSize)
}

func (r *Registry) get(key any, name string, nofBlocks, blockSize int) (*Pool, error) {
	want := Params{NofBlocks: nofBlocks, BlockSize: blockSize}

	r.mu.RLock()
	p, ok := r.pools[key]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return checkParams(p, name, want)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if p, ok := r.pools[key]; ok {
		return checkParams(p, name, want)
	}

	opts := append(append([]Option(nil), r.opts...), withTag(name))
	p, err := New(nofBlocks, blockSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pool %q: %w", name, err)
	}
	r.pools[key] = p
	return p, nil
}

func checkParams(p *Pool, name string, want Params) (*Pool, error) {
	if got := p.Params(); got != want {
		return nil, &ConfigMismatchError{Tag: name, Registered: got, Requested: want}
	}
	return p, nil
}

// Lookup returns the pool registered under the string tag without creating
// one. Pools created with GetFor are found with LookupFor.
func (r *Registry) Lookup(tag string) (*Pool, bool) {
	return r.lookup(tag)
}

// LookupFor returns the pool registered for the type T without creating one.
func LookupFor[T any](r *Registry) (*Pool, bool) {
	return r.lookup(reflect.TypeFor[T]())
}

func (r *Registry) lookup(key any) (*Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[key]
	return p, ok
}

// Len returns the number of registered pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Close closes every registered pool. The registry rejects further requests.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, p := range r.pools {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.pools = nil
	return errors.Join(errs...)
}
