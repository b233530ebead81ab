// Package runtime provides the fabric's named worker pools (spec.md
// §5): a fixed number of goroutines per named concern (TX dispatch,
// query fan-out, SHM readers) so one overloaded concern can't starve
// another by spawning unbounded goroutines, grounded on the pack's
// errgroup-based worker-pool pattern.
package runtime

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool is a bounded, named worker pool: Submit blocks if every worker
// is busy, giving natural back pressure instead of an unbounded queue.
type Pool struct {
	name string
	sem  chan struct{}
	g    *errgroup.Group
	ctx  context.Context
}

// NewPool builds a Pool named name with size concurrent workers, bound
// to ctx so Wait returns once ctx is canceled and every in-flight task
// finishes.
func NewPool(ctx context.Context, name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	return &Pool{name: name, sem: make(chan struct{}, size), g: g, ctx: gctx}
}

// Name returns the pool's name, used in logging and metrics labels.
func (p *Pool) Name() string { return p.name }

// Submit runs fn on a worker, blocking until one is free or ctx is
// done. It returns nil once fn has been handed to a worker, or ctx's
// error (wrapped with the pool name) if the wait was aborted. fn's own
// error is not returned here; a subsequent Wait reports it via
// errgroup's first-error semantics.
func (p *Pool) Submit(fn func(context.Context) error) error {
	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		return fmt.Errorf("pool %q: %w", p.name, p.ctx.Err())
	}
	p.g.Go(func() error {
		defer func() { <-p.sem }()
		return fn(p.ctx)
	})
	return nil
}

// Wait blocks until every submitted task has returned, propagating the
// first non-nil error.
func (p *Pool) Wait() error {
	return p.g.Wait()
}

// Registry holds the named pools a daemon constructs at startup
// (spec.md §5 names: "tx", "query", "shm-reader"), so components look
// theirs up by name rather than threading *Pool through constructors.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*Pool)}
}

// Register adds pool under its own Name, replacing any prior pool
// registered with that name.
func (r *Registry) Register(pool *Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[pool.Name()] = pool
}

// Get looks up a pool by name.
func (r *Registry) Get(name string) (*Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[name]
	return p, ok
}

// WaitAll waits on every registered pool, returning the first error
// encountered across all of them.
func (r *Registry) WaitAll() error {
	r.mu.RLock()
	pools := make([]*Pool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, p := range pools {
		if err := p.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
