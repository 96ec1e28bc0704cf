package engine

import (
	"context"
	"sync"
	"time"
)

// lockRegistry hands out one exclusive lock per portfolio. Locks for
// different portfolios are independent, so unrelated portfolios execute fully
// in parallel. Acquisition is bounded; a portfolio contended past the wait
// deadline surfaces ErrConcurrentModification instead of blocking.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{
		locks: make(map[string]chan struct{}),
	}
}

func (r *lockRegistry) get(portfolioID string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[portfolioID]
	if !ok {
		l = make(chan struct{}, 1)
		r.locks[portfolioID] = l
	}
	return l
}

// acquire takes the portfolio's lock, waiting at most wait. The returned
// release must be called exactly once.
func (r *lockRegistry) acquire(ctx context.Context, portfolioID string, wait time.Duration) (release func(), err error) {
	l := r.get(portfolioID)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-timer.C:
		return nil, ErrConcurrentModification
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
