package monitor

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Dispatcher runs fn once per satellite id. Implementations stop handing out
// new ids once ctx is done but let started calls finish.
type Dispatcher interface {
	Dispatch(ctx context.Context, ids []string, fn func(ctx context.Context, satID string))
}

// SequentialDispatcher polls one satellite at a time in watchlist order
type SequentialDispatcher struct{}

func (SequentialDispatcher) Dispatch(ctx context.Context, ids []string, fn func(ctx context.Context, satID string)) {
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		fn(ctx, id)
	}
}

// PooledDispatcher polls up to MaxConcurrency satellites at once
type PooledDispatcher struct {
	MaxConcurrency int
}

func (d PooledDispatcher) Dispatch(ctx context.Context, ids []string, fn func(ctx context.Context, satID string)) {
	limit := d.MaxConcurrency
	if limit < 1 {
		limit = 1
	}

	p := pool.New().WithMaxGoroutines(limit)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		p.Go(func() { fn(ctx, id) })
	}
	p.Wait()
}

// NewDispatcher picks the sequential dispatcher for concurrency <= 1
func NewDispatcher(concurrency int) Dispatcher {
	if concurrency <= 1 {
		return SequentialDispatcher{}
	}
	return PooledDispatcher{MaxConcurrency: concurrency}
}
