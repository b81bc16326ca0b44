package sequence

import (
	"context"
	"sync"

	"warungpos/internal/store"
)

// Generator hands out human-facing order numbers from the persisted counter.
// PeekNext reads without consuming; CommitNext consumes exactly one number.
// Numbers are strictly increasing and never reused.
type Generator struct {
	mu    sync.Mutex
	store *store.Store
}

func New(st *store.Store) *Generator {
	return &Generator{store: st}
}

// PeekNext returns the number the next committed order would receive.
// Repeated peeks return the same value until a commit happens.
func (g *Generator) PeekNext(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.store.OrderCounter(ctx)
}

// CommitNext returns the current counter and persists counter+1. Call it
// exactly once per newly created order; a revise never re-commits.
func (g *Generator) CommitNext(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	current, err := g.store.OrderCounter(ctx)
	if err != nil {
		return 0, err
	}
	if err := g.store.PutOrderCounter(ctx, current+1); err != nil {
		return 0, err
	}
	return current, nil
}
