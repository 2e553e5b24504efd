package tx

import (
	"context"
	"sync"
)

// InMemoryRunner serializes whole transactions behind one mutex. Memory
// stores are individually safe, but read-modify-write sequences spanning
// stores need this coarser boundary to rule out interleaving. Share a single
// instance across all services that must be mutually atomic.
type InMemoryRunner struct {
	mu sync.Mutex
}

func NewInMemoryRunner() *InMemoryRunner {
	return &InMemoryRunner{}
}

func (r *InMemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}
