// Package publisher delivers audit events to a Store, either synchronously or
// through a buffered channel drained by a background goroutine. Async mode
// keeps audit emission off the request path; Close drains the buffer before
// returning so shutdown never drops events silently.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	audit "github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit/worker"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger for drop/persist failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event. In async mode a full buffer falls back to a
// synchronous write rather than dropping the event; audit is fire-and-forget
// for callers but never lossy by design of this publisher.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		return p.store.Append(ctx, event)
	}
}

// List returns events recorded for an actor.
func (p *Publisher) List(ctx context.Context, actor id.Identity) ([]audit.Event, error) {
	return p.store.ListByActor(ctx, actor)
}

// drain hands the inbox to a worker, which batches writes when the store
// supports it. Run returns once Close closes the inbox.
func (p *Publisher) drain() {
	defer p.wg.Done()
	w := worker.NewWorker(p.store, p.inbox, worker.WithLogger(p.logger))
	_ = w.Run(context.Background())
}

// Close drains pending events and stops the background goroutine. Safe to
// call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.inbox != nil {
		close(p.inbox)
		p.wg.Wait()
	}
}
