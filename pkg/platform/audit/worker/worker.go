package worker

import (
	"context"
	"log/slog"

	audit "github.com/tawf-labs/amana-reserve/pkg/platform/audit"
)

// BatchStore is implemented by stores that can persist many events in one
// round trip. The worker prefers it when available.
type BatchStore interface {
	AppendBatch(ctx context.Context, events []audit.Event) error
}

// Worker consumes audit events from a channel and persists them. A persist
// failure is logged and the loop continues; one bad event must not stall the
// audit trail behind it.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

type Option func(*Worker)

// WithLogger sets the logger for persist failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until the inbox closes or the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	batcher, hasBatch := w.store.(BatchStore)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if !hasBatch {
				if err := w.store.Append(ctx, event); err != nil {
					w.logger.Error("failed to persist audit event",
						"action", event.Action,
						"error", err,
					)
				}
				continue
			}
			// Opportunistically drain whatever is already queued.
			batch := []audit.Event{event}
			for drained := false; !drained; {
				select {
				case next, open := <-w.inbox:
					if !open {
						drained = true
						break
					}
					batch = append(batch, next)
				default:
					drained = true
				}
			}
			if err := batcher.AppendBatch(ctx, batch); err != nil {
				w.logger.Error("failed to persist audit batch",
					"count", len(batch),
					"error", err,
				)
			}
		}
	}
}
