package audit

import (
	"context"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// Store persists audit events. Append must be durable before returning when
// the deployment requires compliance-grade retention; the memory store is for
// tests and local development only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor id.Identity) ([]Event, error)
}
