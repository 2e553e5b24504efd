// Package bridge queues settlement summaries for cross-chain consumers. The
// core appends fire-and-forget; delivery is the publisher's problem.
package bridge

import (
	"context"
	"sync"
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// SyncMessage is the wire payload describing one settled activity.
type SyncMessage struct {
	ActivityID      string    `json:"activity_id"`
	CapitalDeployed uint64    `json:"capital_deployed"`
	Outcome         int64     `json:"outcome"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewSyncMessage(activityID id.ActivityID, capitalDeployed uint64, outcome int64, at time.Time) SyncMessage {
	return SyncMessage{
		ActivityID:      activityID.String(),
		CapitalDeployed: capitalDeployed,
		Outcome:         outcome,
		Timestamp:       at,
	}
}

// Outbox accepts settlement messages for asynchronous delivery.
type Outbox interface {
	Append(ctx context.Context, message SyncMessage) error
}

// MemoryOutbox retains appended messages. Used in tests and when no broker is
// configured.
type MemoryOutbox struct {
	mu       sync.Mutex
	messages []SyncMessage
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func (o *MemoryOutbox) Append(_ context.Context, message SyncMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, message)
	return nil
}

// Messages returns a copy of everything appended so far.
func (o *MemoryOutbox) Messages() []SyncMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]SyncMessage(nil), o.messages...)
}
