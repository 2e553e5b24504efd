package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	audit "github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actor := id.Identity("participant-1")
	event := audit.Event{
		Actor:  actor,
		Action: audit.EventParticipantJoined,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventParticipantJoined, events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	actor := id.Identity("participant-2")
	event := audit.Event{
		Actor:  actor,
		Action: audit.EventCapitalDeposited,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventCapitalDeposited, events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	actor := id.Identity("participant-3")

	for range 10 {
		event := audit.Event{
			Actor:  actor,
			Action: audit.EventVoteCast,
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

// batchCountingStore records batch writes on top of the memory store.
type batchCountingStore struct {
	*memory.InMemoryStore

	mu      sync.Mutex
	batched int
}

func (s *batchCountingStore) AppendBatch(ctx context.Context, events []audit.Event) error {
	s.mu.Lock()
	s.batched += len(events)
	s.mu.Unlock()
	for _, event := range events {
		if err := s.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func TestPublisher_AsyncBatchesAgainstBatchStores(t *testing.T) {
	store := &batchCountingStore{InMemoryStore: memory.NewInMemoryStore()}
	pub := NewPublisher(store, WithAsyncBuffer(16))

	actor := id.Identity("participant-5")
	for range 4 {
		err := pub.Emit(context.Background(), audit.Event{
			Actor:  actor,
			Action: audit.EventProposalCreated,
		})
		require.NoError(t, err)
	}
	pub.Close()

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Len(t, events, 4)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 4, store.batched)
}

func TestPublisher_FullBufferFallsBackToSync(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	actor := id.Identity("participant-4")
	for range 5 {
		err := pub.Emit(context.Background(), audit.Event{
			Actor:  actor,
			Action: audit.EventScoreUpdated,
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}
