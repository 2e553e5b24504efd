package compliance

import (
	"context"
	"sync"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
)

// Store persists gate verdicts per activity.
type Store interface {
	Get(ctx context.Context, activityID id.ActivityID) (*State, error)
	Save(ctx context.Context, state *State) error
}

type InMemoryStore struct {
	mu     sync.RWMutex
	states map[id.ActivityID]State
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[id.ActivityID]State)}
}

func (s *InMemoryStore) Get(_ context.Context, activityID id.ActivityID) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[activityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &state, nil
}

func (s *InMemoryStore) Save(_ context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ActivityID] = *state
	return nil
}
