package private

import (
	"context"
	"sync"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
)

// Store persists the private-deployment aggregate and its activities.
type Store interface {
	GetState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, state *State) error
	GetActivity(ctx context.Context, activityHash id.ActivityID) (*Activity, error)
	SaveActivity(ctx context.Context, activity *Activity) error
	SaveScore(ctx context.Context, record *ScoreRecord) error
	GetScore(ctx context.Context) (*ScoreRecord, error)
}

type InMemoryStore struct {
	mu         sync.RWMutex
	state      *State
	activities map[id.ActivityID]Activity
	score      *ScoreRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{activities: make(map[id.ActivityID]Activity)}
}

func (s *InMemoryStore) GetState(_ context.Context) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, sentinel.ErrNotFound
	}
	state := *s.state
	return &state, nil
}

func (s *InMemoryStore) SaveState(_ context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.state = &copied
	return nil
}

func (s *InMemoryStore) GetActivity(_ context.Context, activityHash id.ActivityID) (*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activity, ok := s.activities[activityHash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &activity, nil
}

func (s *InMemoryStore) SaveActivity(_ context.Context, activity *Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[activity.ActivityHash] = *activity
	return nil
}

func (s *InMemoryStore) SaveScore(_ context.Context, record *ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.score = &copied
	return nil
}

func (s *InMemoryStore) GetScore(_ context.Context) (*ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.score == nil {
		return nil, sentinel.ErrNotFound
	}
	record := *s.score
	return &record, nil
}
