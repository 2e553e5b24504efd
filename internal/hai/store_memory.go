package hai

import (
	"context"
	"sync"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
)

// Store persists the score aggregate and its satellite records.
type Store interface {
	GetState(ctx context.Context) (*ScoreState, error)
	SaveState(ctx context.Context, state *ScoreState) error
	SaveMetrics(ctx context.Context, metrics *ActivityMetrics) error
	GetMetrics(ctx context.Context, activityID id.ActivityID) (*ActivityMetrics, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
	SaveUpdater(ctx context.Context, updater *Updater) error
	GetUpdater(ctx context.Context, identity id.Identity) (*Updater, error)
}

type InMemoryStore struct {
	mu        sync.RWMutex
	state     *ScoreState
	metrics   map[id.ActivityID]ActivityMetrics
	snapshots []Snapshot
	updaters  map[id.Identity]Updater
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		metrics:  make(map[id.ActivityID]ActivityMetrics),
		updaters: make(map[id.Identity]Updater),
	}
}

func (s *InMemoryStore) GetState(_ context.Context) (*ScoreState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, sentinel.ErrNotFound
	}
	state := *s.state
	return &state, nil
}

func (s *InMemoryStore) SaveState(_ context.Context, state *ScoreState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.state = &copied
	return nil
}

func (s *InMemoryStore) SaveMetrics(_ context.Context, metrics *ActivityMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[metrics.ActivityID] = *metrics
	return nil
}

func (s *InMemoryStore) GetMetrics(_ context.Context, activityID id.ActivityID) (*ActivityMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metrics, ok := s.metrics[activityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &metrics, nil
}

func (s *InMemoryStore) SaveSnapshot(_ context.Context, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, *snapshot)
	return nil
}

func (s *InMemoryStore) LatestSnapshot(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshots) == 0 {
		return nil, sentinel.ErrNotFound
	}
	snapshot := s.snapshots[len(s.snapshots)-1]
	return &snapshot, nil
}

func (s *InMemoryStore) SaveUpdater(_ context.Context, updater *Updater) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updaters[updater.Identity] = *updater
	return nil
}

func (s *InMemoryStore) GetUpdater(_ context.Context, identity id.Identity) (*Updater, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	updater, ok := s.updaters[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &updater, nil
}
