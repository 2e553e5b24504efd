package activity

import (
	"context"
	"sort"
	"sync"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
)

// Store persists activities.
type Store interface {
	Get(ctx context.Context, activityID id.ActivityID) (*Activity, error)
	Save(ctx context.Context, activity *Activity) error
	List(ctx context.Context) ([]Activity, error)
}

type InMemoryStore struct {
	mu         sync.RWMutex
	activities map[id.ActivityID]Activity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{activities: make(map[id.ActivityID]Activity)}
}

func (s *InMemoryStore) Get(_ context.Context, activityID id.ActivityID) (*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activity, ok := s.activities[activityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &activity, nil
}

func (s *InMemoryStore) Save(_ context.Context, activity *Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[activity.ID] = *activity
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activities := make([]Activity, 0, len(s.activities))
	for _, activity := range s.activities {
		activities = append(activities, activity)
	}
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].ID.String() < activities[j].ID.String()
		}
		return activities[i].CreatedAt.Before(activities[j].CreatedAt)
	})
	return activities, nil
}
