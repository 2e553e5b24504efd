package reserve

import (
	"context"
	"sort"
	"sync"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
)

// Store persists the reserve singleton and its participants.
type Store interface {
	GetReserve(ctx context.Context) (*Reserve, error)
	SaveReserve(ctx context.Context, reserve *Reserve) error
	GetParticipant(ctx context.Context, identity id.Identity) (*Participant, error)
	SaveParticipant(ctx context.Context, participant *Participant) error
	ListParticipants(ctx context.Context) ([]Participant, error)
}

type InMemoryStore struct {
	mu           sync.RWMutex
	reserve      *Reserve
	participants map[id.Identity]Participant
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{participants: make(map[id.Identity]Participant)}
}

func (s *InMemoryStore) GetReserve(_ context.Context) (*Reserve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reserve == nil {
		return nil, sentinel.ErrNotFound
	}
	reserve := *s.reserve
	return &reserve, nil
}

func (s *InMemoryStore) SaveReserve(_ context.Context, reserve *Reserve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *reserve
	s.reserve = &copied
	return nil
}

func (s *InMemoryStore) GetParticipant(_ context.Context, identity id.Identity) (*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &participant, nil
}

func (s *InMemoryStore) SaveParticipant(_ context.Context, participant *Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[participant.Identity] = *participant
	return nil
}

func (s *InMemoryStore) ListParticipants(_ context.Context) ([]Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participants := make([]Participant, 0, len(s.participants))
	for _, participant := range s.participants {
		participants = append(participants, participant)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Identity < participants[j].Identity
	})
	return participants, nil
}
