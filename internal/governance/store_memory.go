package governance

import (
	"context"
	"sort"
	"sync"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
)

// Store persists governance configuration, proposals, board membership, and
// the append-only review trail.
type Store interface {
	GetConfig(ctx context.Context) (*Config, error)
	SaveConfig(ctx context.Context, config *Config) error
	GetProposal(ctx context.Context, proposalID id.ProposalID) (*Proposal, error)
	SaveProposal(ctx context.Context, proposal *Proposal) error
	ListProposals(ctx context.Context) ([]Proposal, error)
	AppendReview(ctx context.Context, review *Review) error
	ListReviews(ctx context.Context, proposalID id.ProposalID) ([]Review, error)
	GetBoardMember(ctx context.Context, identity id.Identity) (*BoardMember, error)
	SaveBoardMember(ctx context.Context, member *BoardMember) error
	DeleteBoardMember(ctx context.Context, identity id.Identity) error
	ListBoardMembers(ctx context.Context) ([]BoardMember, error)
}

type InMemoryStore struct {
	mu        sync.RWMutex
	config    *Config
	proposals map[id.ProposalID]Proposal
	reviews   []Review
	board     map[id.Identity]BoardMember
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		proposals: make(map[id.ProposalID]Proposal),
		board:     make(map[id.Identity]BoardMember),
	}
}

func (s *InMemoryStore) GetConfig(_ context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, sentinel.ErrNotFound
	}
	config := *s.config
	return &config, nil
}

func (s *InMemoryStore) SaveConfig(_ context.Context, config *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *config
	s.config = &copied
	return nil
}

func (s *InMemoryStore) GetProposal(_ context.Context, proposalID id.ProposalID) (*Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &proposal, nil
}

func (s *InMemoryStore) SaveProposal(_ context.Context, proposal *Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[proposal.ID] = *proposal
	return nil
}

func (s *InMemoryStore) ListProposals(_ context.Context) ([]Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposals := make([]Proposal, 0, len(s.proposals))
	for _, proposal := range s.proposals {
		proposals = append(proposals, proposal)
	}
	sort.Slice(proposals, func(i, j int) bool { return proposals[i].ID < proposals[j].ID })
	return proposals, nil
}

func (s *InMemoryStore) AppendReview(_ context.Context, review *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, *review)
	return nil
}

func (s *InMemoryStore) ListReviews(_ context.Context, proposalID id.ProposalID) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reviews []Review
	for _, review := range s.reviews {
		if review.ProposalID == proposalID {
			reviews = append(reviews, review)
		}
	}
	return reviews, nil
}

func (s *InMemoryStore) GetBoardMember(_ context.Context, identity id.Identity) (*BoardMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.board[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &member, nil
}

func (s *InMemoryStore) SaveBoardMember(_ context.Context, member *BoardMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board[member.Identity] = *member
	return nil
}

func (s *InMemoryStore) DeleteBoardMember(_ context.Context, identity id.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.board[identity]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.board, identity)
	return nil
}

func (s *InMemoryStore) ListBoardMembers(_ context.Context) ([]BoardMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]BoardMember, 0, len(s.board))
	for _, member := range s.board {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Identity < members[j].Identity })
	return members, nil
}
