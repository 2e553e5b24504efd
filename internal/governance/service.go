package governance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/internal/governance/metrics"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	"github.com/tawf-labs/amana-reserve/pkg/platform/safemath"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service runs the proposal lifecycle: creation, voting, board review, and
// execution. Proposal numbering is sequential; the config row is the counter.
type Service struct {
	store   Store
	runner  tx.Runner
	auditor *auditpublisher.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithAuditor(p *auditpublisher.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize creates the governance configuration. Fails if it already exists.
func (s *Service) Initialize(ctx context.Context, admin id.Identity, votingDelay, votingPeriod time.Duration, quorumBps uint16) (*Config, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin identity is required")
	}
	if votingPeriod <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "voting period must be positive")
	}

	var config *Config
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.store.GetConfig(ctx)
		if err == nil {
			return dErrors.New(dErrors.CodeConflict, "governance already initialized")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load governance config")
		}

		config = &Config{
			Admin:        admin,
			VotingDelay:  votingDelay,
			VotingPeriod: votingPeriod,
			QuorumBps:    quorumBps,
			Initialized:  true,
		}
		return s.store.SaveConfig(ctx, config)
	})
	if err != nil {
		return nil, err
	}
	return config, nil
}

// CreateProposal opens a proposal with its voting window derived from the
// configured delay and period. Proposals outside the compliance domain start
// pre-approved by the board.
func (s *Service) CreateProposal(ctx context.Context, target id.Identity, amount uint64, affectsComplianceDomain bool) (*Proposal, error) {
	proposer := requestcontext.CallerID(ctx)
	if proposer.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if target.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "target identity is required")
	}

	var proposal *Proposal
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		config, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}

		count, err := safemath.Add(config.ProposalCount, 1)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "increment proposal count")
		}
		config.ProposalCount = count

		now := requestcontext.Now(ctx)
		proposal = &Proposal{
			ID:                      id.ProposalID(count),
			Proposer:                proposer,
			Target:                  target,
			Amount:                  amount,
			AffectsComplianceDomain: affectsComplianceDomain,
			Status:                  StatusPending,
			CreatedAt:               now,
			VotingStartsAt:          now.Add(config.VotingDelay),
			VotingEndsAt:            now.Add(config.VotingDelay + config.VotingPeriod),
			ComplianceApproved:      !affectsComplianceDomain,
		}

		if err := s.store.SaveConfig(ctx, config); err != nil {
			return err
		}
		return s.store.SaveProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementProposals("created")
	s.emit(ctx, audit.Event{
		Action:     audit.EventProposalCreated,
		ProposalID: uint64(proposal.ID),
		Subject:    target,
		Amount:     amount,
	})
	return proposal, nil
}

// Vote records the caller's weighted vote. A pending proposal whose window has
// opened is promoted to active on the first vote.
func (s *Service) Vote(ctx context.Context, proposalID id.ProposalID, choice VoteChoice, weight uint64) (*Proposal, error) {
	voter := requestcontext.CallerID(ctx)
	if voter.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if weight == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "vote weight must be positive")
	}

	var proposal *Proposal
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		proposal, err = s.loadProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status != StatusActive && proposal.Status != StatusPending {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid proposal status")
		}

		now := requestcontext.Now(ctx)
		if proposal.Status == StatusPending {
			if now.Before(proposal.VotingStartsAt) {
				return dErrors.New(dErrors.CodeInvariantViolation, "voting has not started")
			}
			proposal.Status = StatusActive
		}
		if now.After(proposal.VotingEndsAt) {
			return dErrors.New(dErrors.CodeInvariantViolation, "voting has ended")
		}

		switch choice {
		case VoteFor:
			proposal.ForVotes, err = safemath.Add(proposal.ForVotes, weight)
		case VoteAgainst:
			proposal.AgainstVotes, err = safemath.Add(proposal.AgainstVotes, weight)
		case VoteAbstain:
			proposal.AbstainVotes, err = safemath.Add(proposal.AbstainVotes, weight)
		default:
			return dErrors.New(dErrors.CodeBadRequest, "invalid vote choice")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "tally vote")
		}

		return s.store.SaveProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementVotes(string(choice))
	s.emit(ctx, audit.Event{
		Action:     audit.EventVoteCast,
		ProposalID: uint64(proposal.ID),
		Amount:     weight,
		Decision:   string(choice),
	})
	return proposal, nil
}

// Review records a board member's verdict on a compliance-relevant proposal.
// The review trail is append-only; the proposal's approval flag reflects the
// most recent verdict regardless of earlier ones.
func (s *Service) Review(ctx context.Context, proposalID id.ProposalID, approved bool) (*Review, error) {
	member := requestcontext.CallerID(ctx)

	var review *Review
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetBoardMember(ctx, member); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeForbidden, "caller is not a board member")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load board member")
		}

		proposal, err := s.loadProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if !proposal.AffectsComplianceDomain {
			return dErrors.New(dErrors.CodeConflict, "proposal does not affect the compliance domain")
		}

		proposal.ComplianceApproved = approved
		review = &Review{
			ProposalID: proposalID,
			Member:     member,
			Approved:   approved,
			ReviewedAt: requestcontext.Now(ctx),
		}

		if err := s.store.AppendReview(ctx, review); err != nil {
			return err
		}
		return s.store.SaveProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementReviews(approved)
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	s.emit(ctx, audit.Event{
		Action:     audit.EventComplianceReview,
		ProposalID: uint64(proposalID),
		Decision:   decision,
	})
	return review, nil
}

// Execute finalizes a proposal whose voting window has closed. Checks run in a
// fixed order: board approval, then quorum, then the for/against margin. A
// failed check returns the matching error and leaves the proposal active, so
// the outcome stays queryable until an admin cancels it.
func (s *Service) Execute(ctx context.Context, proposalID id.ProposalID) (*Proposal, error) {
	var proposal *Proposal
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		proposal, err = s.loadProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status != StatusActive {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid proposal status")
		}
		if !requestcontext.Now(ctx).After(proposal.VotingEndsAt) {
			return dErrors.New(dErrors.CodeInvariantViolation, "voting has not ended")
		}

		if proposal.AffectsComplianceDomain && !proposal.ComplianceApproved {
			return dErrors.New(dErrors.CodeConflict, "board has not approved this proposal")
		}

		total, err := totalVotes(proposal)
		if err != nil {
			return err
		}
		if total == 0 {
			return dErrors.New(dErrors.CodeConflict, "quorum not met")
		}
		if proposal.ForVotes <= proposal.AgainstVotes {
			return dErrors.New(dErrors.CodeConflict, "proposal did not pass")
		}

		proposal.Status = StatusExecuted
		return s.store.SaveProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementProposals("executed")
	s.emit(ctx, audit.Event{
		Action:     audit.EventProposalExecuted,
		ProposalID: uint64(proposal.ID),
		Subject:    proposal.Target,
		Amount:     proposal.Amount,
	})
	return proposal, nil
}

// Cancel vetoes a pending or active proposal. Allowed for the admin, the
// proposer, or any seated board member.
func (s *Service) Cancel(ctx context.Context, proposalID id.ProposalID) (*Proposal, error) {
	caller := requestcontext.CallerID(ctx)

	var proposal *Proposal
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		config, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}
		proposal, err = s.loadProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status != StatusPending && proposal.Status != StatusActive {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid proposal status")
		}

		if caller != config.Admin && caller != proposal.Proposer {
			if _, err := s.store.GetBoardMember(ctx, caller); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeForbidden, "caller cannot cancel this proposal")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "load board member")
			}
		}

		proposal.Status = StatusCanceled
		return s.store.SaveProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementProposals("canceled")
	s.emit(ctx, audit.Event{
		Action:     audit.EventProposalCanceled,
		ProposalID: uint64(proposal.ID),
	})
	return proposal, nil
}

// AddBoardMember seats an identity on the compliance board. Admin only.
func (s *Service) AddBoardMember(ctx context.Context, identity id.Identity) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "member identity is required")
	}

	var size int
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		if _, err := s.store.GetBoardMember(ctx, identity); err == nil {
			return dErrors.New(dErrors.CodeConflict, "already a board member")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load board member")
		}

		member := &BoardMember{Identity: identity, AddedAt: requestcontext.Now(ctx)}
		if err := s.store.SaveBoardMember(ctx, member); err != nil {
			return err
		}
		members, err := s.store.ListBoardMembers(ctx)
		if err != nil {
			return err
		}
		size = len(members)
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.SetBoardSize(size)
	s.emit(ctx, audit.Event{
		Action:  audit.EventBoardMemberAdded,
		Subject: identity,
	})
	return nil
}

// RemoveBoardMember unseats a board member. Admin only.
func (s *Service) RemoveBoardMember(ctx context.Context, identity id.Identity) error {
	var size int
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		if err := s.store.DeleteBoardMember(ctx, identity); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "board member not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete board member")
		}
		members, err := s.store.ListBoardMembers(ctx)
		if err != nil {
			return err
		}
		size = len(members)
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.SetBoardSize(size)
	s.emit(ctx, audit.Event{
		Action:  audit.EventBoardMemberRemoved,
		Subject: identity,
	})
	return nil
}

// Proposal returns one proposal by id.
func (s *Service) Proposal(ctx context.Context, proposalID id.ProposalID) (*Proposal, error) {
	return s.loadProposal(ctx, proposalID)
}

// Proposals returns every proposal in id order.
func (s *Service) Proposals(ctx context.Context) ([]Proposal, error) {
	proposals, err := s.store.ListProposals(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list proposals")
	}
	return proposals, nil
}

// Reviews returns the append-only review trail for a proposal.
func (s *Service) Reviews(ctx context.Context, proposalID id.ProposalID) ([]Review, error) {
	reviews, err := s.store.ListReviews(ctx, proposalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list reviews")
	}
	return reviews, nil
}

// BoardMembers returns the current board roster.
func (s *Service) BoardMembers(ctx context.Context) ([]BoardMember, error) {
	members, err := s.store.ListBoardMembers(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list board members")
	}
	return members, nil
}

// State returns the governance configuration.
func (s *Service) State(ctx context.Context) (*Config, error) {
	return s.loadConfig(ctx)
}

func totalVotes(proposal *Proposal) (uint64, error) {
	total, err := safemath.Add(proposal.ForVotes, proposal.AgainstVotes)
	if err == nil {
		total, err = safemath.Add(total, proposal.AbstainVotes)
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "total votes")
	}
	return total, nil
}

func (s *Service) loadConfig(ctx context.Context) (*Config, error) {
	config, err := s.store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "governance not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load governance config")
	}
	return config, nil
}

func (s *Service) loadProposal(ctx context.Context, proposalID id.ProposalID) (*Proposal, error) {
	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load proposal")
	}
	return proposal, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	config, err := s.loadConfig(ctx)
	if err != nil {
		return err
	}
	if requestcontext.CallerID(ctx) != config.Admin {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the governance admin")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Actor = requestcontext.CallerID(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("failed to emit audit event", "action", event.Action, "error", err)
	}
}
