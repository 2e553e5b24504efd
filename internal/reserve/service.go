// Package reserve implements the pooled-capital ledger: participants join,
// deposit, and withdraw against a single conserved capital total, and the
// activity lifecycle carves deployed capital out of that total. Every balance
// mutation uses checked arithmetic.
package reserve

import (
	"context"
	"errors"
	"log/slog"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/internal/reserve/metrics"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	"github.com/tawf-labs/amana-reserve/pkg/platform/safemath"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

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
	s := &Service{store: store, runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize creates the reserve singleton. Fails if it already exists.
func (s *Service) Initialize(ctx context.Context, admin id.Identity, minContribution, maxParticipants uint64) (*Reserve, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin identity is required")
	}

	var reserve *Reserve
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.store.GetReserve(ctx)
		if err == nil {
			return dErrors.New(dErrors.CodeConflict, "reserve already initialized")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load reserve")
		}

		reserve = &Reserve{
			Admin:           admin,
			MinContribution: minContribution,
			MaxParticipants: maxParticipants,
			Initialized:     true,
		}
		return s.store.SaveReserve(ctx, reserve)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Action: audit.EventReserveInitialized})
	return reserve, nil
}

// Join admits the caller as a new participant with an initial contribution.
// The value transfer into the reserve's custody is assumed settled by the
// payment layer before this is called; the ledger only records it.
func (s *Service) Join(ctx context.Context, amount uint64) (*Participant, error) {
	caller := requestcontext.CallerID(ctx)
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	var participant *Participant
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		reserve, err := s.loadReserve(ctx)
		if err != nil {
			return err
		}
		if amount < reserve.MinContribution {
			return dErrors.New(dErrors.CodeBadRequest, "contribution below minimum")
		}
		if reserve.ParticipantCount >= reserve.MaxParticipants {
			return dErrors.New(dErrors.CodeConflict, "maximum participants reached")
		}
		if _, err := s.store.GetParticipant(ctx, caller); err == nil {
			return dErrors.New(dErrors.CodeConflict, "participant already joined")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load participant")
		}

		participant = &Participant{
			Identity:           caller,
			CapitalContributed: amount,
			IsActive:           true,
			JoinedAt:           requestcontext.Now(ctx),
		}
		if err := s.store.SaveParticipant(ctx, participant); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save participant")
		}

		if reserve.TotalCapital, err = safemath.Add(reserve.TotalCapital, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "credit total capital")
		}
		if reserve.ParticipantCount, err = safemath.Add(reserve.ParticipantCount, 1); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "increment participant count")
		}
		if err := s.store.SaveReserve(ctx, reserve); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save reserve")
		}

		s.metrics.SetTotalCapital(reserve.TotalCapital)
		s.metrics.SetParticipants(reserve.ParticipantCount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementMovement("in")
	s.emit(ctx, audit.Event{
		Action: audit.EventParticipantJoined,
		Amount: amount,
	})
	return participant, nil
}

// Deposit adds capital to an existing active participant's stake.
func (s *Service) Deposit(ctx context.Context, amount uint64) (*Participant, error) {
	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}

	var participant *Participant
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		reserve, err := s.loadReserve(ctx)
		if err != nil {
			return err
		}
		participant, err = s.loadActiveParticipant(ctx, requestcontext.CallerID(ctx))
		if err != nil {
			return err
		}

		if participant.CapitalContributed, err = safemath.Add(participant.CapitalContributed, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "credit participant balance")
		}
		if reserve.TotalCapital, err = safemath.Add(reserve.TotalCapital, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "credit total capital")
		}
		if err := s.store.SaveParticipant(ctx, participant); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save participant")
		}
		if err := s.store.SaveReserve(ctx, reserve); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save reserve")
		}

		s.metrics.SetTotalCapital(reserve.TotalCapital)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementMovement("in")
	s.emit(ctx, audit.Event{
		Action: audit.EventCapitalDeposited,
		Amount: amount,
	})
	return participant, nil
}

// Withdraw returns capital to the caller. Bounded by both the caller's
// contributed balance and the capital the reserve actually holds; deployed
// capital is not withdrawable until it settles.
func (s *Service) Withdraw(ctx context.Context, amount uint64) (*Participant, error) {
	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}

	var participant *Participant
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		reserve, err := s.loadReserve(ctx)
		if err != nil {
			return err
		}
		participant, err = s.loadActiveParticipant(ctx, requestcontext.CallerID(ctx))
		if err != nil {
			return err
		}
		if amount > participant.CapitalContributed {
			return dErrors.New(dErrors.CodeBadRequest, "insufficient balance")
		}
		if amount > reserve.TotalCapital {
			return dErrors.New(dErrors.CodeConflict, "insufficient liquidity: capital is deployed")
		}

		if participant.CapitalContributed, err = safemath.Sub(participant.CapitalContributed, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "debit participant balance")
		}
		if reserve.TotalCapital, err = safemath.Sub(reserve.TotalCapital, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "debit total capital")
		}
		if err := s.store.SaveParticipant(ctx, participant); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save participant")
		}
		if err := s.store.SaveReserve(ctx, reserve); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save reserve")
		}

		s.metrics.SetTotalCapital(reserve.TotalCapital)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementMovement("out")
	s.emit(ctx, audit.Event{
		Action: audit.EventCapitalWithdrawn,
		Amount: amount,
	})
	return participant, nil
}

// Deactivate marks a participant inactive. Participants may deactivate
// themselves; the admin may deactivate anyone. The record and its balance
// history remain.
func (s *Service) Deactivate(ctx context.Context, identity id.Identity) error {
	caller := requestcontext.CallerID(ctx)

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		reserve, err := s.loadReserve(ctx)
		if err != nil {
			return err
		}
		if caller != identity && caller != reserve.Admin {
			return dErrors.New(dErrors.CodeForbidden, "admin authority required")
		}

		participant, err := s.store.GetParticipant(ctx, identity)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "participant not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load participant")
		}
		participant.IsActive = false
		return s.store.SaveParticipant(ctx, participant)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.EventParticipantDeactivated,
		Subject: identity,
	})
	return nil
}

// DeployCapital moves capital out of the reserve toward an activity. Must run
// inside the caller's transaction; the activity lifecycle owns the boundary.
func (s *Service) DeployCapital(ctx context.Context, amount uint64) error {
	reserve, err := s.loadReserve(ctx)
	if err != nil {
		return err
	}
	if amount > reserve.TotalCapital {
		return dErrors.New(dErrors.CodeConflict, "insufficient capital")
	}
	if reserve.TotalCapital, err = safemath.Sub(reserve.TotalCapital, amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "debit total capital")
	}
	if err := s.store.SaveReserve(ctx, reserve); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save reserve")
	}

	s.metrics.SetTotalCapital(reserve.TotalCapital)
	s.metrics.IncrementMovement("deployed")
	return nil
}

// SettleCapital returns settled capital to the reserve after an activity
// completes or is rejected. Must run inside the caller's transaction.
func (s *Service) SettleCapital(ctx context.Context, amount uint64) error {
	reserve, err := s.loadReserve(ctx)
	if err != nil {
		return err
	}
	if reserve.TotalCapital, err = safemath.Add(reserve.TotalCapital, amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "credit total capital")
	}
	if err := s.store.SaveReserve(ctx, reserve); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save reserve")
	}

	s.metrics.SetTotalCapital(reserve.TotalCapital)
	s.metrics.IncrementMovement("settled")
	return nil
}

// ActiveParticipant returns a participant, failing if the record is missing
// or deactivated.
func (s *Service) ActiveParticipant(ctx context.Context, identity id.Identity) (*Participant, error) {
	return s.loadActiveParticipant(ctx, identity)
}

// CreditProfitShares splits a realized profit evenly across active
// participants, crediting each one's profit-share accumulator. Must run
// inside the caller's transaction. Returns the per-participant share.
func (s *Service) CreditProfitShares(ctx context.Context, profit uint64) (uint64, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list participants")
	}

	var active []Participant
	for _, participant := range participants {
		if participant.IsActive {
			active = append(active, participant)
		}
	}
	if len(active) == 0 {
		return 0, dErrors.New(dErrors.CodeConflict, "no active participants to credit")
	}
	perParticipant, err := safemath.Div(profit, uint64(len(active)))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "split profit")
	}

	for i := range active {
		if active[i].ProfitShare, err = safemath.Add(active[i].ProfitShare, perParticipant); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "credit profit share")
		}
		if err := s.store.SaveParticipant(ctx, &active[i]); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "save participant")
		}
	}
	return perParticipant, nil
}

// AvailableCapital reports the capital the reserve currently holds.
func (s *Service) AvailableCapital(ctx context.Context) (uint64, error) {
	reserve, err := s.loadReserve(ctx)
	if err != nil {
		return 0, err
	}
	return reserve.TotalCapital, nil
}

// State returns a copy of the reserve singleton.
func (s *Service) State(ctx context.Context) (*Reserve, error) {
	return s.loadReserve(ctx)
}

// Participant returns one participant record.
func (s *Service) Participant(ctx context.Context, identity id.Identity) (*Participant, error) {
	participant, err := s.store.GetParticipant(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load participant")
	}
	return participant, nil
}

// Participants lists every participant, active or not.
func (s *Service) Participants(ctx context.Context) ([]Participant, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list participants")
	}
	return participants, nil
}

func (s *Service) loadReserve(ctx context.Context) (*Reserve, error) {
	reserve, err := s.store.GetReserve(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "reserve not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load reserve")
	}
	return reserve, nil
}

func (s *Service) loadActiveParticipant(ctx context.Context, identity id.Identity) (*Participant, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	participant, err := s.store.GetParticipant(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load participant")
	}
	if !participant.IsActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "participant is inactive")
	}
	return participant, nil
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
