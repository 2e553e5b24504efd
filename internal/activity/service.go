// Package activity runs the lifecycle of funded activities: proposal,
// approval, realtime deployment, settlement, and the post-settlement fan-out
// into the compliance gate, the score engine, and the cross-chain outbox.
package activity

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tawf-labs/amana-reserve/internal/activity/metrics"
	"github.com/tawf-labs/amana-reserve/internal/bridge"
	"github.com/tawf-labs/amana-reserve/internal/compliance"
	"github.com/tawf-labs/amana-reserve/internal/hai"
	"github.com/tawf-labs/amana-reserve/internal/reserve"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	"github.com/tawf-labs/amana-reserve/pkg/platform/safemath"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

type Service struct {
	store      Store
	reserve    *reserve.Service
	compliance *compliance.Service
	scores     *hai.Service
	outbox     bridge.Outbox
	runner     tx.Runner
	auditor    *auditpublisher.Publisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger

	nonce atomic.Uint64
}

type Option func(*Service)

func WithOutbox(outbox bridge.Outbox) Option {
	return func(s *Service) { s.outbox = outbox }
}

func WithAuditor(p *auditpublisher.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, reserveSvc *reserve.Service, complianceSvc *compliance.Service, scoreSvc *hai.Service, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:      store,
		reserve:    reserveSvc,
		compliance: complianceSvc,
		scores:     scoreSvc,
		runner:     runner,
		tracer:     otel.Tracer("amana/activity"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Propose records a new activity against available capital. The caller must
// be an active participant; the requested capital must be positive and within
// the reserve's current holdings.
func (s *Service) Propose(ctx context.Context, capitalRequired uint64) (*Activity, error) {
	caller := requestcontext.CallerID(ctx)
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	var activity *Activity
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.reserve.ActiveParticipant(ctx, caller); err != nil {
			return err
		}
		available, err := s.reserve.AvailableCapital(ctx)
		if err != nil {
			return err
		}
		if capitalRequired == 0 || capitalRequired > available {
			return dErrors.New(dErrors.CodeBadRequest, "invalid capital amount")
		}

		now := requestcontext.Now(ctx)
		activity = &Activity{
			ID:              id.DeriveActivityID(caller, s.nonce.Add(1), now.UnixNano()),
			Initiator:       caller,
			CapitalRequired: capitalRequired,
			Status:          StatusProposed,
			CreatedAt:       now,
		}
		return s.store.Save(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(StatusProposed))
	s.emit(ctx, audit.Event{
		Action:     audit.EventActivityProposed,
		ActivityID: activity.ID.String(),
		Amount:     capitalRequired,
	})
	return activity, nil
}

// Approve moves the required capital out of the reserve into the activity.
// Admin authority only. The propose-time capital check is re-verified here:
// capital may have moved since.
func (s *Service) Approve(ctx context.Context, activityID id.ActivityID) (*Activity, error) {
	var activity *Activity
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		var err error
		activity, err = s.load(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Status != StatusProposed {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid activity status")
		}

		if err := s.reserve.DeployCapital(ctx, activity.CapitalRequired); err != nil {
			return err
		}
		activity.CapitalDeployed = activity.CapitalRequired
		activity.Status = StatusApproved
		return s.store.Save(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(StatusApproved))
	s.metrics.AddDeployedCapital(float64(activity.CapitalDeployed))
	s.emit(ctx, audit.Event{
		Action:     audit.EventActivityApproved,
		ActivityID: activityID.String(),
		Amount:     activity.CapitalDeployed,
	})
	return activity, nil
}

// DeployRealtime tops up an approved activity with additional capital and
// marks it Active on the fast path.
func (s *Service) DeployRealtime(ctx context.Context, activityID id.ActivityID, amount uint64) (*Activity, error) {
	var activity *Activity
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireAdmin(ctx); err != nil {
			return err
		}
		var err error
		activity, err = s.load(ctx, activityID)
		if err != nil {
			return err
		}
		if !activity.Status.CanTransitionTo(StatusActive) {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid activity status")
		}

		if amount > 0 {
			if err := s.reserve.DeployCapital(ctx, amount); err != nil {
				return err
			}
			if activity.CapitalDeployed, err = safemath.Add(activity.CapitalDeployed, amount); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "credit deployed capital")
			}
		}
		activity.Status = StatusActive
		return s.store.Save(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(StatusActive))
	s.metrics.AddDeployedCapital(float64(amount))
	s.emit(ctx, audit.Event{
		Action:     audit.EventCapitalDeployedRealtime,
		ActivityID: activityID.String(),
		Amount:     amount,
	})
	return activity, nil
}

// Complete settles an activity. Profit returns deployed capital plus outcome
// to the reserve; a loss smaller than the deployed capital returns the
// remainder; a loss at or beyond the deployed capital returns nothing, so the
// reserve never goes net negative from one activity. The compliance verdict,
// score update, and cross-chain sync follow the committed settlement.
func (s *Service) Complete(ctx context.Context, activityID id.ActivityID, outcome int64) (*Activity, error) {
	ctx, span := s.tracer.Start(ctx, "activity.complete",
		trace.WithAttributes(
			attribute.String("activity.id", activityID.String()),
			attribute.Int64("activity.outcome", outcome),
		))
	defer span.End()

	caller := requestcontext.CallerID(ctx)

	var activity *Activity
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		activity, err = s.load(ctx, activityID)
		if err != nil {
			return err
		}
		if !activity.Status.CanTransitionTo(StatusCompleted) {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid activity status")
		}
		if admin, err := s.adminIdentity(ctx); err != nil {
			return err
		} else if caller != admin && caller != activity.Initiator {
			return dErrors.New(dErrors.CodeForbidden, "only the admin or the initiator may settle")
		}

		returned, err := settledCapital(activity.CapitalDeployed, outcome)
		if err != nil {
			return err
		}
		if returned > 0 {
			if err := s.reserve.SettleCapital(ctx, returned); err != nil {
				return err
			}
		}

		activity.Status = StatusCompleted
		activity.Outcome = outcome
		activity.IsValidated = true
		activity.CompletedAt = requestcontext.Now(ctx)
		return s.store.Save(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(StatusCompleted))
	s.metrics.IncrementOutcome(outcome)
	s.metrics.AddDeployedCapital(-float64(activity.CapitalDeployed))
	s.emit(ctx, audit.Event{
		Action:     audit.EventActivityCompleted,
		ActivityID: activityID.String(),
		Amount:     activity.CapitalDeployed,
		Outcome:    outcome,
	})

	s.settled(ctx, activity)
	return activity, nil
}

// settled fans a committed settlement out to the compliance gate, the score
// engine, and the cross-chain outbox. Each leg mirrors a follow-up action in
// its own transaction; a failed leg is logged, never unwound into the
// settlement.
func (s *Service) settled(ctx context.Context, activity *Activity) {
	now := requestcontext.Now(ctx)

	verdict, err := s.compliance.Check(ctx, activity.ID, compliance.Snapshot{
		Outcome:         activity.Outcome,
		CapitalRequired: activity.CapitalRequired,
		CapitalDeployed: activity.CapitalDeployed,
		CreatedAt:       activity.CreatedAt,
	})
	if err != nil {
		s.logger.Error("compliance check failed after settlement",
			"activity_id", activity.ID.String(), "error", err)
		return
	}

	assetBacked := activity.Outcome >= 0 || uint64(-activity.Outcome) <= activity.CapitalDeployed
	if _, err := s.scores.Track(ctx, hai.TrackInput{
		ActivityID:           activity.ID,
		IsCompliant:          verdict.IsCompliant,
		IsAssetBacked:        assetBacked,
		HasRealEconomicValue: activity.Outcome != 0,
	}); err != nil {
		s.logger.Warn("score tracking failed after settlement",
			"activity_id", activity.ID.String(), "error", err)
	}
	if delta := ScoreImpact(activity, now); delta != 0 {
		if _, err := s.scores.ApplyDelta(ctx, activity.ID, delta); err != nil {
			s.logger.Warn("score delta failed after settlement",
				"activity_id", activity.ID.String(), "error", err)
		}
	}

	if s.outbox != nil {
		message := bridge.NewSyncMessage(activity.ID, activity.CapitalDeployed, activity.Outcome, now)
		if err := s.outbox.Append(ctx, message); err != nil {
			s.logger.Warn("cross-chain sync append failed",
				"activity_id", activity.ID.String(), "error", err)
		}
	}
}

// Reject terminates an activity before settlement. Deployed capital, if any,
// returns to the reserve untouched. Admin or initiator only.
func (s *Service) Reject(ctx context.Context, activityID id.ActivityID) (*Activity, error) {
	caller := requestcontext.CallerID(ctx)

	var activity *Activity
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		activity, err = s.load(ctx, activityID)
		if err != nil {
			return err
		}
		if !activity.Status.CanTransitionTo(StatusRejected) {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid activity status")
		}
		if admin, err := s.adminIdentity(ctx); err != nil {
			return err
		} else if caller != admin && caller != activity.Initiator {
			return dErrors.New(dErrors.CodeForbidden, "only the admin or the initiator may reject")
		}

		if activity.CapitalDeployed > 0 {
			if err := s.reserve.SettleCapital(ctx, activity.CapitalDeployed); err != nil {
				return err
			}
		}
		activity.Status = StatusRejected
		return s.store.Save(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(StatusRejected))
	s.metrics.AddDeployedCapital(-float64(activity.CapitalDeployed))
	s.emit(ctx, audit.Event{
		Action:     audit.EventActivityRejected,
		ActivityID: activityID.String(),
		Amount:     activity.CapitalDeployed,
	})
	return activity, nil
}

// DistributeProfits splits a settled profit evenly across active
// participants' profit-share accumulators. The capital itself already
// returned to the reserve at settlement.
func (s *Service) DistributeProfits(ctx context.Context, activityID id.ActivityID) (uint64, error) {
	var perParticipant uint64
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		activity, err := s.load(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Status != StatusCompleted {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid activity status")
		}
		if activity.Outcome <= 0 {
			return dErrors.New(dErrors.CodeInvariantViolation, "activity settled without profit")
		}

		perParticipant, err = s.reserve.CreditProfitShares(ctx, uint64(activity.Outcome))
		return err
	})
	if err != nil {
		return 0, err
	}

	s.emit(ctx, audit.Event{
		Action:     audit.EventProfitsDistributed,
		ActivityID: activityID.String(),
		Amount:     perParticipant,
	})
	return perParticipant, nil
}

// Get returns one activity.
func (s *Service) Get(ctx context.Context, activityID id.ActivityID) (*Activity, error) {
	return s.load(ctx, activityID)
}

// List returns every activity, oldest first.
func (s *Service) List(ctx context.Context) ([]Activity, error) {
	activities, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list activities")
	}
	return activities, nil
}

// settledCapital computes what returns to the reserve for a given outcome.
func settledCapital(deployed uint64, outcome int64) (uint64, error) {
	switch {
	case outcome > 0:
		returned, err := safemath.Add(deployed, uint64(outcome))
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "settle profit")
		}
		return returned, nil
	case outcome < 0:
		loss := uint64(-outcome)
		if loss >= deployed {
			return 0, nil
		}
		returned, err := safemath.Sub(deployed, loss)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "settle loss")
		}
		return returned, nil
	default:
		return deployed, nil
	}
}

func (s *Service) load(ctx context.Context, activityID id.ActivityID) (*Activity, error) {
	activity, err := s.store.Get(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "activity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load activity")
	}
	return activity, nil
}

func (s *Service) adminIdentity(ctx context.Context) (id.Identity, error) {
	state, err := s.reserve.State(ctx)
	if err != nil {
		return "", err
	}
	return state.Admin, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	admin, err := s.adminIdentity(ctx)
	if err != nil {
		return err
	}
	if requestcontext.CallerID(ctx) != admin {
		return dErrors.New(dErrors.CodeForbidden, "admin authority required")
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
