package compliance

import (
	"context"
	"errors"
	"log/slog"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service runs the compliance gate and records verdicts. A verdict is written
// once per activity; repeated checks return the recorded state unchanged.
type Service struct {
	store   Store
	auditor *auditpublisher.Publisher
	logger  *slog.Logger
}

type Option func(*Service)

func WithAuditor(p *auditpublisher.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check evaluates the activity snapshot and persists the verdict. Idempotent:
// an activity that already carries a verdict is returned as-is.
func (s *Service) Check(ctx context.Context, activityID id.ActivityID, snap Snapshot) (*State, error) {
	existing, err := s.store.Get(ctx, activityID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance state")
	}

	now := requestcontext.Now(ctx)
	verdict, err := Evaluate(snap, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "evaluate compliance gate")
	}

	state := &State{
		ActivityID:  activityID,
		IsCompliant: verdict.Compliant,
	}
	if verdict.Compliant {
		state.VerifiedAt = now
	} else {
		state.RequiresReview = true
		state.FlaggedAt = now
		state.Reason = verdict.Reason
	}
	if err := s.store.Save(ctx, state); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save compliance state")
	}

	s.emitVerdict(ctx, state)
	return state, nil
}

// Status returns the recorded verdict for an activity.
func (s *Service) Status(ctx context.Context, activityID id.ActivityID) (*State, error) {
	state, err := s.store.Get(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no compliance verdict for activity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance state")
	}
	return state, nil
}

func (s *Service) emitVerdict(ctx context.Context, state *State) {
	if s.auditor == nil {
		return
	}
	action := audit.EventComplianceVerified
	decision := "compliant"
	if !state.IsCompliant {
		action = audit.EventComplianceFlagged
		decision = "flagged"
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Actor:      requestcontext.CallerID(ctx),
		Action:     action,
		ActivityID: state.ActivityID.String(),
		Decision:   decision,
		Reason:     state.Reason,
		Timestamp:  requestcontext.Now(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.Warn("failed to emit compliance audit event", "activity_id", state.ActivityID.String(), "error", err)
	}
}
