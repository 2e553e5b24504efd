package private

import (
	"context"
	"errors"
	"log/slog"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	"github.com/tawf-labs/amana-reserve/pkg/platform/safemath"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service handles capital deployments whose amounts stay encrypted. Every
// entry point verifies an opaque attestation or proof before touching state;
// nothing here can inspect blob contents.
type Service struct {
	store    Store
	runner   tx.Runner
	verifier Verifier
	auditor  *auditpublisher.Publisher
	logger   *slog.Logger
}

type Option func(*Service)

func WithVerifier(v Verifier) Option {
	return func(s *Service) { s.verifier = v }
}

func WithAuditor(p *auditpublisher.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:    store,
		runner:   runner,
		verifier: NonZeroVerifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize creates the private-deployment aggregate. Fails if it exists.
func (s *Service) Initialize(ctx context.Context, admin id.Identity) (*State, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin identity is required")
	}

	var state *State
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.store.GetState(ctx)
		if err == nil {
			return dErrors.New(dErrors.CodeConflict, "private state already initialized")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load private state")
		}
		state = &State{Admin: admin, Initialized: true}
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Deploy records an encrypted capital deployment gated by an enclave
// attestation. The amount is stored as-is and never decrypted here.
func (s *Service) Deploy(ctx context.Context, encryptedAmount [32]byte, activityHash id.ActivityID, attestation []byte) (*Activity, error) {
	if err := s.verify(ctx, attestation, "invalid attestation"); err != nil {
		return nil, err
	}

	var activity *Activity
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.loadState(ctx)
		if err != nil {
			return err
		}
		if _, err := s.store.GetActivity(ctx, activityHash); err == nil {
			return dErrors.New(dErrors.CodeConflict, "activity hash already deployed")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load private activity")
		}

		state.ActivityCount, err = safemath.Add(state.ActivityCount, 1)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "increment activity count")
		}

		activity = &Activity{
			ActivityHash:    activityHash,
			EncryptedAmount: encryptedAmount,
			Attestation:     attestation,
			Deployer:        requestcontext.CallerID(ctx),
			DeployedAt:      requestcontext.Now(ctx),
			IsActive:        true,
		}
		if err := s.store.SaveActivity(ctx, activity); err != nil {
			return err
		}
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:     audit.EventPrivateCapitalDeployed,
		ActivityID: activityHash.String(),
	})
	return activity, nil
}

// RecordScore stores a score computed inside the enclave, gated by the
// enclave's proof. Only the ciphertext is kept.
func (s *Service) RecordScore(ctx context.Context, encryptedScore [32]byte, proof []byte) (*ScoreRecord, error) {
	if err := s.verify(ctx, proof, "invalid proof"); err != nil {
		return nil, err
	}

	record := &ScoreRecord{
		EncryptedScore: encryptedScore,
		Proof:          proof,
		UpdatedAt:      requestcontext.Now(ctx),
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadState(ctx); err != nil {
			return err
		}
		return s.store.SaveScore(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Commit anchors the current private state, gated by a proof of correctness.
func (s *Service) Commit(ctx context.Context, proof []byte) (*State, error) {
	if err := s.verify(ctx, proof, "invalid proof"); err != nil {
		return nil, err
	}

	var state *State
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		state, err = s.loadState(ctx)
		if err != nil {
			return err
		}
		state.LastCommittedAt = requestcontext.Now(ctx)
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Action: audit.EventPrivateStateCommitted})
	return state, nil
}

// Reveal authorizes disclosure of one private activity. The caller supplies an
// authorization proof; decryption itself happens off-system.
func (s *Service) Reveal(ctx context.Context, activityHash id.ActivityID, authorization []byte) (*Activity, error) {
	if err := s.verify(ctx, authorization, "unauthorized reveal"); err != nil {
		return nil, err
	}

	activity, err := s.store.GetActivity(ctx, activityHash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "private activity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load private activity")
	}
	return activity, nil
}

// State returns the private-deployment aggregate.
func (s *Service) State(ctx context.Context) (*State, error) {
	return s.loadState(ctx)
}

// Score returns the latest enclave-computed score ciphertext.
func (s *Service) Score(ctx context.Context) (*ScoreRecord, error) {
	record, err := s.store.GetScore(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no private score recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load private score")
	}
	return record, nil
}

func (s *Service) verify(ctx context.Context, blob []byte, msg string) error {
	ok, err := s.verifier.Verify(ctx, blob)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "verify blob")
	}
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, msg)
	}
	return nil
}

func (s *Service) loadState(ctx context.Context) (*State, error) {
	state, err := s.store.GetState(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "private state not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load private state")
	}
	return state, nil
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
