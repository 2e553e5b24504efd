package hai

import (
	"context"
	"errors"
	"log/slog"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/internal/hai/metrics"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	"github.com/tawf-labs/amana-reserve/pkg/platform/safemath"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/requestcontext"
)

// Service owns every mutation of the score aggregate. Counter updates and the
// recomputation they trigger run inside one transaction so readers never see
// counters without the matching score.
type Service struct {
	store      Store
	runner     tx.Runner
	cache      *SnapshotCache
	randomness Randomness
	auditor    *auditpublisher.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithCache(cache *SnapshotCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithRandomness(r Randomness) Option {
	return func(s *Service) { s.randomness = r }
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

func NewService(store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:      store,
		runner:     runner,
		randomness: CryptoRandomness{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrackInput carries the per-activity signals fed into the aggregate.
type TrackInput struct {
	ActivityID           id.ActivityID
	IsCompliant          bool
	IsAssetBacked        bool
	HasRealEconomicValue bool
	ValidatorCount       uint32
	PositiveVotes        uint32
}

// Initialize creates the singleton aggregate with default weights. Fails if it
// already exists.
func (s *Service) Initialize(ctx context.Context, admin id.Identity, initialScore uint64) (*ScoreState, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin identity is required")
	}
	if initialScore > MaxScore {
		return nil, dErrors.New(dErrors.CodeBadRequest, "initial score exceeds maximum")
	}

	var state *ScoreState
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.store.GetState(ctx)
		if err == nil {
			return dErrors.New(dErrors.CodeConflict, "score state already initialized")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load score state")
		}

		state = &ScoreState{
			Admin:        admin,
			CurrentScore: initialScore,
			Weights:      DefaultWeights(),
			Initialized:  true,
		}
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetScore(state.CurrentScore)
	return state, nil
}

// Track folds one completed activity into the cumulative counters and
// recomputes the score. The activity lifecycle drives this on completion, so
// it carries no caller check of its own; external surfaces gate it.
func (s *Service) Track(ctx context.Context, input TrackInput) (*ScoreState, error) {
	var state *ScoreState
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		state, err = s.loadState(ctx)
		if err != nil {
			return err
		}

		if state.Total, err = safemath.Add(state.Total, 1); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "increment activity total")
		}
		if input.IsCompliant {
			if state.Compliant, err = safemath.Add(state.Compliant, 1); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "increment compliant count")
			}
		}
		if input.IsAssetBacked {
			if state.AssetBacked, err = safemath.Add(state.AssetBacked, 1); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "increment asset-backed count")
			}
		}
		if input.HasRealEconomicValue {
			if state.EconomicValue, err = safemath.Add(state.EconomicValue, 1); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "increment economic-value count")
			}
		}

		if err := s.store.SaveMetrics(ctx, &ActivityMetrics{
			ActivityID:           input.ActivityID,
			IsCompliant:          input.IsCompliant,
			IsAssetBacked:        input.IsAssetBacked,
			HasRealEconomicValue: input.HasRealEconomicValue,
			ValidatorCount:       input.ValidatorCount,
			PositiveVotes:        input.PositiveVotes,
			TrackedAt:            requestcontext.Now(ctx),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save activity metrics")
		}

		if state.CurrentScore, err = ComputeScore(*state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "recompute score")
		}
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetScore(state.CurrentScore)
	s.metrics.IncrementTracked(input.IsCompliant)
	s.emit(ctx, audit.Event{
		Action:     audit.EventScoreUpdated,
		ActivityID: input.ActivityID.String(),
		Amount:     state.CurrentScore,
	})
	return state, nil
}

// ApplyDelta adjusts the score by a signed number of basis points, clamped to
// the valid range. Realtime adjustments bypass the counter formula on purpose.
func (s *Service) ApplyDelta(ctx context.Context, activityID id.ActivityID, delta int64) (*ScoreState, error) {
	var state *ScoreState
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		state, err = s.loadState(ctx)
		if err != nil {
			return err
		}
		state.CurrentScore = ApplySaturating(state.CurrentScore, delta)
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetScore(state.CurrentScore)
	s.emit(ctx, audit.Event{
		Action:     audit.EventScoreUpdated,
		ActivityID: activityID.String(),
		Amount:     state.CurrentScore,
		Outcome:    delta,
	})
	return state, nil
}

// UpdateWeights replaces the component weights. The new weights must sum to
// exactly 10000; the score is recomputed under them. Admin only.
func (s *Service) UpdateWeights(ctx context.Context, weights Weights) (*ScoreState, error) {
	sum, err := weightSum(weights)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sum weights")
	}
	if sum != MaxScore {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid weights: must sum to 10000")
	}

	var state *ScoreState
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		state, err = s.loadForAdmin(ctx)
		if err != nil {
			return err
		}
		state.Weights = weights
		if state.CurrentScore, err = ComputeScore(*state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "recompute score")
		}
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetScore(state.CurrentScore)
	s.emit(ctx, audit.Event{
		Action: audit.EventWeightsUpdated,
		Amount: state.CurrentScore,
	})
	return state, nil
}

// TakeSnapshot records a point-in-time copy of the aggregate.
func (s *Service) TakeSnapshot(ctx context.Context) (*Snapshot, error) {
	var snapshot *Snapshot
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.loadState(ctx)
		if err != nil {
			return err
		}

		snapshot = &Snapshot{
			ID:          id.SnapshotID(state.SnapshotCount),
			Score:       state.CurrentScore,
			Total:       state.Total,
			Compliant:   state.Compliant,
			AssetBacked: state.AssetBacked,
			TakenAt:     requestcontext.Now(ctx),
		}
		if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save snapshot")
		}

		if state.SnapshotCount, err = safemath.Add(state.SnapshotCount, 1); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "increment snapshot count")
		}
		return s.store.SaveState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, snapshot); err != nil {
		s.logger.Warn("failed to cache snapshot", "snapshot_id", uint64(snapshot.ID), "error", err)
	}
	s.metrics.IncrementSnapshots()
	s.emit(ctx, audit.Event{
		Action: audit.EventSnapshotCreated,
		Amount: snapshot.Score,
	})
	return snapshot, nil
}

// LatestSnapshot returns the most recent snapshot, preferring the cache.
func (s *Service) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	if snapshot, ok := s.cache.Get(ctx); ok {
		return snapshot, nil
	}
	snapshot, err := s.store.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no snapshot taken yet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load latest snapshot")
	}
	return snapshot, nil
}

// AuthorizeUpdater grants score-update rights to an identity. Admin only.
func (s *Service) AuthorizeUpdater(ctx context.Context, updater id.Identity) error {
	if updater.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "updater identity is required")
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadForAdmin(ctx); err != nil {
			return err
		}
		return s.store.SaveUpdater(ctx, &Updater{Identity: updater, IsAuthorized: true})
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.EventUpdaterAuthorized,
		Subject: updater,
	})
	return nil
}

// RevokeUpdater withdraws previously granted update rights. Admin only.
func (s *Service) RevokeUpdater(ctx context.Context, updater id.Identity) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadForAdmin(ctx); err != nil {
			return err
		}
		existing, err := s.store.GetUpdater(ctx, updater)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "updater not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load updater")
		}
		existing.IsAuthorized = false
		return s.store.SaveUpdater(ctx, existing)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.EventUpdaterRevoked,
		Subject: updater,
	})
	return nil
}

// SampleResult is the outcome of a randomized source-sampling update.
type SampleResult struct {
	Score      uint64
	Randomness uint64
	Sources    []byte
}

// SampleScore recomputes the score with a randomly selected subset of data
// sources layered on top. Reserved for the admin and authorized updaters,
// the oracle identities that push sampled data. The counter-based score stays
// authoritative; the bonus is bounded by the final clamp.
func (s *Service) SampleScore(ctx context.Context, activityID id.ActivityID, sources []byte) (*SampleResult, error) {
	randomness, err := s.randomness.Next()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "draw randomness")
	}

	var result *SampleResult
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.loadForUpdater(ctx)
		if err != nil {
			return err
		}

		selected := SelectSources(sources, randomness)
		score, err := ScoreWithSources(*state, selected)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "compute sampled score")
		}

		state.CurrentScore = score
		if err := s.store.SaveState(ctx, state); err != nil {
			return err
		}
		result = &SampleResult{Score: score, Randomness: randomness, Sources: selected}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetScore(result.Score)
	s.emit(ctx, audit.Event{
		Action:     audit.EventScoreUpdated,
		ActivityID: activityID.String(),
		Amount:     result.Score,
	})
	return result, nil
}

// State returns a copy of the aggregate.
func (s *Service) State(ctx context.Context) (*ScoreState, error) {
	state, err := s.store.GetState(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "score state not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load score state")
	}
	return state, nil
}

// Metrics returns the recorded per-activity signals.
func (s *Service) Metrics(ctx context.Context, activityID id.ActivityID) (*ActivityMetrics, error) {
	metrics, err := s.store.GetMetrics(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "activity not tracked")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load activity metrics")
	}
	return metrics, nil
}

func (s *Service) loadState(ctx context.Context) (*ScoreState, error) {
	state, err := s.store.GetState(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "score state not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load score state")
	}
	return state, nil
}

// loadForUpdater loads the aggregate and checks the caller holds update
// rights: the admin always does, everyone else needs an authorized updater
// record.
func (s *Service) loadForUpdater(ctx context.Context) (*ScoreState, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}

	caller := requestcontext.CallerID(ctx)
	if caller == state.Admin {
		return state, nil
	}
	updater, err := s.store.GetUpdater(ctx, caller)
	if err == nil && updater.IsAuthorized {
		return state, nil
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load updater")
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "caller may not update the score")
}

func (s *Service) loadForAdmin(ctx context.Context) (*ScoreState, error) {
	state, err := s.store.GetState(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "score state not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load score state")
	}
	if requestcontext.CallerID(ctx) != state.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin authority required")
	}
	return state, nil
}

func weightSum(w Weights) (uint64, error) {
	sum, err := safemath.Add(w.Compliance, w.AssetBacking)
	if err != nil {
		return 0, err
	}
	if sum, err = safemath.Add(sum, w.EconomicValue); err != nil {
		return 0, err
	}
	return safemath.Add(sum, w.Validator)
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
