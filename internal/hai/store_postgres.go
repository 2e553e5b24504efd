package hai

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	txcontext "github.com/tawf-labs/amana-reserve/pkg/platform/tx"
)

// PostgresStore persists the score aggregate as a single well-known row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) GetState(ctx context.Context) (*ScoreState, error) {
	query := `
		SELECT admin, current_score, total_activities, compliant_activities,
		       asset_backed_activities, economic_value_activities, snapshot_count,
		       compliance_weight, asset_backing_weight, economic_value_weight, validator_weight
		FROM hai_state WHERE singleton = TRUE
	`
	var state ScoreState
	var admin string
	err := s.querier(ctx).QueryRowContext(ctx, query).Scan(
		&admin, &state.CurrentScore, &state.Total, &state.Compliant,
		&state.AssetBacked, &state.EconomicValue, &state.SnapshotCount,
		&state.Weights.Compliance, &state.Weights.AssetBacking,
		&state.Weights.EconomicValue, &state.Weights.Validator)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get score state: %w", err)
	}
	state.Admin = id.Identity(admin)
	state.Initialized = true
	return &state, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, state *ScoreState) error {
	query := `
		INSERT INTO hai_state (singleton, admin, current_score, total_activities,
			compliant_activities, asset_backed_activities, economic_value_activities,
			snapshot_count, compliance_weight, asset_backing_weight,
			economic_value_weight, validator_weight)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (singleton) DO UPDATE SET
			admin = EXCLUDED.admin,
			current_score = EXCLUDED.current_score,
			total_activities = EXCLUDED.total_activities,
			compliant_activities = EXCLUDED.compliant_activities,
			asset_backed_activities = EXCLUDED.asset_backed_activities,
			economic_value_activities = EXCLUDED.economic_value_activities,
			snapshot_count = EXCLUDED.snapshot_count,
			compliance_weight = EXCLUDED.compliance_weight,
			asset_backing_weight = EXCLUDED.asset_backing_weight,
			economic_value_weight = EXCLUDED.economic_value_weight,
			validator_weight = EXCLUDED.validator_weight
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		state.Admin.String(), state.CurrentScore, state.Total, state.Compliant,
		state.AssetBacked, state.EconomicValue, state.SnapshotCount,
		state.Weights.Compliance, state.Weights.AssetBacking,
		state.Weights.EconomicValue, state.Weights.Validator)
	if err != nil {
		return fmt.Errorf("save score state: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveMetrics(ctx context.Context, metrics *ActivityMetrics) error {
	query := `
		INSERT INTO hai_activity_metrics (activity_id, is_compliant, is_asset_backed,
			has_real_economic_value, validator_count, positive_votes, tracked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (activity_id) DO NOTHING
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		metrics.ActivityID.String(), metrics.IsCompliant, metrics.IsAssetBacked,
		metrics.HasRealEconomicValue, metrics.ValidatorCount, metrics.PositiveVotes,
		metrics.TrackedAt)
	if err != nil {
		return fmt.Errorf("save activity metrics: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMetrics(ctx context.Context, activityID id.ActivityID) (*ActivityMetrics, error) {
	query := `
		SELECT is_compliant, is_asset_backed, has_real_economic_value,
		       validator_count, positive_votes, tracked_at
		FROM hai_activity_metrics WHERE activity_id = $1
	`
	metrics := ActivityMetrics{ActivityID: activityID}
	err := s.querier(ctx).QueryRowContext(ctx, query, activityID.String()).Scan(
		&metrics.IsCompliant, &metrics.IsAssetBacked, &metrics.HasRealEconomicValue,
		&metrics.ValidatorCount, &metrics.PositiveVotes, &metrics.TrackedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get activity metrics: %w", err)
	}
	return &metrics, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	query := `
		INSERT INTO hai_snapshots (snapshot_id, score, total_activities,
			compliant_activities, asset_backed_activities, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uint64(snapshot.ID), snapshot.Score, snapshot.Total, snapshot.Compliant,
		snapshot.AssetBacked, snapshot.TakenAt)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	query := `
		SELECT snapshot_id, score, total_activities, compliant_activities,
		       asset_backed_activities, taken_at
		FROM hai_snapshots ORDER BY snapshot_id DESC LIMIT 1
	`
	var snapshot Snapshot
	err := s.querier(ctx).QueryRowContext(ctx, query).Scan(
		&snapshot.ID, &snapshot.Score, &snapshot.Total, &snapshot.Compliant,
		&snapshot.AssetBacked, &snapshot.TakenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *PostgresStore) SaveUpdater(ctx context.Context, updater *Updater) error {
	query := `
		INSERT INTO hai_updaters (identity, is_authorized)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE SET is_authorized = EXCLUDED.is_authorized
	`
	_, err := s.querier(ctx).ExecContext(ctx, query, updater.Identity.String(), updater.IsAuthorized)
	if err != nil {
		return fmt.Errorf("save updater: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUpdater(ctx context.Context, identity id.Identity) (*Updater, error) {
	query := `SELECT is_authorized FROM hai_updaters WHERE identity = $1`
	updater := Updater{Identity: identity}
	err := s.querier(ctx).QueryRowContext(ctx, query, identity.String()).Scan(&updater.IsAuthorized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get updater: %w", err)
	}
	return &updater, nil
}
