package private

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	txcontext "github.com/tawf-labs/amana-reserve/pkg/platform/tx"
)

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

func (s *PostgresStore) GetState(ctx context.Context) (*State, error) {
	query := `
		SELECT admin, activity_count, last_committed_at, initialized
		FROM private_state WHERE singleton = TRUE
	`
	var state State
	var admin string
	var committedAt sql.NullTime
	err := s.querier(ctx).QueryRowContext(ctx, query).Scan(
		&admin, &state.ActivityCount, &committedAt, &state.Initialized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get private state: %w", err)
	}
	state.Admin = id.Identity(admin)
	if committedAt.Valid {
		state.LastCommittedAt = committedAt.Time
	}
	return &state, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, state *State) error {
	query := `
		INSERT INTO private_state (singleton, admin, activity_count, last_committed_at, initialized)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton) DO UPDATE SET
			admin = EXCLUDED.admin,
			activity_count = EXCLUDED.activity_count,
			last_committed_at = EXCLUDED.last_committed_at,
			initialized = EXCLUDED.initialized
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		string(state.Admin), state.ActivityCount,
		nullTime(state.LastCommittedAt), state.Initialized)
	if err != nil {
		return fmt.Errorf("save private state: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActivity(ctx context.Context, activityHash id.ActivityID) (*Activity, error) {
	query := `
		SELECT encrypted_amount, attestation, deployer, deployed_at, is_active
		FROM private_activities WHERE activity_hash = $1
	`
	activity := Activity{ActivityHash: activityHash}
	var encryptedAmount []byte
	var deployer string
	err := s.querier(ctx).QueryRowContext(ctx, query, activityHash.String()).Scan(
		&encryptedAmount, &activity.Attestation, &deployer,
		&activity.DeployedAt, &activity.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get private activity: %w", err)
	}
	copy(activity.EncryptedAmount[:], encryptedAmount)
	activity.Deployer = id.Identity(deployer)
	return &activity, nil
}

func (s *PostgresStore) SaveActivity(ctx context.Context, activity *Activity) error {
	query := `
		INSERT INTO private_activities (activity_hash, encrypted_amount, attestation, deployer, deployed_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (activity_hash) DO UPDATE SET is_active = EXCLUDED.is_active
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		activity.ActivityHash.String(), activity.EncryptedAmount[:],
		activity.Attestation, string(activity.Deployer),
		activity.DeployedAt, activity.IsActive)
	if err != nil {
		return fmt.Errorf("save private activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveScore(ctx context.Context, record *ScoreRecord) error {
	query := `
		INSERT INTO private_scores (singleton, encrypted_score, proof, updated_at)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE SET
			encrypted_score = EXCLUDED.encrypted_score,
			proof = EXCLUDED.proof,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		record.EncryptedScore[:], record.Proof, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save private score: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetScore(ctx context.Context) (*ScoreRecord, error) {
	query := `SELECT encrypted_score, proof, updated_at FROM private_scores WHERE singleton = TRUE`
	var record ScoreRecord
	var encryptedScore []byte
	err := s.querier(ctx).QueryRowContext(ctx, query).Scan(
		&encryptedScore, &record.Proof, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get private score: %w", err)
	}
	copy(record.EncryptedScore[:], encryptedScore)
	return &record, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
