package compliance

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

// PostgresStore persists compliance states in PostgreSQL.
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

func (s *PostgresStore) Get(ctx context.Context, activityID id.ActivityID) (*State, error) {
	query := `
		SELECT is_compliant, requires_review, verified_at, flagged_at, reason
		FROM compliance_states WHERE activity_id = $1
	`
	state := State{ActivityID: activityID}
	var verifiedAt, flaggedAt sql.NullTime
	err := s.querier(ctx).QueryRowContext(ctx, query, activityID.String()).Scan(
		&state.IsCompliant, &state.RequiresReview, &verifiedAt, &flaggedAt, &state.Reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get compliance state: %w", err)
	}
	if verifiedAt.Valid {
		state.VerifiedAt = verifiedAt.Time
	}
	if flaggedAt.Valid {
		state.FlaggedAt = flaggedAt.Time
	}
	return &state, nil
}

func (s *PostgresStore) Save(ctx context.Context, state *State) error {
	query := `
		INSERT INTO compliance_states (activity_id, is_compliant, requires_review, verified_at, flagged_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (activity_id) DO UPDATE SET
			is_compliant = EXCLUDED.is_compliant,
			requires_review = EXCLUDED.requires_review,
			verified_at = EXCLUDED.verified_at,
			flagged_at = EXCLUDED.flagged_at,
			reason = EXCLUDED.reason
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		state.ActivityID.String(), state.IsCompliant, state.RequiresReview,
		nullTime(state.VerifiedAt), nullTime(state.FlaggedAt), state.Reason)
	if err != nil {
		return fmt.Errorf("save compliance state: %w", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
