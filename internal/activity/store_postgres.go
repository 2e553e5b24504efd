package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, activityID id.ActivityID) (*Activity, error) {
	query := `
		SELECT initiator, capital_required, capital_deployed, status, outcome,
		       is_validated, created_at, completed_at
		FROM activities WHERE activity_id = $1
	`
	activity := Activity{ID: activityID}
	var initiator, status string
	var completedAt sql.NullTime
	err := s.querier(ctx).QueryRowContext(ctx, query, activityID.String()).Scan(
		&initiator, &activity.CapitalRequired, &activity.CapitalDeployed,
		&status, &activity.Outcome, &activity.IsValidated,
		&activity.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	activity.Initiator = id.Identity(initiator)
	activity.Status = Status(status)
	if completedAt.Valid {
		activity.CompletedAt = completedAt.Time
	}
	return &activity, nil
}

func (s *PostgresStore) Save(ctx context.Context, activity *Activity) error {
	query := `
		INSERT INTO activities (activity_id, initiator, capital_required,
			capital_deployed, status, outcome, is_validated, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (activity_id) DO UPDATE SET
			capital_deployed = EXCLUDED.capital_deployed,
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			is_validated = EXCLUDED.is_validated,
			completed_at = EXCLUDED.completed_at
	`
	var completedAt sql.NullTime
	if !activity.CompletedAt.IsZero() {
		completedAt = sql.NullTime{Time: activity.CompletedAt, Valid: true}
	}
	_, err := s.querier(ctx).ExecContext(ctx, query,
		activity.ID.String(), activity.Initiator.String(), activity.CapitalRequired,
		activity.CapitalDeployed, string(activity.Status), activity.Outcome,
		activity.IsValidated, activity.CreatedAt, completedAt)
	if err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Activity, error) {
	query := `
		SELECT activity_id, initiator, capital_required, capital_deployed, status,
		       outcome, is_validated, created_at, completed_at
		FROM activities ORDER BY created_at, activity_id
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var activity Activity
		var rawID, initiator, status string
		var completedAt sql.NullTime
		if err := rows.Scan(&rawID, &initiator, &activity.CapitalRequired,
			&activity.CapitalDeployed, &status, &activity.Outcome,
			&activity.IsValidated, &activity.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if activity.ID, err = id.ParseActivityID(rawID); err != nil {
			return nil, err
		}
		activity.Initiator = id.Identity(initiator)
		activity.Status = Status(status)
		if completedAt.Valid {
			activity.CompletedAt = completedAt.Time
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}
