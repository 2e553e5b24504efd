package reserve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	"github.com/tawf-labs/amana-reserve/pkg/platform/sentinel"
	txcontext "github.com/tawf-labs/amana-reserve/pkg/platform/tx"
)

// PostgresStore persists the reserve as a single well-known row plus one row
// per participant.
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

func (s *PostgresStore) GetReserve(ctx context.Context) (*Reserve, error) {
	query := `
		SELECT admin, min_contribution, max_participants, total_capital, participant_count
		FROM reserve WHERE singleton = TRUE
	`
	var reserve Reserve
	var admin string
	err := s.querier(ctx).QueryRowContext(ctx, query).Scan(
		&admin, &reserve.MinContribution, &reserve.MaxParticipants,
		&reserve.TotalCapital, &reserve.ParticipantCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get reserve: %w", err)
	}
	reserve.Admin = id.Identity(admin)
	reserve.Initialized = true
	return &reserve, nil
}

func (s *PostgresStore) SaveReserve(ctx context.Context, reserve *Reserve) error {
	query := `
		INSERT INTO reserve (singleton, admin, min_contribution, max_participants,
			total_capital, participant_count)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (singleton) DO UPDATE SET
			admin = EXCLUDED.admin,
			min_contribution = EXCLUDED.min_contribution,
			max_participants = EXCLUDED.max_participants,
			total_capital = EXCLUDED.total_capital,
			participant_count = EXCLUDED.participant_count
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		reserve.Admin.String(), reserve.MinContribution, reserve.MaxParticipants,
		reserve.TotalCapital, reserve.ParticipantCount)
	if err != nil {
		return fmt.Errorf("save reserve: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetParticipant(ctx context.Context, identity id.Identity) (*Participant, error) {
	query := `
		SELECT capital_contributed, profit_share, loss_share, is_active, joined_at
		FROM participants WHERE identity = $1
	`
	participant := Participant{Identity: identity}
	err := s.querier(ctx).QueryRowContext(ctx, query, identity.String()).Scan(
		&participant.CapitalContributed, &participant.ProfitShare,
		&participant.LossShare, &participant.IsActive, &participant.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &participant, nil
}

func (s *PostgresStore) SaveParticipant(ctx context.Context, participant *Participant) error {
	query := `
		INSERT INTO participants (identity, capital_contributed, profit_share,
			loss_share, is_active, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (identity) DO UPDATE SET
			capital_contributed = EXCLUDED.capital_contributed,
			profit_share = EXCLUDED.profit_share,
			loss_share = EXCLUDED.loss_share,
			is_active = EXCLUDED.is_active
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		participant.Identity.String(), participant.CapitalContributed,
		participant.ProfitShare, participant.LossShare, participant.IsActive,
		participant.JoinedAt)
	if err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListParticipants(ctx context.Context) ([]Participant, error) {
	query := `
		SELECT identity, capital_contributed, profit_share, loss_share, is_active, joined_at
		FROM participants ORDER BY identity
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var participant Participant
		var identity string
		if err := rows.Scan(&identity, &participant.CapitalContributed,
			&participant.ProfitShare, &participant.LossShare,
			&participant.IsActive, &participant.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participant.Identity = id.Identity(identity)
		participants = append(participants, participant)
	}
	return participants, rows.Err()
}
