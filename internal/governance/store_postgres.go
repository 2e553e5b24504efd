package governance

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

// PostgresStore persists governance state in PostgreSQL. The config lives in
// a singleton row; reviews are insert-only.
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

func (s *PostgresStore) GetConfig(ctx context.Context) (*Config, error) {
	query := `
		SELECT admin, voting_delay_seconds, voting_period_seconds, quorum_bps,
		       proposal_count, initialized
		FROM governance_config WHERE singleton = TRUE
	`
	var config Config
	var admin string
	var delaySeconds, periodSeconds int64
	err := s.querier(ctx).QueryRowContext(ctx, query).Scan(
		&admin, &delaySeconds, &periodSeconds, &config.QuorumBps,
		&config.ProposalCount, &config.Initialized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get governance config: %w", err)
	}
	config.Admin = id.Identity(admin)
	config.VotingDelay = time.Duration(delaySeconds) * time.Second
	config.VotingPeriod = time.Duration(periodSeconds) * time.Second
	return &config, nil
}

func (s *PostgresStore) SaveConfig(ctx context.Context, config *Config) error {
	query := `
		INSERT INTO governance_config (singleton, admin, voting_delay_seconds,
			voting_period_seconds, quorum_bps, proposal_count, initialized)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (singleton) DO UPDATE SET
			admin = EXCLUDED.admin,
			voting_delay_seconds = EXCLUDED.voting_delay_seconds,
			voting_period_seconds = EXCLUDED.voting_period_seconds,
			quorum_bps = EXCLUDED.quorum_bps,
			proposal_count = EXCLUDED.proposal_count,
			initialized = EXCLUDED.initialized
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		string(config.Admin), int64(config.VotingDelay/time.Second),
		int64(config.VotingPeriod/time.Second), config.QuorumBps,
		config.ProposalCount, config.Initialized)
	if err != nil {
		return fmt.Errorf("save governance config: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProposal(ctx context.Context, proposalID id.ProposalID) (*Proposal, error) {
	query := `
		SELECT proposer, target, amount, affects_compliance_domain, status,
		       created_at, voting_starts_at, voting_ends_at,
		       for_votes, against_votes, abstain_votes, compliance_approved
		FROM proposals WHERE proposal_id = $1
	`
	proposal := Proposal{ID: proposalID}
	err := scanProposal(s.querier(ctx).QueryRowContext(ctx, query, uint64(proposalID)), &proposal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return &proposal, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner, proposal *Proposal) error {
	var proposer, target, status string
	err := row.Scan(&proposer, &target, &proposal.Amount,
		&proposal.AffectsComplianceDomain, &status,
		&proposal.CreatedAt, &proposal.VotingStartsAt, &proposal.VotingEndsAt,
		&proposal.ForVotes, &proposal.AgainstVotes, &proposal.AbstainVotes,
		&proposal.ComplianceApproved)
	if err != nil {
		return err
	}
	proposal.Proposer = id.Identity(proposer)
	proposal.Target = id.Identity(target)
	proposal.Status = ProposalStatus(status)
	return nil
}

func (s *PostgresStore) SaveProposal(ctx context.Context, proposal *Proposal) error {
	query := `
		INSERT INTO proposals (proposal_id, proposer, target, amount,
			affects_compliance_domain, status, created_at, voting_starts_at,
			voting_ends_at, for_votes, against_votes, abstain_votes,
			compliance_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (proposal_id) DO UPDATE SET
			status = EXCLUDED.status,
			for_votes = EXCLUDED.for_votes,
			against_votes = EXCLUDED.against_votes,
			abstain_votes = EXCLUDED.abstain_votes,
			compliance_approved = EXCLUDED.compliance_approved
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uint64(proposal.ID), string(proposal.Proposer), string(proposal.Target),
		proposal.Amount, proposal.AffectsComplianceDomain, string(proposal.Status),
		proposal.CreatedAt, proposal.VotingStartsAt, proposal.VotingEndsAt,
		proposal.ForVotes, proposal.AgainstVotes, proposal.AbstainVotes,
		proposal.ComplianceApproved)
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProposals(ctx context.Context) ([]Proposal, error) {
	query := `
		SELECT proposal_id, proposer, target, amount, affects_compliance_domain,
		       status, created_at, voting_starts_at, voting_ends_at,
		       for_votes, against_votes, abstain_votes, compliance_approved
		FROM proposals ORDER BY proposal_id
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []Proposal
	for rows.Next() {
		var proposal Proposal
		var proposer, target, status string
		err := rows.Scan(&proposal.ID, &proposer, &target, &proposal.Amount,
			&proposal.AffectsComplianceDomain, &status,
			&proposal.CreatedAt, &proposal.VotingStartsAt, &proposal.VotingEndsAt,
			&proposal.ForVotes, &proposal.AgainstVotes, &proposal.AbstainVotes,
			&proposal.ComplianceApproved)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposal.Proposer = id.Identity(proposer)
		proposal.Target = id.Identity(target)
		proposal.Status = ProposalStatus(status)
		proposals = append(proposals, proposal)
	}
	return proposals, rows.Err()
}

func (s *PostgresStore) AppendReview(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO compliance_reviews (proposal_id, board_member, approved, reviewed_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uint64(review.ProposalID), string(review.Member), review.Approved, review.ReviewedAt)
	if err != nil {
		return fmt.Errorf("append review: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, proposalID id.ProposalID) ([]Review, error) {
	query := `
		SELECT board_member, approved, reviewed_at
		FROM compliance_reviews WHERE proposal_id = $1 ORDER BY reviewed_at
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, uint64(proposalID))
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		review := Review{ProposalID: proposalID}
		var member string
		if err := rows.Scan(&member, &review.Approved, &review.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		review.Member = id.Identity(member)
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func (s *PostgresStore) GetBoardMember(ctx context.Context, identity id.Identity) (*BoardMember, error) {
	query := `SELECT added_at FROM board_members WHERE identity = $1`
	member := BoardMember{Identity: identity}
	err := s.querier(ctx).QueryRowContext(ctx, query, string(identity)).Scan(&member.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get board member: %w", err)
	}
	return &member, nil
}

func (s *PostgresStore) SaveBoardMember(ctx context.Context, member *BoardMember) error {
	query := `
		INSERT INTO board_members (identity, added_at)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO NOTHING
	`
	_, err := s.querier(ctx).ExecContext(ctx, query, string(member.Identity), member.AddedAt)
	if err != nil {
		return fmt.Errorf("save board member: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBoardMember(ctx context.Context, identity id.Identity) error {
	result, err := s.querier(ctx).ExecContext(ctx,
		`DELETE FROM board_members WHERE identity = $1`, string(identity))
	if err != nil {
		return fmt.Errorf("delete board member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete board member: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListBoardMembers(ctx context.Context) ([]BoardMember, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT identity, added_at FROM board_members ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("list board members: %w", err)
	}
	defer rows.Close()

	var members []BoardMember
	for rows.Next() {
		var member BoardMember
		var identity string
		if err := rows.Scan(&identity, &member.AddedAt); err != nil {
			return nil, fmt.Errorf("scan board member: %w", err)
		}
		member.Identity = id.Identity(identity)
		members = append(members, member)
	}
	return members, rows.Err()
}
