package handler

import (
	"time"

	"github.com/tawf-labs/amana-reserve/internal/governance"
)

// ConfigResponse is the public view of the governance configuration.
type ConfigResponse struct {
	Admin               string `json:"admin"`
	VotingDelaySeconds  int64  `json:"voting_delay_seconds"`
	VotingPeriodSeconds int64  `json:"voting_period_seconds"`
	QuorumBps           uint16 `json:"quorum_bps"`
	ProposalCount       uint64 `json:"proposal_count"`
}

func FromConfig(c *governance.Config) ConfigResponse {
	return ConfigResponse{
		Admin:               string(c.Admin),
		VotingDelaySeconds:  int64(c.VotingDelay / time.Second),
		VotingPeriodSeconds: int64(c.VotingPeriod / time.Second),
		QuorumBps:           c.QuorumBps,
		ProposalCount:       c.ProposalCount,
	}
}

// ProposalResponse is the public view of one proposal.
type ProposalResponse struct {
	ID                      uint64    `json:"id"`
	Proposer                string    `json:"proposer"`
	Target                  string    `json:"target"`
	Amount                  uint64    `json:"amount"`
	AffectsComplianceDomain bool      `json:"affects_compliance_domain"`
	Status                  string    `json:"status"`
	CreatedAt               time.Time `json:"created_at"`
	VotingStartsAt          time.Time `json:"voting_starts_at"`
	VotingEndsAt            time.Time `json:"voting_ends_at"`
	ForVotes                uint64    `json:"for_votes"`
	AgainstVotes            uint64    `json:"against_votes"`
	AbstainVotes            uint64    `json:"abstain_votes"`
	ComplianceApproved      bool      `json:"compliance_approved"`
}

func FromProposal(p *governance.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:                      uint64(p.ID),
		Proposer:                string(p.Proposer),
		Target:                  string(p.Target),
		Amount:                  p.Amount,
		AffectsComplianceDomain: p.AffectsComplianceDomain,
		Status:                  string(p.Status),
		CreatedAt:               p.CreatedAt,
		VotingStartsAt:          p.VotingStartsAt,
		VotingEndsAt:            p.VotingEndsAt,
		ForVotes:                p.ForVotes,
		AgainstVotes:            p.AgainstVotes,
		AbstainVotes:            p.AbstainVotes,
		ComplianceApproved:      p.ComplianceApproved,
	}
}

// ReviewResponse is the public view of one board review.
type ReviewResponse struct {
	ProposalID uint64    `json:"proposal_id"`
	Member     string    `json:"member"`
	Approved   bool      `json:"approved"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

func FromReview(r *governance.Review) ReviewResponse {
	return ReviewResponse{
		ProposalID: uint64(r.ProposalID),
		Member:     string(r.Member),
		Approved:   r.Approved,
		ReviewedAt: r.ReviewedAt,
	}
}

// BoardMemberResponse is the public view of one board seat.
type BoardMemberResponse struct {
	Identity string    `json:"identity"`
	AddedAt  time.Time `json:"added_at"`
}

func FromBoardMember(m *governance.BoardMember) BoardMemberResponse {
	return BoardMemberResponse{Identity: string(m.Identity), AddedAt: m.AddedAt}
}
