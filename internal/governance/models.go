package governance

import (
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// ProposalStatus tracks a proposal through its voting lifecycle.
type ProposalStatus string

const (
	StatusPending  ProposalStatus = "pending"
	StatusActive   ProposalStatus = "active"
	StatusExecuted ProposalStatus = "executed"
	StatusCanceled ProposalStatus = "canceled"
)

// Terminal reports whether no further transitions are possible.
func (s ProposalStatus) Terminal() bool {
	return s == StatusExecuted || s == StatusCanceled
}

// Config is the singleton governance configuration. Voting windows for new
// proposals derive from it at creation time.
type Config struct {
	Admin        id.Identity
	VotingDelay  time.Duration
	VotingPeriod time.Duration
	// QuorumBps is retained for reporting; execution checks only that the
	// total vote weight is nonzero.
	QuorumBps     uint16
	ProposalCount uint64
	Initialized   bool
}

// VoteChoice is a voter's position on a proposal.
type VoteChoice string

const (
	VoteFor     VoteChoice = "for"
	VoteAgainst VoteChoice = "against"
	VoteAbstain VoteChoice = "abstain"
)

// Proposal is a request to move reserve capital to a target, subject to a
// token vote and, when it touches compliance-sensitive ground, board review.
type Proposal struct {
	ID       id.ProposalID
	Proposer id.Identity
	Target   id.Identity
	Amount   uint64
	// AffectsComplianceDomain marks proposals that need board sign-off
	// before execution.
	AffectsComplianceDomain bool
	Status                  ProposalStatus
	CreatedAt               time.Time
	VotingStartsAt          time.Time
	VotingEndsAt            time.Time
	ForVotes                uint64
	AgainstVotes            uint64
	AbstainVotes            uint64
	// ComplianceApproved starts true for proposals outside the compliance
	// domain and otherwise reflects the most recent board review.
	ComplianceApproved bool
}

// Review is one board member's verdict on a proposal. Reviews are append-only;
// a member reviewing twice produces two records.
type Review struct {
	ProposalID id.ProposalID
	Member     id.Identity
	Approved   bool
	ReviewedAt time.Time
}

// BoardMember is an identity seated on the compliance board.
type BoardMember struct {
	Identity id.Identity
	AddedAt  time.Time
}
