package handler

// InitializeRequest is the body for POST /admin/governance/init.
type InitializeRequest struct {
	Admin               string `json:"admin"`
	VotingDelaySeconds  int64  `json:"voting_delay_seconds"`
	VotingPeriodSeconds int64  `json:"voting_period_seconds"`
	QuorumBps           uint16 `json:"quorum_bps"`
}

// CreateProposalRequest is the body for POST /governance/proposals.
type CreateProposalRequest struct {
	Target                  string `json:"target"`
	Amount                  uint64 `json:"amount"`
	AffectsComplianceDomain bool   `json:"affects_compliance_domain"`
}

// VoteRequest is the body for POST /governance/proposals/{id}/votes.
type VoteRequest struct {
	Choice string `json:"choice"`
	Weight uint64 `json:"weight"`
}

// ReviewRequest is the body for POST /governance/proposals/{id}/reviews.
type ReviewRequest struct {
	Approved bool `json:"approved"`
}

// BoardMemberRequest is the body for POST /admin/governance/board.
type BoardMemberRequest struct {
	Identity string `json:"identity"`
}
