package handler

// InitializeRequest is the body for POST /admin/reserve/init.
type InitializeRequest struct {
	Admin           string `json:"admin"`
	MinContribution uint64 `json:"min_contribution"`
	MaxParticipants uint64 `json:"max_participants"`
}

// AmountRequest is the shared body for join, deposit, and withdraw.
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// DeactivateRequest names the participant to deactivate. An empty identity
// means the caller deactivates themselves.
type DeactivateRequest struct {
	Identity string `json:"identity,omitempty"`
}
