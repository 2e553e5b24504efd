package handler

import (
	"time"

	"github.com/tawf-labs/amana-reserve/internal/activity"
)

// ActivityResponse is the public view of one activity.
type ActivityResponse struct {
	ID              string     `json:"id"`
	Initiator       string     `json:"initiator"`
	CapitalRequired uint64     `json:"capital_required"`
	CapitalDeployed uint64     `json:"capital_deployed"`
	Status          string     `json:"status"`
	Outcome         int64      `json:"outcome"`
	IsValidated     bool       `json:"is_validated"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func FromActivity(a *activity.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:              a.ID.String(),
		Initiator:       string(a.Initiator),
		CapitalRequired: a.CapitalRequired,
		CapitalDeployed: a.CapitalDeployed,
		Status:          string(a.Status),
		Outcome:         a.Outcome,
		IsValidated:     a.IsValidated,
		CreatedAt:       a.CreatedAt,
	}
	if !a.CompletedAt.IsZero() {
		completedAt := a.CompletedAt
		resp.CompletedAt = &completedAt
	}
	return resp
}

// DistributeResponse reports the per-participant profit share credited.
type DistributeResponse struct {
	PerParticipant uint64 `json:"per_participant"`
}
