package handler

import (
	"time"

	"github.com/tawf-labs/amana-reserve/internal/reserve"
)

// ReserveResponse is the public view of the reserve aggregate.
type ReserveResponse struct {
	Admin            string `json:"admin"`
	MinContribution  uint64 `json:"min_contribution"`
	MaxParticipants  uint64 `json:"max_participants"`
	TotalCapital     uint64 `json:"total_capital"`
	ParticipantCount uint64 `json:"participant_count"`
}

func FromReserve(r *reserve.Reserve) ReserveResponse {
	return ReserveResponse{
		Admin:            string(r.Admin),
		MinContribution:  r.MinContribution,
		MaxParticipants:  r.MaxParticipants,
		TotalCapital:     r.TotalCapital,
		ParticipantCount: r.ParticipantCount,
	}
}

// ParticipantResponse is the public view of one participant.
type ParticipantResponse struct {
	Identity           string    `json:"identity"`
	CapitalContributed uint64    `json:"capital_contributed"`
	ProfitShare        uint64    `json:"profit_share"`
	LossShare          uint64    `json:"loss_share"`
	IsActive           bool      `json:"is_active"`
	JoinedAt           time.Time `json:"joined_at"`
}

func FromParticipant(p *reserve.Participant) ParticipantResponse {
	return ParticipantResponse{
		Identity:           string(p.Identity),
		CapitalContributed: p.CapitalContributed,
		ProfitShare:        p.ProfitShare,
		LossShare:          p.LossShare,
		IsActive:           p.IsActive,
		JoinedAt:           p.JoinedAt,
	}
}
