package activity

import (
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// Status is the activity lifecycle state. Transitions never skip a state and
// never go backward.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusProposed:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusActive || next == StatusCompleted || next == StatusRejected
	case StatusActive:
		return next == StatusCompleted
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Activity is one proposed economic action funded from the reserve. Deployed
// capital lives here between approval and settlement.
type Activity struct {
	ID              id.ActivityID
	Initiator       id.Identity
	CapitalRequired uint64
	CapitalDeployed uint64
	Status          Status
	Outcome         int64
	IsValidated     bool
	CreatedAt       time.Time
	CompletedAt     time.Time
}
