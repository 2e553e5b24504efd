package reserve

import (
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// Reserve is the singleton pooled-capital record. TotalCapital counts only
// capital actually held; deployed capital lives on the activity until
// settlement.
type Reserve struct {
	Admin            id.Identity
	MinContribution  uint64
	MaxParticipants  uint64
	TotalCapital     uint64
	ParticipantCount uint64
	Initialized      bool
}

// Participant tracks one identity's stake in the reserve. Participants are
// deactivated, never deleted.
type Participant struct {
	Identity           id.Identity
	CapitalContributed uint64
	ProfitShare        uint64
	LossShare          uint64
	IsActive           bool
	JoinedAt           time.Time
}
