package compliance

import (
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// State records the gate's verdict for one activity. Produced exclusively by
// this package; read by governance and scoring.
type State struct {
	ActivityID     id.ActivityID
	IsCompliant    bool
	RequiresReview bool
	VerifiedAt     time.Time
	FlaggedAt      time.Time
	Reason         string
}
