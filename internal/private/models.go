package private

import (
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// State is the singleton aggregate for private deployments. Capital amounts
// never appear here in the clear.
type State struct {
	Admin           id.Identity
	ActivityCount   uint64
	LastCommittedAt time.Time
	Initialized     bool
}

// Activity is one privately deployed tranche. The amount stays encrypted; only
// the hash identifies the underlying activity.
type Activity struct {
	ActivityHash    id.ActivityID
	EncryptedAmount [32]byte
	Attestation     []byte
	Deployer        id.Identity
	DeployedAt      time.Time
	IsActive        bool
}

// ScoreRecord holds an encrypted score computed inside the enclave, with the
// proof the enclave produced for it.
type ScoreRecord struct {
	EncryptedScore [32]byte
	Proof          []byte
	UpdatedAt      time.Time
}
