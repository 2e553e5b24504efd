package hai

import (
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// Default basis-point weights applied at initialization.
const (
	DefaultComplianceWeight    = 4000
	DefaultAssetBackingWeight  = 2500
	DefaultEconomicValueWeight = 2000
	DefaultValidatorWeight     = 1500
)

// Weights are the basis-point weights of the four score components. They must
// sum to exactly 10000.
type Weights struct {
	Compliance    uint64 `json:"compliance"`
	AssetBacking  uint64 `json:"asset_backing"`
	EconomicValue uint64 `json:"economic_value"`
	Validator     uint64 `json:"validator_participation"`
}

func DefaultWeights() Weights {
	return Weights{
		Compliance:    DefaultComplianceWeight,
		AssetBacking:  DefaultAssetBackingWeight,
		EconomicValue: DefaultEconomicValueWeight,
		Validator:     DefaultValidatorWeight,
	}
}

// ScoreState is the singleton score aggregate. All mutation funnels through
// the Service; reads outside this package see copies.
type ScoreState struct {
	Admin         id.Identity
	CurrentScore  uint64
	Total         uint64
	Compliant     uint64
	AssetBacked   uint64
	EconomicValue uint64
	SnapshotCount uint64
	Weights       Weights
	Initialized   bool
}

// ActivityMetrics records the per-activity signals fed into the aggregate.
type ActivityMetrics struct {
	ActivityID           id.ActivityID
	IsCompliant          bool
	IsAssetBacked        bool
	HasRealEconomicValue bool
	ValidatorCount       uint32
	PositiveVotes        uint32
	TrackedAt            time.Time
}

// Snapshot is a point-in-time copy of the aggregate, identified by a
// monotonically increasing snapshot number.
type Snapshot struct {
	ID          id.SnapshotID `json:"id"`
	Score       uint64        `json:"score"`
	Total       uint64        `json:"total_activities"`
	Compliant   uint64        `json:"compliant_activities"`
	AssetBacked uint64        `json:"asset_backed_activities"`
	TakenAt     time.Time     `json:"taken_at"`
}

// Updater is an identity the admin has delegated score updates to.
type Updater struct {
	Identity     id.Identity
	IsAuthorized bool
}
