package handler

import (
	"time"

	"github.com/tawf-labs/amana-reserve/internal/hai"
)

// StateResponse is the public view of the score aggregate.
type StateResponse struct {
	Admin         string      `json:"admin"`
	CurrentScore  uint64      `json:"current_score"`
	TotalTracked  uint64      `json:"total_tracked"`
	Compliant     uint64      `json:"compliant"`
	AssetBacked   uint64      `json:"asset_backed"`
	EconomicValue uint64      `json:"economic_value"`
	SnapshotCount uint64      `json:"snapshot_count"`
	Weights       hai.Weights `json:"weights"`
}

func FromState(s *hai.ScoreState) StateResponse {
	return StateResponse{
		Admin:         string(s.Admin),
		CurrentScore:  s.CurrentScore,
		TotalTracked:  s.Total,
		Compliant:     s.Compliant,
		AssetBacked:   s.AssetBacked,
		EconomicValue: s.EconomicValue,
		SnapshotCount: s.SnapshotCount,
		Weights:       s.Weights,
	}
}

// SnapshotResponse is the public view of one snapshot.
type SnapshotResponse struct {
	ID          uint64    `json:"id"`
	Score       uint64    `json:"score"`
	Total       uint64    `json:"total_activities"`
	Compliant   uint64    `json:"compliant_activities"`
	AssetBacked uint64    `json:"asset_backed_activities"`
	TakenAt     time.Time `json:"taken_at"`
}

func FromSnapshot(s *hai.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:          uint64(s.ID),
		Score:       s.Score,
		Total:       s.Total,
		Compliant:   s.Compliant,
		AssetBacked: s.AssetBacked,
		TakenAt:     s.TakenAt,
	}
}

// SampleResponse reports a sampled score computation.
type SampleResponse struct {
	Score      uint64 `json:"score"`
	Randomness uint64 `json:"randomness"`
	Sources    []byte `json:"sources"`
}

func FromSampleResult(r *hai.SampleResult) SampleResponse {
	return SampleResponse{Score: r.Score, Randomness: r.Randomness, Sources: r.Sources}
}

// ActivityMetricsResponse is the public view of one tracked activity.
type ActivityMetricsResponse struct {
	ActivityID           string    `json:"activity_id"`
	IsCompliant          bool      `json:"is_compliant"`
	IsAssetBacked        bool      `json:"is_asset_backed"`
	HasRealEconomicValue bool      `json:"has_real_economic_value"`
	ValidatorCount       uint32    `json:"validator_count"`
	PositiveVotes        uint32    `json:"positive_votes"`
	TrackedAt            time.Time `json:"tracked_at"`
}

func FromActivityMetrics(m *hai.ActivityMetrics) ActivityMetricsResponse {
	return ActivityMetricsResponse{
		ActivityID:           m.ActivityID.String(),
		IsCompliant:          m.IsCompliant,
		IsAssetBacked:        m.IsAssetBacked,
		HasRealEconomicValue: m.HasRealEconomicValue,
		ValidatorCount:       m.ValidatorCount,
		PositiveVotes:        m.PositiveVotes,
		TrackedAt:            m.TrackedAt,
	}
}
