package handler

import (
	"github.com/tawf-labs/amana-reserve/internal/hai"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
)

// InitializeRequest is the body for POST /admin/hai/init.
type InitializeRequest struct {
	Admin        string `json:"admin"`
	InitialScore uint64 `json:"initial_score"`
}

// TrackRequest is the body for POST /admin/hai/track.
type TrackRequest struct {
	ActivityID           string `json:"activity_id"`
	IsCompliant          bool   `json:"is_compliant"`
	IsAssetBacked        bool   `json:"is_asset_backed"`
	HasRealEconomicValue bool   `json:"has_real_economic_value"`
	ValidatorCount       uint32 `json:"validator_count"`
	PositiveVotes        uint32 `json:"positive_votes"`
}

// Input converts the request into the domain track input.
func (r TrackRequest) Input() (hai.TrackInput, error) {
	activityID, err := id.ParseActivityID(r.ActivityID)
	if err != nil {
		return hai.TrackInput{}, dErrors.New(dErrors.CodeBadRequest, "invalid activity id")
	}
	return hai.TrackInput{
		ActivityID:           activityID,
		IsCompliant:          r.IsCompliant,
		IsAssetBacked:        r.IsAssetBacked,
		HasRealEconomicValue: r.HasRealEconomicValue,
		ValidatorCount:       r.ValidatorCount,
		PositiveVotes:        r.PositiveVotes,
	}, nil
}

// DeltaRequest is the body for POST /admin/hai/delta.
type DeltaRequest struct {
	ActivityID string `json:"activity_id"`
	Delta      int64  `json:"delta"`
}

// WeightsRequest is the body for PUT /admin/hai/weights. Basis points, must
// sum to 10000.
type WeightsRequest struct {
	Compliance    uint64 `json:"compliance"`
	AssetBacking  uint64 `json:"asset_backing"`
	EconomicValue uint64 `json:"economic_value"`
	Validator     uint64 `json:"validator_participation"`
}

// UpdaterRequest is the body for POST /admin/hai/updaters.
type UpdaterRequest struct {
	Identity string `json:"identity"`
}

// SampleRequest is the body for POST /hai/sample.
type SampleRequest struct {
	ActivityID string `json:"activity_id"`
	Sources    []byte `json:"sources"`
}
