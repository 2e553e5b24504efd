package hai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScore_WeightedComponents(t *testing.T) {
	state := ScoreState{
		Total:         10,
		Compliant:     8,
		AssetBacked:   6,
		EconomicValue: 5,
		Weights:       DefaultWeights(),
	}

	score, err := ComputeScore(state)
	require.NoError(t, err)
	// 8000*0.40 + 6000*0.25 + 5000*0.20 + 8000*0.15
	assert.Equal(t, uint64(6900), score)
}

func TestComputeScore_NoActivitiesLeavesScoreUnchanged(t *testing.T) {
	state := ScoreState{
		CurrentScore: 7321,
		Weights:      DefaultWeights(),
	}

	score, err := ComputeScore(state)
	require.NoError(t, err)
	assert.Equal(t, uint64(7321), score)
}

func TestComputeScore_AllSignalsPerfect(t *testing.T) {
	state := ScoreState{
		Total:         5,
		Compliant:     5,
		AssetBacked:   5,
		EconomicValue: 5,
		Weights:       DefaultWeights(),
	}

	score, err := ComputeScore(state)
	require.NoError(t, err)
	// Validator baseline holds the total below the cap.
	assert.Equal(t, uint64(9700), score)
}

func TestComputeScore_ClampsAtMax(t *testing.T) {
	state := ScoreState{
		Total:         5,
		Compliant:     5,
		AssetBacked:   5,
		EconomicValue: 5,
		Weights: Weights{
			Compliance:    6000,
			AssetBacking:  2000,
			EconomicValue: 1000,
			Validator:     1000,
		},
	}

	score, err := ComputeScore(state)
	require.NoError(t, err)
	assert.LessOrEqual(t, score, uint64(MaxScore))
}

func TestApplySaturating(t *testing.T) {
	assert.Equal(t, uint64(5050), ApplySaturating(5000, 50))
	assert.Equal(t, uint64(4975), ApplySaturating(5000, -25))
	assert.Equal(t, uint64(0), ApplySaturating(20, -25))
	assert.Equal(t, uint64(MaxScore), ApplySaturating(9990, 50))
}

func TestSelectSources_Deterministic(t *testing.T) {
	sources := []byte{10, 20, 30, 40, 50}

	first := SelectSources(sources, 7)
	second := SelectSources(sources, 7)
	assert.Equal(t, first, second)
}

func TestSelectSources_CountFromRandomness(t *testing.T) {
	sources := []byte{10, 20, 30, 40, 50}

	// randomness % 3 == 0 selects one source, index 6 % 5 == 1
	assert.Equal(t, []byte{20}, SelectSources(sources, 6))

	// randomness % 3 == 2 selects three sources starting at index 8 % 5 == 3
	assert.Equal(t, []byte{40, 50, 10}, SelectSources(sources, 8))
}

func TestSelectSources_EmptyInput(t *testing.T) {
	assert.Nil(t, SelectSources(nil, 42))
}

func TestScoreWithSources_BonusPerSource(t *testing.T) {
	state := ScoreState{
		Total:     10,
		Compliant: 8,
		Weights:   DefaultWeights(),
	}
	base, err := ComputeScore(state)
	require.NoError(t, err)

	boosted, err := ScoreWithSources(state, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, base+150, boosted)
}

func TestScoreWithSources_CapsAtMax(t *testing.T) {
	state := ScoreState{
		CurrentScore: 9990,
		Weights:      DefaultWeights(),
	}

	boosted, err := ScoreWithSources(state, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(MaxScore), boosted)
}

func TestScoreWithSources_NoSourcesIsBaseScore(t *testing.T) {
	state := ScoreState{CurrentScore: 6400, Weights: DefaultWeights()}

	score, err := ScoreWithSources(state, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(6400), score)
}
