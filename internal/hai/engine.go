// Package hai maintains the composite activity score: a bounded basis-point
// value recomputed from cumulative counters whenever an activity is tracked.
// The engine functions in this file are pure; persistence and authorization
// live in the Service.
package hai

import (
	"github.com/tawf-labs/amana-reserve/pkg/platform/safemath"
)

const (
	// MaxScore is the upper bound of the composite score, 100.00% in basis
	// points.
	MaxScore = 10000

	// validatorBaseline stands in for a measured validator-participation
	// component until one exists.
	validatorBaseline = 8000
)

// ComputeScore recalculates the composite score from the aggregate counters.
// With no tracked activities the current score is returned unchanged. All
// intermediate arithmetic is checked; only the final value is clamped.
func ComputeScore(state ScoreState) (uint64, error) {
	if state.Total == 0 {
		return state.CurrentScore, nil
	}

	compliance, err := component(state.Compliant, state.Total)
	if err != nil {
		return 0, err
	}
	assetBacking, err := component(state.AssetBacked, state.Total)
	if err != nil {
		return 0, err
	}
	economicValue, err := component(state.EconomicValue, state.Total)
	if err != nil {
		return 0, err
	}

	score, err := weighted(compliance, state.Weights.Compliance)
	if err != nil {
		return 0, err
	}
	for _, part := range []struct {
		component uint64
		weight    uint64
	}{
		{assetBacking, state.Weights.AssetBacking},
		{economicValue, state.Weights.EconomicValue},
		{validatorBaseline, state.Weights.Validator},
	} {
		term, err := weighted(part.component, part.weight)
		if err != nil {
			return 0, err
		}
		score, err = safemath.Add(score, term)
		if err != nil {
			return 0, err
		}
	}

	return min(score, MaxScore), nil
}

func component(count, total uint64) (uint64, error) {
	scaled, err := safemath.Mul(count, MaxScore)
	if err != nil {
		return 0, err
	}
	return safemath.Div(scaled, total)
}

func weighted(component, weight uint64) (uint64, error) {
	scaled, err := safemath.Mul(component, weight)
	if err != nil {
		return 0, err
	}
	return safemath.Div(scaled, MaxScore)
}

// ApplySaturating adjusts a score by a signed delta, clamping to [0, MaxScore].
// Unlike the counter recomputation, realtime deltas saturate on purpose.
func ApplySaturating(score uint64, delta int64) uint64 {
	if delta >= 0 {
		adjusted := score + uint64(delta)
		if adjusted < score || adjusted > MaxScore {
			return MaxScore
		}
		return adjusted
	}
	loss := uint64(-delta)
	if loss > score {
		return 0
	}
	return score - loss
}

// SelectSources picks a deterministic subset of data sources from the supplied
// randomness. Between one and three distinct indices are chosen.
func SelectSources(sources []byte, randomness uint64) []byte {
	if len(sources) == 0 {
		return nil
	}

	count := int(randomness%3) + 1
	if count > len(sources) {
		count = len(sources)
	}

	var selected []byte
	for i := 0; i < count; i++ {
		idx := (randomness + uint64(i)) % uint64(len(sources))
		candidate := sources[idx]
		duplicate := false
		for _, s := range selected {
			if s == candidate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			selected = append(selected, candidate)
		}
	}
	return selected
}

// ScoreWithSources layers a flat per-source bonus on top of the counter-based
// score. This is an auxiliary path; the counter-based computation remains
// authoritative.
func ScoreWithSources(state ScoreState, sources []byte) (uint64, error) {
	base, err := ComputeScore(state)
	if err != nil {
		return 0, err
	}
	if len(sources) == 0 {
		return base, nil
	}
	bonus := uint64(len(sources)) * 50
	return min(base+bonus, MaxScore), nil
}
