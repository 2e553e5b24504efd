package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_CompliantProfit(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         120,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(48*time.Hour))
	require.NoError(t, err)
	assert.True(t, verdict.Compliant)
	assert.Empty(t, verdict.Reason)
}

func TestEvaluate_LossExceedingDeployedCapital(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         -700,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(48*time.Hour))
	require.NoError(t, err)
	assert.False(t, verdict.Compliant)
	assert.Equal(t, ReasonExcessiveLoss, verdict.Reason)
}

func TestEvaluate_LossEqualToDeployedCapitalPasses(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         -600,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(48*time.Hour))
	require.NoError(t, err)
	assert.True(t, verdict.Compliant)
}

func TestEvaluate_ExcessiveMargin(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         301,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(48*time.Hour))
	require.NoError(t, err)
	assert.False(t, verdict.Compliant)
	assert.Equal(t, ReasonExcessiveMargin, verdict.Reason)
}

func TestEvaluate_MarginAtExactlyFiftyPercentPasses(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         300,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(48*time.Hour))
	require.NoError(t, err)
	assert.True(t, verdict.Compliant)
}

func TestEvaluate_ShortDuration(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         10,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(23*time.Hour))
	require.NoError(t, err)
	assert.False(t, verdict.Compliant)
	assert.Equal(t, ReasonShortDuration, verdict.Reason)
}

func TestEvaluate_ExactMinimumDurationPasses(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         0,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(MinHoldingPeriod))
	require.NoError(t, err)
	assert.True(t, verdict.Compliant)
}

func TestEvaluate_LossRuleCheckedBeforeDuration(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         -700,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	verdict, err := Evaluate(snap, created.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, verdict.Compliant)
	assert.Equal(t, ReasonExcessiveLoss, verdict.Reason)
}

func TestEvaluate_ZeroRequiredCapitalWithProfitFails(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Outcome:         10,
		CapitalRequired: 0,
		CapitalDeployed: 0,
		CreatedAt:       created,
	}

	_, err := Evaluate(snap, created.Add(48*time.Hour))
	require.Error(t, err)
}

func TestEvaluate_Deterministic(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	snap := Snapshot{
		Outcome:         120,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	first, err := Evaluate(snap, now)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Evaluate(snap, now)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
