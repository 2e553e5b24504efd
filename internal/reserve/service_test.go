package reserve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/testutil"
)

const adminID = id.Identity("reserve-admin")

var testTime = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

func newReserveService(t *testing.T, minContribution, maxParticipants uint64) *Service {
	t.Helper()
	svc := NewService(NewInMemoryStore(), tx.NewInMemoryRunner())
	_, err := svc.Initialize(testutil.ContextAs(adminID, testTime), adminID, minContribution, maxParticipants)
	require.NoError(t, err)
	return svc
}

func TestJoin_CreatesParticipantAndCreditsCapital(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)

	participant, err := svc.Join(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), participant.CapitalContributed)
	assert.True(t, participant.IsActive)
	assert.Equal(t, testTime, participant.JoinedAt)

	reserve, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), reserve.TotalCapital)
	assert.Equal(t, uint64(1), reserve.ParticipantCount)
}

func TestJoin_BelowMinimumContribution(t *testing.T) {
	svc := newReserveService(t, 500, 10)

	_, err := svc.Join(testutil.ContextAs("alice", testTime), 499)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestJoin_CapacityExceeded(t *testing.T) {
	svc := newReserveService(t, 500, 1)
	_, err := svc.Join(testutil.ContextAs("alice", testTime), 1000)
	require.NoError(t, err)

	_, err = svc.Join(testutil.ContextAs("bob", testTime), 1000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestJoin_Twice(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)
	_, err := svc.Join(ctx, 1000)
	require.NoError(t, err)

	_, err = svc.Join(ctx, 1000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDeposit_AccumulatesBalance(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)
	_, err := svc.Join(ctx, 1000)
	require.NoError(t, err)

	participant, err := svc.Deposit(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, uint64(1250), participant.CapitalContributed)

	reserve, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1250), reserve.TotalCapital)
}

func TestDeposit_ZeroAmount(t *testing.T) {
	svc := newReserveService(t, 500, 10)

	_, err := svc.Deposit(testutil.ContextAs("alice", testTime), 0)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestWithdraw_InsufficientBalance(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)
	_, err := svc.Join(ctx, 1000)
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, 1001)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestWithdraw_InsufficientLiquidityWhileDeployed(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)
	_, err := svc.Join(ctx, 1000)
	require.NoError(t, err)

	// Deploy most of the pool so held capital drops below alice's balance.
	require.NoError(t, svc.DeployCapital(ctx, 800))

	_, err = svc.Withdraw(ctx, 500)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// Within the held balance the withdrawal still works.
	participant, err := svc.Withdraw(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, uint64(800), participant.CapitalContributed)
}

func TestDeactivate_BlocksDepositsButKeepsRecord(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)
	_, err := svc.Join(ctx, 1000)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(testutil.ContextAs(adminID, testTime), "alice"))

	_, err = svc.Deposit(ctx, 100)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	participant, err := svc.Participant(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, participant.IsActive)
	assert.Equal(t, uint64(1000), participant.CapitalContributed)
}

func TestDeactivate_RequiresSelfOrAdmin(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	_, err := svc.Join(testutil.ContextAs("alice", testTime), 1000)
	require.NoError(t, err)

	err = svc.Deactivate(testutil.ContextAs("bob", testTime), "alice")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestCreditProfitShares_NoActiveParticipants(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)
	_, err := svc.Join(ctx, 1000)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(testutil.ContextAs(adminID, testTime), "alice"))

	_, err = svc.CreditProfitShares(ctx, 300)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDeployCapital_BoundedByHeldCapital(t *testing.T) {
	svc := newReserveService(t, 500, 10)
	ctx := testutil.ContextAs("alice", testTime)
	_, err := svc.Join(ctx, 1000)
	require.NoError(t, err)

	err = svc.DeployCapital(ctx, 1001)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	require.NoError(t, svc.DeployCapital(ctx, 600))
	available, err := svc.AvailableCapital(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), available)
}

func TestCapitalConservation(t *testing.T) {
	svc := newReserveService(t, 100, 10)
	alice := testutil.ContextAs("alice", testTime)
	bob := testutil.ContextAs("bob", testTime)

	_, err := svc.Join(alice, 1000)
	require.NoError(t, err)
	_, err = svc.Join(bob, 700)
	require.NoError(t, err)
	_, err = svc.Deposit(alice, 300)
	require.NoError(t, err)
	_, err = svc.Withdraw(bob, 200)
	require.NoError(t, err)

	// Deploy 600, settle back 720 (a 120 profit).
	require.NoError(t, svc.DeployCapital(alice, 600))
	require.NoError(t, svc.SettleCapital(alice, 720))

	reserve, err := svc.State(alice)
	require.NoError(t, err)
	// 1000 + 700 + 300 - 200 + 120 net outcome
	assert.Equal(t, uint64(1920), reserve.TotalCapital)
}
