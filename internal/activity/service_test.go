package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tawf-labs/amana-reserve/internal/bridge"
	"github.com/tawf-labs/amana-reserve/internal/compliance"
	"github.com/tawf-labs/amana-reserve/internal/hai"
	"github.com/tawf-labs/amana-reserve/internal/reserve"
	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
	"github.com/tawf-labs/amana-reserve/pkg/testutil"
)

const adminID = id.Identity("pool-admin")

var joinTime = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	activities *Service
	reserve    *reserve.Service
	compliance *compliance.Service
	scores     *hai.Service
	outbox     *bridge.MemoryOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	runner := tx.NewInMemoryRunner()
	reserveSvc := reserve.NewService(reserve.NewInMemoryStore(), runner)
	complianceSvc := compliance.NewService(compliance.NewInMemoryStore())
	scoreSvc := hai.NewService(hai.NewInMemoryStore(), runner)
	outbox := bridge.NewMemoryOutbox()
	activitySvc := NewService(NewInMemoryStore(), reserveSvc, complianceSvc, scoreSvc, runner,
		WithOutbox(outbox))

	adminCtx := testutil.ContextAs(adminID, joinTime)
	_, err := reserveSvc.Initialize(adminCtx, adminID, 500, 1000)
	require.NoError(t, err)
	_, err = scoreSvc.Initialize(adminCtx, adminID, 0)
	require.NoError(t, err)

	return &fixture{
		activities: activitySvc,
		reserve:    reserveSvc,
		compliance: complianceSvc,
		scores:     scoreSvc,
		outbox:     outbox,
	}
}

// proposeApproved joins alice with 1000 and walks an activity to Approved.
func (f *fixture) proposeApproved(t *testing.T, capitalRequired uint64) *Activity {
	t.Helper()
	aliceCtx := testutil.ContextAs("alice", joinTime)
	_, err := f.reserve.Join(aliceCtx, 1000)
	require.NoError(t, err)

	activity, err := f.activities.Propose(aliceCtx, capitalRequired)
	require.NoError(t, err)

	approved, err := f.activities.Approve(testutil.ContextAs(adminID, joinTime), activity.ID)
	require.NoError(t, err)
	return approved
}

func TestPropose_RequiresActiveParticipant(t *testing.T) {
	f := newFixture(t)

	_, err := f.activities.Propose(testutil.ContextAs("stranger", joinTime), 100)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestPropose_RejectsCapitalBeyondReserve(t *testing.T) {
	f := newFixture(t)
	aliceCtx := testutil.ContextAs("alice", joinTime)
	_, err := f.reserve.Join(aliceCtx, 1000)
	require.NoError(t, err)

	_, err = f.activities.Propose(aliceCtx, 1001)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = f.activities.Propose(aliceCtx, 0)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestApprove_MovesCapitalOutOfReserve(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	assert.Equal(t, StatusApproved, activity.Status)
	assert.Equal(t, uint64(600), activity.CapitalDeployed)

	state, err := f.reserve.State(testutil.ContextAs(adminID, joinTime))
	require.NoError(t, err)
	assert.Equal(t, uint64(400), state.TotalCapital)
}

func TestApprove_AdminOnly(t *testing.T) {
	f := newFixture(t)
	aliceCtx := testutil.ContextAs("alice", joinTime)
	_, err := f.reserve.Join(aliceCtx, 1000)
	require.NoError(t, err)
	activity, err := f.activities.Propose(aliceCtx, 600)
	require.NoError(t, err)

	_, err = f.activities.Approve(aliceCtx, activity.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestApprove_OnlyFromProposed(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	_, err := f.activities.Approve(testutil.ContextAs(adminID, joinTime), activity.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestApprove_RechecksCapital(t *testing.T) {
	f := newFixture(t)
	aliceCtx := testutil.ContextAs("alice", joinTime)
	_, err := f.reserve.Join(aliceCtx, 1000)
	require.NoError(t, err)
	activity, err := f.activities.Propose(aliceCtx, 600)
	require.NoError(t, err)

	// Capital moves between propose and approve.
	_, err = f.reserve.Withdraw(aliceCtx, 500)
	require.NoError(t, err)

	_, err = f.activities.Approve(testutil.ContextAs(adminID, joinTime), activity.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestComplete_ProfitScenario(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	completeAt := joinTime.Add(48 * time.Hour)
	completed, err := f.activities.Complete(testutil.ContextAs("alice", completeAt), activity.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.True(t, completed.IsValidated)
	assert.Equal(t, completeAt, completed.CompletedAt)

	state, err := f.reserve.State(testutil.ContextAs(adminID, completeAt))
	require.NoError(t, err)
	assert.Equal(t, uint64(1120), state.TotalCapital)

	verdict, err := f.compliance.Status(testutil.ContextAs(adminID, completeAt), activity.ID)
	require.NoError(t, err)
	assert.True(t, verdict.IsCompliant)

	score, err := f.scores.State(testutil.ContextAs(adminID, completeAt))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), score.Total)
	assert.Equal(t, uint64(1), score.Compliant)

	messages := f.outbox.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, activity.ID.String(), messages[0].ActivityID)
	assert.Equal(t, int64(120), messages[0].Outcome)
}

func TestComplete_TotalLossScenario(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	completeAt := joinTime.Add(48 * time.Hour)
	_, err := f.activities.Complete(testutil.ContextAs("alice", completeAt), activity.ID, -700)
	require.NoError(t, err)

	// Loss beyond deployed capital consumes it entirely.
	state, err := f.reserve.State(testutil.ContextAs(adminID, completeAt))
	require.NoError(t, err)
	assert.Equal(t, uint64(400), state.TotalCapital)

	verdict, err := f.compliance.Status(testutil.ContextAs(adminID, completeAt), activity.ID)
	require.NoError(t, err)
	assert.False(t, verdict.IsCompliant)
	assert.True(t, verdict.RequiresReview)
	assert.Equal(t, compliance.ReasonExcessiveLoss, verdict.Reason)
}

func TestComplete_PartialLoss(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	completeAt := joinTime.Add(48 * time.Hour)
	_, err := f.activities.Complete(testutil.ContextAs("alice", completeAt), activity.ID, -200)
	require.NoError(t, err)

	state, err := f.reserve.State(testutil.ContextAs(adminID, completeAt))
	require.NoError(t, err)
	assert.Equal(t, uint64(800), state.TotalCapital)
}

func TestComplete_NeutralOutcome(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	completeAt := joinTime.Add(48 * time.Hour)
	_, err := f.activities.Complete(testutil.ContextAs("alice", completeAt), activity.ID, 0)
	require.NoError(t, err)

	state, err := f.reserve.State(testutil.ContextAs(adminID, completeAt))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), state.TotalCapital)
}

func TestComplete_StatusNeverGoesBackward(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)
	completeAt := joinTime.Add(48 * time.Hour)
	ctx := testutil.ContextAs("alice", completeAt)

	_, err := f.activities.Complete(ctx, activity.ID, 50)
	require.NoError(t, err)

	_, err = f.activities.Complete(ctx, activity.ID, 50)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = f.activities.Reject(ctx, activity.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestComplete_OnlyAdminOrInitiator(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	_, err := f.activities.Complete(testutil.ContextAs("stranger", joinTime.Add(48*time.Hour)), activity.ID, 50)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestDeployRealtime_TopsUpDeployedCapital(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)
	adminCtx := testutil.ContextAs(adminID, joinTime)

	active, err := f.activities.DeployRealtime(adminCtx, activity.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, active.Status)
	assert.Equal(t, uint64(900), active.CapitalDeployed)

	state, err := f.reserve.State(adminCtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), state.TotalCapital)

	// Settlement from Active returns the full deployed amount plus profit.
	completeAt := joinTime.Add(48 * time.Hour)
	_, err = f.activities.Complete(testutil.ContextAs("alice", completeAt), activity.ID, 100)
	require.NoError(t, err)

	state, err = f.reserve.State(adminCtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), state.TotalCapital)
}

func TestReject_ReturnsDeployedCapital(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)

	rejected, err := f.activities.Reject(testutil.ContextAs("alice", joinTime), activity.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	state, err := f.reserve.State(testutil.ContextAs(adminID, joinTime))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), state.TotalCapital)
}

func TestDistributeProfits_SplitsEvenly(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)
	bobCtx := testutil.ContextAs("bob", joinTime)
	_, err := f.reserve.Join(bobCtx, 500)
	require.NoError(t, err)

	completeAt := joinTime.Add(48 * time.Hour)
	_, err = f.activities.Complete(testutil.ContextAs("alice", completeAt), activity.ID, 120)
	require.NoError(t, err)

	perParticipant, err := f.activities.DistributeProfits(testutil.ContextAs(adminID, completeAt), activity.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), perParticipant)

	alice, err := f.reserve.Participant(testutil.ContextAs(adminID, completeAt), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), alice.ProfitShare)
}

func TestDistributeProfits_RequiresProfit(t *testing.T) {
	f := newFixture(t)
	activity := f.proposeApproved(t, 600)
	completeAt := joinTime.Add(48 * time.Hour)
	_, err := f.activities.Complete(testutil.ContextAs("alice", completeAt), activity.ID, -100)
	require.NoError(t, err)

	_, err = f.activities.DistributeProfits(testutil.ContextAs(adminID, completeAt), activity.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestScoreImpact(t *testing.T) {
	created := joinTime
	profitable := &Activity{Outcome: 100, IsValidated: true, CreatedAt: created}
	assert.Equal(t, int64(50), ScoreImpact(profitable, created.Add(48*time.Hour)))

	lossMaking := &Activity{Outcome: -100, CreatedAt: created}
	assert.Equal(t, int64(-25), ScoreImpact(lossMaking, created.Add(48*time.Hour)))

	longProfit := &Activity{Outcome: 100, IsValidated: true, CreatedAt: created}
	assert.Equal(t, int64(75), ScoreImpact(longProfit, created.Add(31*24*time.Hour)))

	neutral := &Activity{Outcome: 0, CreatedAt: created}
	assert.Equal(t, int64(0), ScoreImpact(neutral, created.Add(time.Hour)))
}

func TestCapitalConservationThroughLifecycle(t *testing.T) {
	f := newFixture(t)
	aliceCtx := testutil.ContextAs("alice", joinTime)
	_, err := f.reserve.Join(aliceCtx, 1000)
	require.NoError(t, err)

	contributions := uint64(1000)
	var netOutcome int64

	for i, outcome := range []int64{120, -200, 0} {
		proposal, err := f.activities.Propose(aliceCtx, 300)
		require.NoError(t, err)
		_, err = f.activities.Approve(testutil.ContextAs(adminID, joinTime), proposal.ID)
		require.NoError(t, err)

		completeAt := joinTime.Add(time.Duration(i+2) * 24 * time.Hour)
		_, err = f.activities.Complete(testutil.ContextAs("alice", completeAt), proposal.ID, outcome)
		require.NoError(t, err)
		netOutcome += outcome

		state, err := f.reserve.State(aliceCtx)
		require.NoError(t, err)
		assert.Equal(t, int64(contributions)+netOutcome, int64(state.TotalCapital))
	}
}
