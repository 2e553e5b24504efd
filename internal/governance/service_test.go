package governance

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

const (
	daoAdmin = id.Identity("dao-admin")
	proposer = id.Identity("alice")
	scholar  = id.Identity("scholar-one")
)

var (
	createdAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	votingDelay  = time.Hour
	votingPeriod = 72 * time.Hour

	// Relative to createdAt for proposals created there.
	votingOpen   = createdAt.Add(votingDelay)
	votingClosed = createdAt.Add(votingDelay + votingPeriod + time.Second)
)

func newGovernance(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc := NewService(NewInMemoryStore(), tx.NewInMemoryRunner(), opts...)
	_, err := svc.Initialize(testutil.ContextAs(daoAdmin, createdAt), daoAdmin, votingDelay, votingPeriod, 1000)
	require.NoError(t, err)
	return svc
}

func createProposal(t *testing.T, svc *Service, affectsCompliance bool) *Proposal {
	t.Helper()
	proposal, err := svc.CreateProposal(testutil.ContextAs(proposer, createdAt), "treasury", 5_000, affectsCompliance)
	require.NoError(t, err)
	return proposal
}

func TestCreateProposal_SequentialIDsAndWindows(t *testing.T) {
	svc := newGovernance(t)

	first := createProposal(t, svc, false)
	second := createProposal(t, svc, true)

	assert.Equal(t, id.ProposalID(1), first.ID)
	assert.Equal(t, id.ProposalID(2), second.ID)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, createdAt.Add(votingDelay), first.VotingStartsAt)
	assert.Equal(t, createdAt.Add(votingDelay+votingPeriod), first.VotingEndsAt)
}

func TestCreateProposal_ComplianceApprovalDefaults(t *testing.T) {
	svc := newGovernance(t)

	assert.True(t, createProposal(t, svc, false).ComplianceApproved)
	assert.False(t, createProposal(t, svc, true).ComplianceApproved)
}

func TestVote_BeforeWindowOpens(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)

	_, err := svc.Vote(testutil.ContextAs("bob", createdAt.Add(time.Minute)), proposal.ID, VoteFor, 10)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestVote_PromotesPendingToActive(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)

	voted, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 10)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, voted.Status)
	assert.Equal(t, uint64(10), voted.ForVotes)
}

func TestVote_TalliesByChoice(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)
	ctx := testutil.ContextAs("bob", votingOpen)

	_, err := svc.Vote(ctx, proposal.ID, VoteFor, 10)
	require.NoError(t, err)
	_, err = svc.Vote(ctx, proposal.ID, VoteAgainst, 3)
	require.NoError(t, err)
	voted, err := svc.Vote(ctx, proposal.ID, VoteAbstain, 2)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), voted.ForVotes)
	assert.Equal(t, uint64(3), voted.AgainstVotes)
	assert.Equal(t, uint64(2), voted.AbstainVotes)
}

func TestVote_AfterWindowCloses(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)

	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 10)
	require.NoError(t, err)

	_, err = svc.Vote(testutil.ContextAs("carol", votingClosed), proposal.ID, VoteFor, 10)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestVote_AtExactWindowEndStillCounts(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)

	_, err := svc.Vote(testutil.ContextAs("bob", createdAt.Add(votingDelay+votingPeriod)), proposal.ID, VoteFor, 5)
	require.NoError(t, err)
}

func TestReview_RequiresBoardSeat(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, true)

	_, err := svc.Review(testutil.ContextAs("stranger", votingOpen), proposal.ID, true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestReview_RejectsOutOfDomainProposals(t *testing.T) {
	svc := newGovernance(t)
	require.NoError(t, svc.AddBoardMember(testutil.ContextAs(daoAdmin, createdAt), scholar))
	proposal := createProposal(t, svc, false)

	_, err := svc.Review(testutil.ContextAs(scholar, votingOpen), proposal.ID, true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestReview_LastVerdictWins(t *testing.T) {
	svc := newGovernance(t)
	adminCtx := testutil.ContextAs(daoAdmin, createdAt)
	require.NoError(t, svc.AddBoardMember(adminCtx, scholar))
	require.NoError(t, svc.AddBoardMember(adminCtx, "scholar-two"))
	proposal := createProposal(t, svc, true)

	_, err := svc.Review(testutil.ContextAs(scholar, votingOpen), proposal.ID, true)
	require.NoError(t, err)
	_, err = svc.Review(testutil.ContextAs("scholar-two", votingOpen.Add(time.Hour)), proposal.ID, false)
	require.NoError(t, err)

	// The flag carries only the latest verdict; the trail keeps both.
	current, err := svc.Proposal(testutil.ContextAt(votingOpen), proposal.ID)
	require.NoError(t, err)
	assert.False(t, current.ComplianceApproved)

	reviews, err := svc.Reviews(testutil.ContextAt(votingOpen), proposal.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.True(t, reviews[0].Approved)
	assert.False(t, reviews[1].Approved)
}

func TestExecute_BeforeWindowCloses(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)
	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 10)
	require.NoError(t, err)

	_, err = svc.Execute(testutil.ContextAt(votingOpen.Add(time.Hour)), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestExecute_PassingProposal(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)
	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 10)
	require.NoError(t, err)
	_, err = svc.Vote(testutil.ContextAs("carol", votingOpen), proposal.ID, VoteAgainst, 3)
	require.NoError(t, err)

	executed, err := svc.Execute(testutil.ContextAt(votingClosed), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, executed.Status)
}

func TestExecute_BlockedWithoutBoardApproval(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, true)

	// A clear vote majority does not substitute for board sign-off.
	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 10)
	require.NoError(t, err)
	_, err = svc.Vote(testutil.ContextAs("carol", votingOpen), proposal.ID, VoteAgainst, 3)
	require.NoError(t, err)

	_, err = svc.Execute(testutil.ContextAt(votingClosed), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	current, err := svc.Proposal(testutil.ContextAt(votingClosed), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, current.Status)
}

func TestExecute_AfterBoardApproval(t *testing.T) {
	svc := newGovernance(t)
	require.NoError(t, svc.AddBoardMember(testutil.ContextAs(daoAdmin, createdAt), scholar))
	proposal := createProposal(t, svc, true)

	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 10)
	require.NoError(t, err)
	_, err = svc.Review(testutil.ContextAs(scholar, votingOpen), proposal.ID, true)
	require.NoError(t, err)

	executed, err := svc.Execute(testutil.ContextAt(votingClosed), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, executed.Status)
}

func TestExecute_AbstainOnlyFails(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)
	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteAbstain, 4)
	require.NoError(t, err)

	_, err = svc.Execute(testutil.ContextAt(votingClosed), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestExecute_TieFails(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)
	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 5)
	require.NoError(t, err)
	_, err = svc.Vote(testutil.ContextAs("carol", votingOpen), proposal.ID, VoteAgainst, 5)
	require.NoError(t, err)

	_, err = svc.Execute(testutil.ContextAt(votingClosed), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// A failed execute does not finalize; the proposal stays active until
	// someone cancels it.
	current, err := svc.Proposal(testutil.ContextAt(votingClosed), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, current.Status)
}

func TestExecute_OnlyFromActive(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)

	_, err := svc.Execute(testutil.ContextAt(votingClosed), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCancel_ByProposerAndAdmin(t *testing.T) {
	svc := newGovernance(t)

	first := createProposal(t, svc, false)
	canceled, err := svc.Cancel(testutil.ContextAs(proposer, votingOpen), first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	second := createProposal(t, svc, false)
	_, err = svc.Cancel(testutil.ContextAs(daoAdmin, votingOpen), second.ID)
	require.NoError(t, err)
}

func TestCancel_BoardVeto(t *testing.T) {
	svc := newGovernance(t)
	require.NoError(t, svc.AddBoardMember(testutil.ContextAs(daoAdmin, createdAt), scholar))
	proposal := createProposal(t, svc, true)

	canceled, err := svc.Cancel(testutil.ContextAs(scholar, votingOpen), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)
}

func TestCancel_StrangerForbidden(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)

	_, err := svc.Cancel(testutil.ContextAs("stranger", votingOpen), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestCancel_TerminalProposal(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, false)
	_, err := svc.Cancel(testutil.ContextAs(proposer, votingOpen), proposal.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(testutil.ContextAs(proposer, votingOpen), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestBoardMembership_AdminOnly(t *testing.T) {
	svc := newGovernance(t)

	err := svc.AddBoardMember(testutil.ContextAs("stranger", createdAt), scholar)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	adminCtx := testutil.ContextAs(daoAdmin, createdAt)
	require.NoError(t, svc.AddBoardMember(adminCtx, scholar))

	err = svc.AddBoardMember(adminCtx, scholar)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	require.NoError(t, svc.RemoveBoardMember(adminCtx, scholar))
	err = svc.RemoveBoardMember(adminCtx, scholar)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// A compliance-domain proposal with a vote landslide but no board review can
// never execute. An admin veto is the only way out.
func TestComplianceDomainProposal_FullLifecycle(t *testing.T) {
	svc := newGovernance(t)
	proposal := createProposal(t, svc, true)

	_, err := svc.Vote(testutil.ContextAs("bob", votingOpen), proposal.ID, VoteFor, 10)
	require.NoError(t, err)
	_, err = svc.Vote(testutil.ContextAs("carol", votingOpen), proposal.ID, VoteAgainst, 3)
	require.NoError(t, err)

	_, err = svc.Execute(testutil.ContextAt(votingClosed), proposal.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	current, err := svc.Proposal(testutil.ContextAt(votingClosed), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, current.Status)
	assert.Equal(t, uint64(10), current.ForVotes)

	canceled, err := svc.Cancel(testutil.ContextAs(daoAdmin, votingClosed), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)
}
