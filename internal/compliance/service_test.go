package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditmemory "github.com/tawf-labs/amana-reserve/pkg/platform/audit/store/memory"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	"github.com/tawf-labs/amana-reserve/pkg/testutil"
)

func newTestService(t *testing.T) (*Service, *auditmemory.InMemoryStore) {
	t.Helper()
	auditStore := auditmemory.NewInMemoryStore()
	publisher := auditpublisher.NewPublisher(auditStore)
	return NewService(NewInMemoryStore(), WithAuditor(publisher)), auditStore
}

func TestService_Check_RecordsCompliantVerdict(t *testing.T) {
	svc, auditStore := newTestService(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := testutil.ContextAs("validator-1", created.Add(48*time.Hour))
	activityID := id.DeriveActivityID("initiator-1", 1, created.UnixNano())

	state, err := svc.Check(ctx, activityID, Snapshot{
		Outcome:         120,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	})
	require.NoError(t, err)
	assert.True(t, state.IsCompliant)
	assert.False(t, state.RequiresReview)
	assert.Equal(t, created.Add(48*time.Hour), state.VerifiedAt)
	assert.True(t, state.FlaggedAt.IsZero())

	events, err := auditStore.ListByActor(context.Background(), "validator-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventComplianceVerified, events[0].Action)
	assert.Equal(t, activityID.String(), events[0].ActivityID)
}

func TestService_Check_FlagsExcessiveLoss(t *testing.T) {
	svc, auditStore := newTestService(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := testutil.ContextAs("validator-1", created.Add(48*time.Hour))
	activityID := id.DeriveActivityID("initiator-1", 2, created.UnixNano())

	state, err := svc.Check(ctx, activityID, Snapshot{
		Outcome:         -700,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	})
	require.NoError(t, err)
	assert.False(t, state.IsCompliant)
	assert.True(t, state.RequiresReview)
	assert.Equal(t, ReasonExcessiveLoss, state.Reason)
	assert.True(t, state.VerifiedAt.IsZero())

	events, err := auditStore.ListByActor(context.Background(), "validator-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventComplianceFlagged, events[0].Action)
	assert.Equal(t, ReasonExcessiveLoss, events[0].Reason)
}

func TestService_Check_IsIdempotent(t *testing.T) {
	svc, auditStore := newTestService(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	activityID := id.DeriveActivityID("initiator-1", 3, created.UnixNano())
	snap := Snapshot{
		Outcome:         120,
		CapitalRequired: 600,
		CapitalDeployed: 600,
		CreatedAt:       created,
	}

	first, err := svc.Check(testutil.ContextAs("validator-1", created.Add(48*time.Hour)), activityID, snap)
	require.NoError(t, err)

	// A later re-check, even with a different clock, returns the original
	// verdict and emits no second event.
	second, err := svc.Check(testutil.ContextAs("validator-2", created.Add(200*time.Hour)), activityID, snap)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	events, err := auditStore.ListByActor(context.Background(), "validator-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
	noEvents, err := auditStore.ListByActor(context.Background(), "validator-2")
	require.NoError(t, err)
	assert.Empty(t, noEvents)
}

func TestService_Status_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	activityID := id.DeriveActivityID("initiator-1", 9, 42)

	_, err := svc.Status(context.Background(), activityID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
