//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tawf-labs/amana-reserve/pkg/platform/audit"
	auditpg "github.com/tawf-labs/amana-reserve/pkg/platform/audit/store/postgres"
	"github.com/tawf-labs/amana-reserve/pkg/testutil/containers"
)

type StoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = auditpg.New(s.postgres.DB)
}

func (s *StoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "audit_events")
	s.Require().NoError(err)
}

func (s *StoreSuite) TestAppend_PersistsEvent() {
	ctx := context.Background()
	occurredAt := time.Now().UTC().Truncate(time.Microsecond)

	event := audit.Event{
		Timestamp: occurredAt,
		Actor:     "alice",
		Action:    audit.EventCapitalDeposited,
		Amount:    5_000,
		RequestID: "req-1",
	}
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByActor(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventCapitalDeposited, events[0].Action)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Equal(uint64(5_000), events[0].Amount)
	s.Equal("req-1", events[0].RequestID)
	s.True(events[0].Timestamp.Equal(occurredAt))
}

func (s *StoreSuite) TestAppendBatch_PersistsAllEventsInOrder() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	batch := []audit.Event{
		{Timestamp: base, Actor: "alice", Action: audit.EventParticipantJoined, Amount: 1_000},
		{Timestamp: base.Add(time.Second), Actor: "alice", Action: audit.EventCapitalDeposited, Amount: 2_000},
		{Timestamp: base.Add(2 * time.Second), Actor: "alice", Action: audit.EventCapitalWithdrawn, Amount: 500},
	}
	s.Require().NoError(s.store.AppendBatch(ctx, batch))

	events, err := s.store.ListByActor(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(audit.EventParticipantJoined, events[0].Action)
	s.Equal(audit.EventCapitalDeposited, events[1].Action)
	s.Equal(audit.EventCapitalWithdrawn, events[2].Action)
}

func (s *StoreSuite) TestAppendBatch_EmptyIsNoOp() {
	ctx := context.Background()

	s.Require().NoError(s.store.AppendBatch(ctx, nil))

	events, err := s.store.ListByActor(ctx, "alice")
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *StoreSuite) TestListByActor_FiltersOtherActors() {
	ctx := context.Background()
	occurredAt := time.Now().UTC()

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: occurredAt, Actor: "alice", Action: audit.EventParticipantJoined,
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: occurredAt, Actor: "bob", Action: audit.EventParticipantJoined,
	}))

	events, err := s.store.ListByActor(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("alice", events[0].Actor.String())
}
