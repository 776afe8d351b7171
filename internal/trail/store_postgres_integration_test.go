//go:build integration

package trail_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sellergate/internal/trail"
	"sellergate/pkg/platform/sentinel"
	"sellergate/pkg/protocol"
	"sellergate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *trail.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), trail.Schema)
	s.store = trail.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "trail_records"))
}

func newTestRecord(txID, msgID string, eventTime time.Time) trail.Record {
	return trail.Record{
		ID:            uuid.NewString(),
		TransactionID: txID,
		MessageID:     msgID,
		Action:        protocol.ActionSearch,
		Direction:     trail.DirectionIncoming,
		Status:        protocol.StatusAck,
		Context: protocol.Context{
			TransactionID: txID,
			MessageID:     msgID,
			Action:        protocol.ActionSearch,
		},
		Message:   json.RawMessage(`{"intent":{}}`),
		Timestamp: eventTime,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *PostgresStoreSuite) TestAppendAndFindByMessage() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := newTestRecord("tx-1", "msg-1", base)
	older.CreatedAt = base
	newer := newTestRecord("tx-1", "msg-1", base.Add(time.Minute))
	newer.CreatedAt = base.Add(time.Second)

	s.Require().NoError(s.store.Append(ctx, older))
	s.Require().NoError(s.store.Append(ctx, newer))

	recs, err := s.store.FindByMessage(ctx, "tx-1", "msg-1")
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	// Newest first.
	s.Equal(newer.ID, recs[0].ID)
	s.Equal(older.ID, recs[1].ID)
	s.Equal("tx-1", recs[0].Context.TransactionID)
}

func (s *PostgresStoreSuite) TestFindLatestNotFound() {
	_, err := s.store.FindLatest(context.Background(), "tx-missing")
	s.Require().True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestErrorRoundTrip() {
	ctx := context.Background()
	rec := newTestRecord("tx-err", "msg-1", time.Now().UTC())
	rec.Status = protocol.StatusNack
	rec.Error = &trail.RecordError{
		Type:    protocol.ErrTypeContext,
		Code:    protocol.CodeInvalidContext,
		Message: "context.domain is required",
	}
	rec.Degraded = true

	s.Require().NoError(s.store.Append(ctx, rec))

	got, err := s.store.FindLatest(ctx, "tx-err")
	s.Require().NoError(err)
	s.Require().NotNil(got.Error)
	s.Equal(protocol.CodeInvalidContext, got.Error.Code)
	s.Equal(protocol.StatusNack, got.Status)
	s.True(got.Degraded)
}

func (s *PostgresStoreSuite) TestListByTransactionLimit() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 5; i++ {
		rec := newTestRecord("tx-list", uuid.NewString(), base)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.Append(ctx, rec))
	}

	recs, err := s.store.ListByTransaction(ctx, "tx-list", 3)
	s.Require().NoError(err)
	s.Len(recs, 3)

	all, err := s.store.ListByTransaction(ctx, "tx-list", 0)
	s.Require().NoError(err)
	s.Len(all, 5)
}
