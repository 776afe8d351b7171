package trail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellergate/pkg/platform/sentinel"
	"sellergate/pkg/protocol"
)

func testRecord(txID, msgID string, createdAt time.Time) Record {
	return Record{
		ID:            msgID + "-rec",
		TransactionID: txID,
		MessageID:     msgID,
		Action:        protocol.ActionSearch,
		Direction:     DirectionIncoming,
		Status:        protocol.StatusAck,
		Timestamp:     createdAt,
		CreatedAt:     createdAt,
	}
}

func TestMemoryStoreFindLatest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, testRecord("tx-1", "msg-1", base)))
	require.NoError(t, store.Append(ctx, testRecord("tx-1", "msg-2", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testRecord("tx-2", "msg-3", base.Add(time.Hour))))

	latest, err := store.FindLatest(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "msg-2", latest.MessageID)

	_, err = store.FindLatest(ctx, "tx-missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreFindByMessage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, testRecord("tx-1", "msg-1", base)))
	require.NoError(t, store.Append(ctx, testRecord("tx-1", "msg-1", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testRecord("tx-1", "msg-2", base)))

	recs, err := store.FindByMessage(ctx, "tx-1", "msg-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Newest first.
	assert.True(t, recs[0].CreatedAt.After(recs[1].CreatedAt))
}

func TestMemoryStoreListByTransactionLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, testRecord("tx-1", "msg", base.Add(time.Duration(i)*time.Second))))
	}

	recs, err := store.ListByTransaction(ctx, "tx-1", 3)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	all, err := store.ListByTransaction(ctx, "tx-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
