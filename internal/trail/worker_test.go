package trail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPersistsQueuedRecords(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, discardLogger())
	inbox := make(chan Record, 4)
	worker := NewWorker(rec, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Record{TransactionID: "tx-1", MessageID: "msg-1"}
	inbox <- Record{TransactionID: "tx-1", MessageID: "msg-2"}

	require.Eventually(t, func() bool {
		return len(store.All()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
