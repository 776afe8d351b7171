package debug

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellergate/internal/trail"
	"sellergate/internal/txstate"
)

func newTestHandler(t *testing.T) (*trail.MemoryStore, *txstate.MemoryStore, chi.Router) {
	t.Helper()
	trailStore := trail.NewMemoryStore()
	states := txstate.NewMemoryStore()
	r := chi.NewRouter()
	New(trailStore, states, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return trailStore, states, r
}

func TestGetTrailReturnsRecords(t *testing.T) {
	trailStore, _, r := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, trailStore.Append(ctx, trail.Record{
		ID:            "rec-1",
		TransactionID: "tx-1",
		MessageID:     "msg-1",
		Action:        "search",
		Direction:     trail.DirectionIncoming,
		Status:        "ACK",
		Timestamp:     time.Now().UTC(),
	}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/trail/tx-1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		TransactionID string         `json:"transaction_id"`
		Records       []trail.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "tx-1", body.TransactionID)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "rec-1", body.Records[0].ID)
}

func TestGetTrailEmptyTransaction(t *testing.T) {
	_, _, r := newTestHandler(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/trail/tx-none", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetStateKnownTransaction(t *testing.T) {
	_, states, r := newTestHandler(t)
	ctx := context.Background()

	_, err := txstate.Advance(ctx, states, "tx-1", "init", "msg-1", "rec-1", time.Now().UTC())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/state/tx-1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var state txstate.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, "init", state.CurrentAction)
	assert.Equal(t, int64(1), state.Version)
}

func TestGetStateUnknownTransaction(t *testing.T) {
	_, _, r := newTestHandler(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/state/tx-none", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
