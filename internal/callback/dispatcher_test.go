package callback

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellergate/internal/trail"
	"sellergate/pkg/protocol"
)

func inboundContext(bapURI string) protocol.Context {
	return protocol.Context{
		Domain:        "nic2004:52110",
		Country:       "IND",
		City:          "std:080",
		Action:        protocol.ActionInit,
		CoreVersion:   "1.1.0",
		BapID:         "buyer-app.example.com",
		BapURI:        bapURI,
		BppID:         "someone-else",
		BppURI:        "https://someone-else.example.com",
		TransactionID: "tx-1",
		MessageID:     "msg-1",
		Timestamp:     "2025-06-01T10:00:00.000Z",
		TTL:           "PT30S",
	}
}

func testDispatcher(inbox chan trail.Record, opts ...Option) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher("seller-app.example.com", "https://seller-app.example.com", inbox, logger, opts...)
}

func TestDispatchDeliversCallback(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	inbox := make(chan trail.Record, 1)
	d := testDispatcher(inbox)

	result := d.Dispatch(context.Background(), inboundContext(server.URL), map[string]any{"order": "payload"})
	require.True(t, result.Success)
	require.NotEmpty(t, result.MessageID)

	assert.Equal(t, "/on_init", gotPath)

	cbCtx, ok := gotBody["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "on_init", cbCtx["action"])
	// Fresh message identity, original transaction.
	assert.Equal(t, result.MessageID, cbCtx["message_id"])
	assert.NotEqual(t, "msg-1", cbCtx["message_id"])
	assert.Equal(t, "tx-1", cbCtx["transaction_id"])
	// Gateway identity stamped into the bpp fields; buyer untouched.
	assert.Equal(t, "seller-app.example.com", cbCtx["bpp_id"])
	assert.Equal(t, "buyer-app.example.com", cbCtx["bap_id"])
	assert.NotEqual(t, "2025-06-01T10:00:00.000Z", cbCtx["timestamp"])

	rec := <-inbox
	assert.Equal(t, trail.DirectionOutgoing, rec.Direction)
	assert.Equal(t, protocol.StatusAck, rec.Status)
	assert.Equal(t, "on_init", rec.Action)
}

func TestDispatchRecordsFailureAsOutgoingNack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	inbox := make(chan trail.Record, 1)
	d := testDispatcher(inbox)

	result := d.Dispatch(context.Background(), inboundContext(server.URL), nil)
	assert.False(t, result.Success)
	require.Error(t, result.Err)

	rec := <-inbox
	assert.Equal(t, trail.DirectionOutgoing, rec.Direction)
	assert.Equal(t, protocol.StatusNack, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, protocol.ErrTypeCore, rec.Error.Type)
	assert.Equal(t, protocol.CodeInternal, rec.Error.Code)
}

func TestDispatchTimeoutIsFailureNotRetry(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	inbox := make(chan trail.Record, 1)
	d := testDispatcher(inbox, WithTimeout(20*time.Millisecond))

	result := d.Dispatch(context.Background(), inboundContext(server.URL), nil)
	assert.False(t, result.Success)
	assert.Equal(t, 1, hits)

	rec := <-inbox
	assert.Equal(t, protocol.StatusNack, rec.Status)
}

func TestDispatchUnreachableHost(t *testing.T) {
	inbox := make(chan trail.Record, 1)
	d := testDispatcher(inbox, WithTimeout(100*time.Millisecond))

	ctx := inboundContext("http://127.0.0.1:1")
	result := d.Dispatch(context.Background(), ctx, nil)
	assert.False(t, result.Success)
	assert.Equal(t, protocol.StatusNack, (<-inbox).Status)
}

func TestDispatchDoesNotBlockOnFullInbox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	inbox := make(chan trail.Record) // unbuffered, nobody reading
	d := testDispatcher(inbox)

	done := make(chan Result, 1)
	go func() { done <- d.Dispatch(context.Background(), inboundContext(server.URL), nil) }()

	select {
	case result := <-done:
		assert.True(t, result.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on trail inbox")
	}
}

func TestDispatchSignsWhenConfigured(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	signer, err := NewEd25519Signer("seller-app.example.com", "key1",
		"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	require.NoError(t, err)

	inbox := make(chan trail.Record, 1)
	d := testDispatcher(inbox, WithSigner(signer))

	result := d.Dispatch(context.Background(), inboundContext(server.URL), nil)
	require.True(t, result.Success)
	assert.Contains(t, gotAuth, `keyId="seller-app.example.com|key1|ed25519"`)
	assert.Contains(t, gotAuth, `algorithm="ed25519"`)
}
