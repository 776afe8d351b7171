package binder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellergate/internal/records"
	"sellergate/pkg/protocol"
)

type brokenStore struct {
	records.MemoryStore
}

func (s *brokenStore) FindLatest(context.Context, string, string) (*records.Record, error) {
	return nil, errors.New("store unreachable")
}

func newBinder(store records.Store) *Binder {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func storeInit(t *testing.T, store *records.MemoryStore, txID string, billing records.Billing) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), &records.Record{
		ID:            "init-1",
		TransactionID: txID,
		Action:        protocol.ActionInit,
		Billing:       billing,
		CreatedAt:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}))
}

func TestBindBillingEchoesInitObject(t *testing.T) {
	store := records.NewMemoryStore()
	initBilling := records.Billing{
		"name":       "John Doe",
		"phone":      "9999999999",
		"created_at": "2025-01-01T00:00:00Z",
	}
	storeInit(t, store, "tx-1", initBilling)

	// The buyer submits a completely different billing; the whole
	// stored object wins, not just created_at.
	incoming := records.Billing{
		"name":       "Someone Else",
		"created_at": "2099-01-01T00:00:00Z",
	}
	binding := newBinder(store).BindBilling(context.Background(), "tx-1", incoming)

	assert.Equal(t, initBilling, binding.Billing)
	assert.False(t, binding.Matched)
	assert.False(t, binding.Degraded)
}

func TestBindBillingMatchedFlag(t *testing.T) {
	store := records.NewMemoryStore()
	storeInit(t, store, "tx-1", records.Billing{"created_at": "2025-01-01T00:00:00Z"})

	binding := newBinder(store).BindBilling(context.Background(), "tx-1",
		records.Billing{"created_at": "2025-01-01T00:00:00Z"})
	assert.True(t, binding.Matched)
}

func TestBindBillingUsesLatestInit(t *testing.T) {
	store := records.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, &records.Record{
		TransactionID: "tx-1", Action: protocol.ActionInit,
		Billing:   records.Billing{"created_at": "2025-01-01T00:00:00Z"},
		CreatedAt: base,
	}))
	require.NoError(t, store.Save(ctx, &records.Record{
		TransactionID: "tx-1", Action: protocol.ActionInit,
		Billing:   records.Billing{"created_at": "2025-02-02T00:00:00Z"},
		CreatedAt: base.Add(time.Minute),
	}))

	binding := newBinder(store).BindBilling(ctx, "tx-1", nil)
	assert.Equal(t, "2025-02-02T00:00:00Z", binding.Billing.CreatedAt())
}

func TestBindBillingFallbackWithoutInit(t *testing.T) {
	store := records.NewMemoryStore()
	incoming := records.Billing{"name": "John Doe", "created_at": "2099-01-01T00:00:00Z"}

	binding := newBinder(store).BindBilling(context.Background(), "tx-9", incoming)

	assert.True(t, binding.Degraded)
	assert.False(t, binding.Matched)
	assert.Equal(t, FallbackCreatedAt, binding.Billing.CreatedAt())
	// Other incoming fields survive under the fallback.
	assert.Equal(t, "John Doe", binding.Billing["name"])
	// Caller's object untouched.
	assert.Equal(t, "2099-01-01T00:00:00Z", incoming.CreatedAt())
}

func TestBindBillingFallbackWithNilIncoming(t *testing.T) {
	binding := newBinder(records.NewMemoryStore()).BindBilling(context.Background(), "tx-9", nil)
	assert.True(t, binding.Degraded)
	assert.Equal(t, FallbackCreatedAt, binding.Billing.CreatedAt())
}

func TestBindBillingDegradesOnStoreError(t *testing.T) {
	binding := newBinder(&brokenStore{}).BindBilling(context.Background(), "tx-1",
		records.Billing{"created_at": "2025-01-01T00:00:00Z"})
	assert.True(t, binding.Degraded)
	assert.Equal(t, FallbackCreatedAt, binding.Billing.CreatedAt())
}
