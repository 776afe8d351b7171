// Package records holds the primary per-action business records. One
// row is written per accepted request. A single shared schema with
// per-action extension fields replaces the per-route schema copies the
// protocol's reference stacks tend to accumulate.
package records

import (
	"context"
	"encoding/json"
	"time"

	"sellergate/pkg/protocol"
)

// Billing is the order billing block carried by init/confirm/update.
// Stored wholesale so later steps can reproduce it byte-for-byte.
type Billing map[string]any

// CreatedAt returns billing.created_at when present and a string.
func (b Billing) CreatedAt() string {
	if s, ok := b["created_at"].(string); ok {
		return s
	}
	return ""
}

// Clone returns a shallow copy safe to mutate at the top level.
func (b Billing) Clone() Billing {
	if b == nil {
		return nil
	}
	out := make(Billing, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Record is one primary business record. TransactionID/MessageID/
// Action identify the request; Message is the raw accepted payload.
// The remaining fields are per-action extensions and stay zero for
// actions that don't use them.
type Record struct {
	ID            string
	TransactionID string
	MessageID     string
	Action        string
	Context       protocol.Context
	Message       json.RawMessage

	// Query: search intent descriptor name.
	Query string

	// Billing: init stores the billing it established; confirm/update
	// store the billing after the consistency override.
	Billing Billing

	// BillingMatched: confirm only. Diagnostic; true when the incoming
	// pre-override created_at equalled the stored init value.
	BillingMatched *bool

	// Degraded: confirm/update wrote a fallback billing because no
	// prior init record existed.
	Degraded bool

	// OrderID: cancel/track/status reference an existing order.
	OrderID string

	CreatedAt time.Time
}

// Store persists primary records. FindLatest returns the newest record
// of the given action for a transaction, or sentinel.ErrNotFound.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	FindLatest(ctx context.Context, transactionID, action string) (*Record, error)
	ListByTransaction(ctx context.Context, transactionID string, limit int) ([]*Record, error)
}
