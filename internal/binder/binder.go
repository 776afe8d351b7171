// Package binder enforces cross-step consistency: values the seller
// fixed at one protocol step must reappear unchanged at later steps of
// the same transaction. The counterparty snapshots these values and
// validates them downstream, so any drift breaks the transaction.
package binder

import (
	"context"
	"errors"
	"log/slog"

	"sellergate/internal/records"
	"sellergate/pkg/platform/sentinel"
	"sellergate/pkg/protocol"
)

// FallbackCreatedAt is the placeholder billing timestamp used when a
// confirm/update arrives with no prior init on record. Writing it keeps
// the transaction alive; the record is flagged degraded for audit
// review.
const FallbackCreatedAt = "2023-02-03T18:00:00.000Z"

// Binding is the result of resolving billing for a confirm/update.
type Binding struct {
	// Billing is the object to persist and forward: the init-time
	// billing when one exists, otherwise the incoming billing with the
	// fallback created_at stamped in.
	Billing records.Billing
	// Matched is true when the incoming created_at already equalled
	// the stored init value (diagnostic only, never gates the ACK).
	Matched bool
	// Degraded is true when no init record existed and the fallback
	// was applied.
	Degraded bool
}

// Binder reads init-time state back out of the primary record store.
type Binder struct {
	store  records.Store
	logger *slog.Logger
}

func New(store records.Store, logger *slog.Logger) *Binder {
	return &Binder{store: store, logger: logger}
}

// BindBilling resolves the billing object a confirm/update must carry.
// The stored init billing replaces the incoming one wholesale, not
// just created_at; any other mismatched sub-field would equally break
// downstream validation. Store read errors degrade the same way as a
// missing init record rather than failing the request.
func (b *Binder) BindBilling(ctx context.Context, transactionID string, incoming records.Billing) Binding {
	initRec, err := b.store.FindLatest(ctx, transactionID, protocol.ActionInit)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		b.logger.WarnContext(ctx, "init lookup failed, using fallback billing",
			"transaction_id", transactionID,
			"error", err,
		)
	}

	if err != nil || initRec.Billing.CreatedAt() == "" {
		billing := incoming.Clone()
		if billing == nil {
			billing = records.Billing{}
		}
		billing["created_at"] = FallbackCreatedAt
		return Binding{Billing: billing, Matched: false, Degraded: true}
	}

	matched := incoming.CreatedAt() == initRec.Billing.CreatedAt()
	return Binding{Billing: initRec.Billing.Clone(), Matched: matched}
}
