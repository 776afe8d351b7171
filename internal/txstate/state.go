// Package txstate maintains an explicit per-transaction state object
// alongside the audit trail, so "what step is this transaction on" is a
// keyed read instead of a history scan. Updates use optimistic
// versioning: concurrent deliveries race on Version and the loser
// re-reads, keeping the store lock-free across processes.
package txstate

import (
	"context"
	"errors"
	"time"

	"sellergate/pkg/platform/sentinel"
)

// State is the current protocol position of one transaction.
type State struct {
	TransactionID string    `json:"transaction_id"`
	CurrentAction string    `json:"current_action"`
	LastMessageID string    `json:"last_message_id"`
	LastRecordID  string    `json:"last_record_id"`
	LastTimestamp time.Time `json:"last_timestamp"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store is a keyed state store with compare-and-swap semantics. Put
// succeeds only when the stored version equals state.Version-1 (or the
// key is absent and state.Version is 1); otherwise it returns
// sentinel.ErrConflict.
type Store interface {
	Get(ctx context.Context, transactionID string) (*State, error)
	Put(ctx context.Context, state *State) error
}

// maxAdvanceAttempts bounds the CAS retry loop so a pathological
// conflict storm cannot spin forever.
const maxAdvanceAttempts = 5

// Advance moves a transaction to the given action via read-modify-write
// with optimistic retry.
func Advance(ctx context.Context, store Store, transactionID, action, messageID, recordID string, timestamp time.Time) (*State, error) {
	var lastErr error
	for i := 0; i < maxAdvanceAttempts; i++ {
		current, err := store.Get(ctx, transactionID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}

		next := &State{
			TransactionID: transactionID,
			CurrentAction: action,
			LastMessageID: messageID,
			LastRecordID:  recordID,
			LastTimestamp: timestamp,
			Version:       1,
			UpdatedAt:     time.Now().UTC(),
		}
		if current != nil {
			next.Version = current.Version + 1
		}

		if err := store.Put(ctx, next); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return next, nil
	}
	return nil, lastErr
}
