// Package guard rejects deliveries superseded by a newer event for the
// same logical message. Staleness is decided against durable trail
// state, not in-memory locks, so concurrent deliveries for one
// transaction behave the same on every replica.
package guard

import (
	"context"
	"log/slog"
	"time"

	"sellergate/internal/trail"
)

// Metrics is the subset of observability the guard needs.
type Metrics interface {
	ObserveStale(action string)
	ObserveFailOpen(action string)
}

// Guard checks incoming message identities against the audit trail.
type Guard struct {
	store   trail.Store
	logger  *slog.Logger
	metrics Metrics
}

func New(store trail.Store, logger *slog.Logger, metrics Metrics) *Guard {
	return &Guard{store: store, logger: logger, metrics: metrics}
}

// IsStale reports whether a delivery for (transactionID, messageID) at
// the given timestamp must be rejected: stale iff some stored record
// for the same identity carries a strictly newer timestamp. Store
// errors fail open; trail durability must not become an availability
// dependency for request handling.
func (g *Guard) IsStale(ctx context.Context, action, transactionID, messageID string, timestamp time.Time) bool {
	records, err := g.store.FindByMessage(ctx, transactionID, messageID)
	if err != nil {
		if g.metrics != nil {
			g.metrics.ObserveFailOpen(action)
		}
		g.logger.WarnContext(ctx, "stale check failed open",
			"action", action,
			"transaction_id", transactionID,
			"message_id", messageID,
			"error", err,
		)
		return false
	}

	for _, rec := range records {
		if rec.Timestamp.After(timestamp) {
			if g.metrics != nil {
				g.metrics.ObserveStale(action)
			}
			return true
		}
	}
	return false
}
