package trail

import "context"

// Store persists audit records. Implementations must treat records as
// append-only; there is no update or delete path.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// FindByMessage returns every record sharing a logical message
	// identity, newest first.
	FindByMessage(ctx context.Context, transactionID, messageID string) ([]Record, error)
	// FindLatest returns the newest record for a transaction, or
	// sentinel.ErrNotFound when the transaction has no history.
	FindLatest(ctx context.Context, transactionID string) (*Record, error)
	// ListByTransaction returns up to limit records for a transaction,
	// newest first. limit <= 0 means no limit.
	ListByTransaction(ctx context.Context, transactionID string, limit int) ([]Record, error)
}

// Sink receives append-only copies of trail records for fan-out to
// external systems (e.g. a Kafka topic). Sinks are best-effort; a sink
// failure never affects the store write or the request outcome.
type Sink interface {
	Publish(ctx context.Context, rec Record) error
}
