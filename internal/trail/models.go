// Package trail is the append-only transaction audit trail. Every
// inbound delivery and outbound callback produces exactly one Record;
// records are never updated, and the current state of a transaction is
// whatever its newest record says.
package trail

import (
	"encoding/json"
	"time"

	"sellergate/pkg/protocol"
)

// Direction distinguishes deliveries we received from callbacks we
// sent.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// RecordError captures the wire error attached to a NACK outcome.
type RecordError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record is one row of the audit trail. Immutable once appended.
// Timestamp is the protocol event time taken from the context;
// CreatedAt is the local write time.
type Record struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	MessageID     string             `json:"message_id"`
	Action        string             `json:"action"`
	Direction     Direction          `json:"direction"`
	Status        protocol.AckStatus `json:"status"`
	Context       protocol.Context   `json:"context"`
	Message       json.RawMessage    `json:"message,omitempty"`
	Error         *RecordError       `json:"error,omitempty"`
	// Degraded marks records written under the consistency fallback
	// (no prior init found for a confirm/update) for audit review.
	Degraded  bool      `json:"degraded,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}
