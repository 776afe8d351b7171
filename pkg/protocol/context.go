// Package protocol defines the envelope types shared by every network
// action: the context header block, the ACK/NACK response contract, and
// the wire-level error code table. It is transport-agnostic and free of
// I/O so handlers, services, and tests can all depend on it.
package protocol

import (
	"fmt"
	"time"
)

// Context is the mandatory envelope header accompanying every protocol
// message. All fields are required on inbound requests; a request whose
// context fails validation is rejected before any business logic runs.
type Context struct {
	Domain        string `json:"domain"`
	Country       string `json:"country"`
	City          string `json:"city"`
	Action        string `json:"action"`
	CoreVersion   string `json:"core_version"`
	BapID         string `json:"bap_id"`
	BapURI        string `json:"bap_uri"`
	BppID         string `json:"bpp_id"`
	BppURI        string `json:"bpp_uri"`
	TransactionID string `json:"transaction_id"`
	MessageID     string `json:"message_id"`
	Timestamp     string `json:"timestamp"`
	TTL           string `json:"ttl"`
}

// requiredFields fixes the validation order. Violations are reported in
// this order so the joined error message is stable across runs.
var requiredFields = []string{
	"domain",
	"country",
	"city",
	"action",
	"core_version",
	"bap_id",
	"bap_uri",
	"bpp_id",
	"bpp_uri",
	"transaction_id",
	"message_id",
	"timestamp",
	"ttl",
}

// Validate checks a raw context block and returns one message per
// missing or non-string field, in the fixed field order. It collects
// every violation instead of stopping at the first so the caller can
// report them all in a single NACK. A nil map reports every field.
func Validate(raw map[string]any) []string {
	var violations []string
	for _, field := range requiredFields {
		value, ok := raw[field]
		if !ok {
			violations = append(violations, fmt.Sprintf("context.%s is required", field))
			continue
		}
		s, isString := value.(string)
		if !isString {
			violations = append(violations, fmt.Sprintf("context.%s must be a string", field))
			continue
		}
		if s == "" {
			violations = append(violations, fmt.Sprintf("context.%s must not be empty", field))
		}
	}
	return violations
}

// Normalize builds a Context from a raw block without ever failing: any
// field that is absent or not a string becomes the empty string. The
// result is safe for audit logging of malformed requests but must never
// be treated as a valid context for business logic; callers gate on
// Validate first.
func Normalize(raw map[string]any) Context {
	str := func(field string) string {
		if s, ok := raw[field].(string); ok {
			return s
		}
		return ""
	}
	return Context{
		Domain:        str("domain"),
		Country:       str("country"),
		City:          str("city"),
		Action:        str("action"),
		CoreVersion:   str("core_version"),
		BapID:         str("bap_id"),
		BapURI:        str("bap_uri"),
		BppID:         str("bpp_id"),
		BppURI:        str("bpp_uri"),
		TransactionID: str("transaction_id"),
		MessageID:     str("message_id"),
		Timestamp:     str("timestamp"),
		TTL:           str("ttl"),
	}
}

// Time parses the context timestamp. The zero time and false are
// returned when the field does not hold a valid RFC 3339 value.
func (c Context) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, c.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
