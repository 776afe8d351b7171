// Package retry makes write durability an explicit, per-record-class
// choice instead of an implicit per-call-site one. A Policy says how
// hard to try; callers pick the policy that matches what the record is
// for (protocol-critical rows get bounded retry, diagnostic rows get a
// single attempt).
package retry

import (
	"context"
	"time"
)

// Policy bounds how persistently an operation is attempted. Attempts
// counts the initial try; Backoff is a fixed delay between attempts.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// BestEffort tries exactly once. Used for audit-trail rows whose loss
// is diagnostic, not correctness-affecting.
var BestEffort = Policy{Attempts: 1}

// Durable is the policy for primary records that are read back by later
// protocol steps and must not be silently lost.
var Durable = Policy{Attempts: 3, Backoff: 500 * time.Millisecond}

// Do runs fn until it succeeds, the policy is exhausted, or the context
// is done. The last error is returned; context cancellation during
// backoff returns the context error.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	return err
}
