// Package callback delivers asynchronous "on_<action>" messages to the
// buyer app after the synchronous ACK has gone out. Delivery failures
// feed the audit trail only; the original caller was already answered
// and must never see them.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	cbmetrics "sellergate/internal/callback/metrics"
	"sellergate/internal/trail"
	"sellergate/pkg/protocol"
)

// DefaultTimeout bounds one callback delivery so a slow counterparty
// cannot hold a dispatch goroutine indefinitely. Timeouts are failures,
// not retried.
const DefaultTimeout = 10 * time.Second

// timestampLayout is the wire format for context timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Result is the outcome of one dispatch.
type Result struct {
	Success   bool
	MessageID string
	Err       error
}

// Dispatcher posts callback envelopes to the counterparty URI and
// queues the outcome onto the trail inbox.
type Dispatcher struct {
	client     *http.Client
	signer     Authenticator
	trailInbox chan<- trail.Record
	logger     *slog.Logger
	metrics    *cbmetrics.Metrics
	bppID      string
	bppURI     string
}

type Option func(*Dispatcher)

// WithTimeout overrides the delivery timeout.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		dp.client.Timeout = d
	}
}

// WithSigner attaches an Authenticator for the Authorization header.
func WithSigner(signer Authenticator) Option {
	return func(dp *Dispatcher) {
		dp.signer = signer
	}
}

// WithMetrics attaches dispatch metrics.
func WithMetrics(m *cbmetrics.Metrics) Option {
	return func(dp *Dispatcher) {
		dp.metrics = m
	}
}

func NewDispatcher(bppID, bppURI string, trailInbox chan<- trail.Record, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:     &http.Client{Timeout: DefaultTimeout},
		signer:     NoopSigner{},
		trailInbox: trailInbox,
		logger:     logger,
		bppID:      bppID,
		bppURI:     bppURI,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch builds the on_<action> envelope and delivers it to the
// inbound context's bap_uri. The callback context keeps the buyer's
// identity, stamps this gateway's identity into the bpp fields, and
// carries a fresh message_id and timestamp. Every outcome, success or
// failure, becomes an outgoing trail record.
func (d *Dispatcher) Dispatch(ctx context.Context, in protocol.Context, payload any) Result {
	now := time.Now().UTC()
	cbAction := protocol.CallbackAction(in.Action)

	cbContext := in
	cbContext.Action = cbAction
	cbContext.MessageID = uuid.NewString()
	cbContext.Timestamp = now.Format(timestampLayout)
	cbContext.BppID = d.bppID
	cbContext.BppURI = d.bppURI

	body, err := json.Marshal(map[string]any{
		"context": cbContext,
		"message": payload,
	})
	if err != nil {
		return d.fail(ctx, cbContext, nil, fmt.Errorf("marshal callback envelope: %w", err))
	}

	uri := strings.TrimRight(in.BapURI, "/") + "/" + cbAction
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return d.fail(ctx, cbContext, body, fmt.Errorf("build callback request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	authHeader, err := d.signer.Sign(body, now)
	if err != nil {
		return d.fail(ctx, cbContext, body, fmt.Errorf("sign callback: %w", err))
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return d.fail(ctx, cbContext, body, fmt.Errorf("deliver %s: %w", cbAction, err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return d.fail(ctx, cbContext, body, fmt.Errorf("deliver %s: unexpected status %d", cbAction, resp.StatusCode))
	}

	d.metrics.ObserveDispatch(cbAction, "ok")
	d.queueRecord(ctx, trail.Record{
		TransactionID: cbContext.TransactionID,
		MessageID:     cbContext.MessageID,
		Action:        cbAction,
		Direction:     trail.DirectionOutgoing,
		Status:        protocol.StatusAck,
		Context:       cbContext,
		Message:       body,
		Timestamp:     now,
	})
	return Result{Success: true, MessageID: cbContext.MessageID}
}

func (d *Dispatcher) fail(ctx context.Context, cbContext protocol.Context, body []byte, err error) Result {
	d.metrics.ObserveDispatch(cbContext.Action, "error")
	d.logger.ErrorContext(ctx, "callback dispatch failed",
		"action", cbContext.Action,
		"transaction_id", cbContext.TransactionID,
		"bap_uri", cbContext.BapURI,
		"error", err,
	)
	d.queueRecord(ctx, trail.Record{
		TransactionID: cbContext.TransactionID,
		MessageID:     cbContext.MessageID,
		Action:        cbContext.Action,
		Direction:     trail.DirectionOutgoing,
		Status:        protocol.StatusNack,
		Context:       cbContext,
		Message:       body,
		Error: &trail.RecordError{
			Type:    protocol.ErrTypeCore,
			Code:    protocol.CodeInternal,
			Message: err.Error(),
		},
	})
	return Result{Success: false, MessageID: cbContext.MessageID, Err: err}
}

// queueRecord hands the outcome to the trail worker without blocking
// the dispatch goroutine. A full inbox drops the record; trail writes
// are best-effort by contract.
func (d *Dispatcher) queueRecord(ctx context.Context, rec trail.Record) {
	select {
	case d.trailInbox <- rec:
	default:
		d.logger.WarnContext(ctx, "trail inbox full, callback record dropped",
			"transaction_id", rec.TransactionID,
			"action", rec.Action,
		)
	}
}
