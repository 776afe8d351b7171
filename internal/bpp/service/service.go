// Package service orchestrates the per-request protocol pipeline:
// structure check, context validation, stale guard, the action-specific
// business step, primary persistence, trail append, and the ack. The
// HTTP layer stays thin; everything protocol-shaped happens here.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sellergate/internal/binder"
	bppmetrics "sellergate/internal/bpp/metrics"
	"sellergate/internal/callback"
	"sellergate/internal/catalog"
	"sellergate/internal/guard"
	"sellergate/internal/records"
	"sellergate/internal/trail"
	"sellergate/internal/txstate"
	"sellergate/pkg/platform/retry"
	"sellergate/pkg/protocol"
	"sellergate/pkg/requestcontext"
)

// timestampLayout is the wire format for context and billing
// timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Dispatcher delivers the asynchronous on_<action> callback. Satisfied
// by callback.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, in protocol.Context, payload any) callback.Result
}

// Request is the decoded inbound envelope. The Has* flags distinguish
// an absent key from an empty object so the structure check can tell
// them apart.
type Request struct {
	RawContext map[string]any
	HasContext bool
	Message    map[string]any
	HasMessage bool
}

// Outcome is what the HTTP layer writes back. AfterResponse, when set,
// must run detached once the response has been sent; its failures feed
// the audit trail only.
type Outcome struct {
	Status        int
	Body          protocol.Response
	AfterResponse func(ctx context.Context)
}

// Service wires the protocol components for all eight actions.
type Service struct {
	guard      *guard.Guard
	binder     *binder.Binder
	catalog    catalog.Provider
	records    records.Store
	recorder   *trail.Recorder
	states     txstate.Store
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *bppmetrics.Metrics

	// persistPolicy governs primary record saves. Primary records are
	// read back by later steps, so they get bounded retry; trail rows
	// stay best-effort.
	persistPolicy retry.Policy
}

type Option func(*Service)

// WithPersistPolicy overrides the primary record durability policy.
func WithPersistPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.persistPolicy = p
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *bppmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(
	g *guard.Guard,
	b *binder.Binder,
	provider catalog.Provider,
	recordStore records.Store,
	recorder *trail.Recorder,
	states txstate.Store,
	dispatcher Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		guard:         g,
		binder:        b,
		catalog:       provider,
		records:       recordStore,
		recorder:      recorder,
		states:        states,
		dispatcher:    dispatcher,
		logger:        logger,
		persistPolicy: retry.Durable,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle runs the pipeline for one inbound delivery of the given
// action. It always produces a response; internal failures after the
// ack decision never change the outcome the caller sees.
func (s *Service) Handle(ctx context.Context, action string, req Request) Outcome {
	start := time.Now()
	defer func() {
		s.metrics.ObserveHandleLatency(action, time.Since(start))
	}()

	// Structure check: both envelope keys must be present before
	// anything else is worth looking at.
	if !req.HasContext || !req.HasMessage {
		return s.nack(ctx, action, req, http.StatusBadRequest,
			protocol.CodeInvalidContext, "payload must contain context and message")
	}

	// Context validation: all violations reported together.
	if violations := protocol.Validate(req.RawContext); len(violations) > 0 {
		return s.nack(ctx, action, req, http.StatusBadRequest,
			protocol.CodeInvalidContext, strings.Join(violations, "; "))
	}

	pctx := protocol.Normalize(req.RawContext)
	eventTime, ok := pctx.Time()
	if !ok {
		return s.nack(ctx, action, req, http.StatusBadRequest,
			protocol.CodeStaleRequest, "context.timestamp is not a valid RFC 3339 timestamp")
	}

	// Stale guard, uniformly for every action: a delivery superseded
	// by a newer event for the same message identity is rejected.
	if s.guard.IsStale(ctx, action, pctx.TransactionID, pctx.MessageID, eventTime) {
		return s.nack(ctx, action, req, http.StatusBadRequest,
			protocol.CodeStaleRequest, "a newer event for this message has already been recorded")
	}

	step, stepErr := s.businessStep(ctx, action, pctx, req.Message)
	if stepErr != nil {
		return s.nack(ctx, action, req, stepErr.status, stepErr.code, stepErr.message)
	}

	// The ack decision is made; everything below is durability and
	// bookkeeping that must not change it.
	if step.record != nil {
		s.persistPrimary(ctx, action, step.record)
	}

	trailRec := trail.Record{
		TransactionID: pctx.TransactionID,
		MessageID:     pctx.MessageID,
		Action:        action,
		Direction:     trail.DirectionIncoming,
		Status:        protocol.StatusAck,
		Context:       pctx,
		Message:       marshalMessage(req.Message),
		Degraded:      step.degraded,
		Timestamp:     eventTime,
	}
	s.recorder.Record(ctx, trailRec)
	s.advanceState(ctx, pctx, eventTime)

	outcome := Outcome{
		Status: httpStatusFor(action),
		Body:   protocol.NewAck(pctx),
	}
	if step.callbackPayload != nil {
		payload := step.callbackPayload
		outcome.AfterResponse = func(detached context.Context) {
			s.dispatcher.Dispatch(detached, pctx, payload)
		}
	}
	s.metrics.ObserveResponse(action, string(protocol.StatusAck))
	return outcome
}

// httpStatusFor maps actions to their success status: 202 for actions
// that imply later asynchronous processing, 200 for query-style
// confirmations.
func httpStatusFor(action string) int {
	switch action {
	case protocol.ActionTrack, protocol.ActionStatus:
		return http.StatusOK
	default:
		return http.StatusAccepted
	}
}

// nack records the rejection in the trail (with the normalized context,
// which is never treated as valid business input) and builds the
// response.
func (s *Service) nack(ctx context.Context, action string, req Request, status int, code, message string) Outcome {
	pctx := protocol.Normalize(req.RawContext)
	resp := protocol.NewNack(code, message)

	// The trail timestamp is the event time the sender claimed, not the
	// write time. A rejection stamped with write time would outrank
	// genuinely newer deliveries in the stale comparison.
	var eventTime time.Time
	if ts, ok := pctx.Time(); ok {
		eventTime = ts
	}

	s.recorder.Record(ctx, trail.Record{
		TransactionID: pctx.TransactionID,
		MessageID:     pctx.MessageID,
		Action:        action,
		Direction:     trail.DirectionIncoming,
		Status:        protocol.StatusNack,
		Context:       pctx,
		Message:       marshalMessage(req.Message),
		Timestamp:     eventTime,
		Error: &trail.RecordError{
			Type:    resp.Error.Type,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
		},
	})

	s.metrics.ObserveResponse(action, string(protocol.StatusNack))
	s.metrics.ObserveNack(action, code)
	return Outcome{Status: status, Body: resp}
}

// persistPrimary saves a primary record under the durable policy.
// Exhausted retries are logged and surfaced in metrics only; the ack
// already stands.
func (s *Service) persistPrimary(ctx context.Context, action string, rec *records.Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = requestcontext.Now(ctx)
	}

	attempt := 0
	err := s.persistPolicy.Do(ctx, func() error {
		attempt++
		if attempt > 1 {
			s.metrics.ObservePersistRetry(action)
		}
		return s.records.Save(ctx, rec)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "primary record save failed after retries",
			"action", action,
			"transaction_id", rec.TransactionID,
			"message_id", rec.MessageID,
			"attempts", attempt,
			"error", err,
		)
	}
}

// advanceState moves the explicit transaction state forward. Best
// effort: a conflict storm or store outage costs the state view, not
// the request.
func (s *Service) advanceState(ctx context.Context, pctx protocol.Context, eventTime time.Time) {
	if s.states == nil {
		return
	}
	_, err := txstate.Advance(ctx, s.states, pctx.TransactionID, pctx.Action, pctx.MessageID, "", eventTime)
	if err != nil {
		s.logger.WarnContext(ctx, "transaction state advance failed",
			"transaction_id", pctx.TransactionID,
			"action", pctx.Action,
			"error", err,
		)
	}
}

func marshalMessage(message map[string]any) json.RawMessage {
	if message == nil {
		return nil
	}
	raw, err := json.Marshal(message)
	if err != nil {
		return nil
	}
	return raw
}

// stepError is a business-step rejection with its HTTP mapping.
type stepError struct {
	status  int
	code    string
	message string
}

func internalStepError() *stepError {
	return &stepError{
		status:  http.StatusInternalServerError,
		code:    protocol.CodeInternal,
		message: "internal error",
	}
}

func fmtRequired(field string) string {
	return fmt.Sprintf("message.%s is required", field)
}
