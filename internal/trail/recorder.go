package trail

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	trailmetrics "sellergate/internal/trail/metrics"
)

// Recorder is the write façade over the trail store. Appends are
// best-effort: a failed write is logged and counted, never returned to
// the caller, because the ACK/NACK for the request has already been
// decided by the time the trail is written. Optional sinks receive a
// copy of every successfully appended record.
type Recorder struct {
	store   Store
	sinks   []namedSink
	logger  *slog.Logger
	metrics *trailmetrics.Metrics
}

type namedSink struct {
	name string
	sink Sink
}

type RecorderOption func(*Recorder)

// WithSink registers a fan-out sink under a name used for metrics.
func WithSink(name string, sink Sink) RecorderOption {
	return func(r *Recorder) {
		r.sinks = append(r.sinks, namedSink{name: name, sink: sink})
	}
}

// WithMetrics attaches trail metrics.
func WithMetrics(m *trailmetrics.Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func NewRecorder(store Store, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends rec to the trail. Missing ID and CreatedAt are filled
// in. Never returns an error; the caller's response must not depend on
// trail durability.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = rec.CreatedAt
	}

	err := r.store.Append(ctx, rec)
	r.metrics.ObserveAppend(string(rec.Direction), err)
	if err != nil {
		r.metrics.ObserveDrop()
		r.logger.ErrorContext(ctx, "trail append failed, record dropped",
			"transaction_id", rec.TransactionID,
			"message_id", rec.MessageID,
			"action", rec.Action,
			"direction", rec.Direction,
			"error", err,
		)
		return
	}

	for _, ns := range r.sinks {
		sinkErr := ns.sink.Publish(ctx, rec)
		r.metrics.ObserveSink(ns.name, sinkErr)
		if sinkErr != nil {
			r.logger.WarnContext(ctx, "trail sink publish failed",
				"sink", ns.name,
				"transaction_id", rec.TransactionID,
				"error", sinkErr,
			)
		}
	}
}

// Store exposes the underlying store for read-only consumers (stale
// guard, debug endpoints).
func (r *Recorder) Store() Store {
	return r.store
}
