// Package handler is the thin HTTP layer over the protocol service.
// It decodes envelopes, delegates, writes the response, and detaches
// any post-response work; protocol decisions live in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sellergate/internal/bpp/service"
	"sellergate/pkg/platform/httputil"
	"sellergate/pkg/protocol"
	"sellergate/pkg/requestcontext"
)

// Handler exposes one POST route per protocol action.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts all action endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	for _, action := range protocol.Actions {
		r.Post("/"+action, h.handleAction(action))
	}
}

// envelope mirrors the request body shape with raw members so an
// absent key is distinguishable from an empty object.
type envelope struct {
	Context json.RawMessage `json:"context"`
	Message json.RawMessage `json:"message"`
}

func (h *Handler) handleAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var env envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			h.logger.WarnContext(ctx, "malformed request body",
				"action", action,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			httputil.WriteJSON(w, http.StatusBadRequest,
				protocol.NewNack(protocol.CodeInvalidContext, "request body is not valid JSON"))
			return
		}

		req := service.Request{}
		if len(env.Context) > 0 {
			req.HasContext = true
			// Tolerate a non-object context; validation reports the
			// field-level violations on the empty map.
			_ = json.Unmarshal(env.Context, &req.RawContext)
		}
		if len(env.Message) > 0 {
			req.HasMessage = true
			_ = json.Unmarshal(env.Message, &req.Message)
		}

		start := time.Now()
		outcome := h.service.Handle(ctx, action, req)
		httputil.WriteJSON(w, outcome.Status, outcome.Body)

		h.logger.InfoContext(ctx, "request handled",
			"action", action,
			"request_id", requestcontext.RequestID(ctx),
			"status", outcome.Status,
			"ack", outcome.Body.Message.Ack.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		// Post-response work (callback dispatch) runs detached: the
		// response is already written, so its outcome can only ever
		// reach the audit trail.
		if outcome.AfterResponse != nil {
			go outcome.AfterResponse(context.WithoutCancel(ctx))
		}
	}
}
