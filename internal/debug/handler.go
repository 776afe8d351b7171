// Package debug exposes read-only inspection endpoints for operators:
// the recorded trail and the explicit transaction state. These routes
// are not part of the network-facing protocol surface.
package debug

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sellergate/internal/trail"
	"sellergate/internal/txstate"
	"sellergate/pkg/platform/httputil"
	"sellergate/pkg/platform/sentinel"
)

// defaultTrailLimit caps how many trail rows one request returns.
const defaultTrailLimit = 100

type Handler struct {
	trail  trail.Store
	states txstate.Store
	logger *slog.Logger
}

func New(trailStore trail.Store, states txstate.Store, logger *slog.Logger) *Handler {
	return &Handler{trail: trailStore, states: states, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/debug/trail/{transactionID}", h.getTrail)
	r.Get("/debug/state/{transactionID}", h.getState)
}

func (h *Handler) getTrail(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	recs, err := h.trail.ListByTransaction(r.Context(), transactionID, defaultTrailLimit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "trail lookup failed",
			"transaction_id", transactionID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "trail unavailable"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"transaction_id": transactionID,
		"records":        recs,
	})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	state, err := h.states.Get(r.Context(), transactionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "unknown transaction"})
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "transaction state lookup failed",
			"transaction_id", transactionID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "state unavailable"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, state)
}
