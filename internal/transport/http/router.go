// Package httptransport assembles the gateway's HTTP surface: the
// protocol action routes, operator debug routes, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bpphandler "sellergate/internal/bpp/handler"
	"sellergate/internal/debug"
	platformmetrics "sellergate/internal/platform/metrics"
	"sellergate/pkg/platform/httputil"
	"sellergate/pkg/platform/middleware/requestmeta"
	"sellergate/pkg/protocol"
)

// HealthCheck reports the health of one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter wires middleware and all route groups.
func NewRouter(
	bpp *bpphandler.Handler,
	dbg *debug.Handler,
	logger *slog.Logger,
	httpMetrics *platformmetrics.Metrics,
	checks []HealthCheck,
) http.Handler {
	r := chi.NewRouter()
	r.Use(requestmeta.Middleware)
	r.Use(httpMetrics.Middleware)
	r.Use(recoverer(logger))

	r.Get("/healthz", healthHandler(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	bpp.Register(r)
	if dbg != nil {
		dbg.Register(r)
	}

	return r
}

// recoverer converts panics into the protocol's internal-error NACK so
// a crashing handler still answers in the shape counterparties expect.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "handler panic",
						"path", r.URL.Path,
						"panic", rec,
					)
					httputil.WriteJSON(w, http.StatusInternalServerError,
						protocol.NewNack(protocol.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := map[string]string{"status": "ok"}
		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				result["status"] = "degraded"
				result[c.Name] = err.Error()
				continue
			}
			result[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	}
}
