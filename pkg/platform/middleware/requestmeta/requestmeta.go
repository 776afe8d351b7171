// Package requestmeta provides middleware for request-scoped metadata.
// Every operation within a single HTTP request sees the same "now"
// timestamp and correlation ID, keeping trail records and logs
// consistent for one delivery.
package requestmeta

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"sellergate/pkg/requestcontext"
)

// Middleware stamps a fresh request ID and the current time into the
// request context. Applied first in the chain so everything downstream
// shares them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
