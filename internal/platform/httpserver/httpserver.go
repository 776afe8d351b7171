// Package httpserver constructs the gateway's HTTP server. Timeouts
// are fixed here rather than per caller: the ack for every action is
// synchronous and small, so slow-client protection is uniform.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the given address and router. Header reads,
// response writes, and idle keep-alives are bounded here; body size is
// the handler's concern.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
