// Package httpserver provides a pre-configured HTTP server with sane timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an HTTP server with timeouts suitable for a public API.
// Handler-level timeouts are enforced separately by middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
