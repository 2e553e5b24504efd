package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Capital moves run a transaction per request, so
// the write timeout leaves headroom; header and idle timeouts keep stuck
// clients from pinning connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
