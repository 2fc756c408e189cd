package httpserver

import (
	"net/http"
	"time"
)

// Timeouts sized for this service: a query can walk up to a hundred remote
// audit pages before the reply is written, so the write timeout is generous
// while the request-reading side stays tight (bodies are short chat
// messages).
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = time.Minute
)

// New builds the HTTP server fronting the query endpoint.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
