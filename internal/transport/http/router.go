package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public surface: the signed query endpoint plus the
// health and metrics endpoints, which stay outside signature verification so
// probes and scrapers need no secret.
func NewRouter(handler *Handler, webhookSecret string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestTime)
	r.Use(RequestID)
	r.Use(Logger(logger))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(VerifySignature(webhookSecret, logger))
		handler.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
