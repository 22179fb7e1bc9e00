// Package httptransport is the thin HTTP layer over the sync engine. It
// translates requests and domain errors; business logic stays out.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"padron/internal/platform/middleware"
)

// NewRouter wires the operator API. Sync triggers require a bearer token;
// health and metrics stay open for the platform probes.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		r.Post("/sync", h.handleSyncAll)
		r.Post("/parties/{id}/sync", h.handleSyncParty)
		r.Post("/credential/verify", h.handleVerifyCredential)
	})

	return r
}
