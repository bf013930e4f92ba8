package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/status", h.Status)
	r.Get("/tags", h.Tags)

	// Notes are read-only over HTTP. Writes go through the gated tools.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{topic}/{filename}", h.GetNote)

	r.Get("/urls", h.URLs)
	r.Get("/instructions", h.Instructions)

	r.Get("/search", h.Search)
	r.Get("/metrics/summary", h.MetricsSummary)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
