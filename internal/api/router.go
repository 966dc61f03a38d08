package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/parcoursmaker/parcoursmaker/internal/api/middleware"
	"github.com/parcoursmaker/parcoursmaker/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler          http.HandlerFunc
	StartExtractionHandler http.HandlerFunc
	GetRunHandler          http.HandlerFunc
	CommitHandler          http.HandlerFunc
	CommitHistoryHandler   http.HandlerFunc
	CreateTemplateHandler  http.HandlerFunc
	UpdateTemplateHandler  http.HandlerFunc
	DeleteTemplateHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Rate-limited routes
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/extractions", orNotImplemented(deps.StartExtractionHandler))
		r.Get("/api/v1/extractions/{runID}", orNotImplemented(deps.GetRunHandler))

		r.Post("/api/v1/parcours", orNotImplemented(deps.CommitHandler))
		r.Get("/api/v1/parcours/commits", orNotImplemented(deps.CommitHistoryHandler))

		r.Post("/api/v1/templates", orNotImplemented(deps.CreateTemplateHandler))
		r.Put("/api/v1/templates/{templateID}", orNotImplemented(deps.UpdateTemplateHandler))
		r.Delete("/api/v1/templates/{templateID}", orNotImplemented(deps.DeleteTemplateHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
