// Package router sets up all HTTP routes and middleware chains for the
// prepstack taxonomy API. Reads and writes get separate rate limits:
// navigation traffic is chatty, bulk imports are not.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"prepstack/internal/handlers"
	"prepstack/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. The returned limiters are owned by the
// caller, which stops them on shutdown.
func New(categories *handlers.Categories, labels *handlers.Labels, queries *handlers.Queries, items *handlers.Items) (chi.Router, []*middleware.RateLimiter) {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	readLimiter := middleware.NewRateLimiter(300, time.Minute)
	writeLimiter := middleware.NewRateLimiter(60, time.Minute)

	// Health check — no rate limit.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		// Categories
		r.Route("/categories", func(r chi.Router) {
			r.With(readLimiter.Middleware).Get("/", categories.List)
			r.With(readLimiter.Middleware).Get("/{id}", categories.Get)

			r.Group(func(r chi.Router) {
				r.Use(writeLimiter.Middleware)
				r.Post("/", categories.Create)
				r.Put("/{id}/active", categories.SetActive)
				r.Delete("/{id}", categories.Delete)
			})
		})

		// Labels — tree mutations, bulk import and hierarchy reads.
		r.Route("/labels", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(writeLimiter.Middleware)
				r.Post("/", labels.Create)
				r.Post("/bulk", labels.CreateBulk)
				r.Patch("/{id}", labels.Update)
				r.Delete("/{id}", labels.Delete)
				r.Post("/{id}/reactivate", labels.Reactivate)

				// Item registration, called by the item subsystems.
				r.Post("/{id}/items", items.Attach)
				r.Delete("/{id}/items/{itemID}", items.Detach)
			})

			r.Group(func(r chi.Router) {
				r.Use(readLimiter.Middleware)
				r.Get("/{id}", labels.Get)
				r.Get("/{id}/children", labels.Children)
				r.Get("/{id}/descendants", queries.Descendants)
				r.Get("/{id}/count", queries.Count)
				r.Get("/{id}/sample", queries.Sample)
				r.Get("/{id}/navigation", queries.Navigation)
			})
		})
	})

	return r, []*middleware.RateLimiter{readLimiter, writeLimiter}
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
