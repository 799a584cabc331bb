/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

IDENTITY:
  The caller's identity arrives in trusted X-Caller-* headers set by the
  gateway in front of this service. auth.Middleware parses them and rejects
  unknown or missing roles with 403 before any handler runs. The health
  probe is the one route outside that wall.

ROUTE GROUPS:
  /api/cash/*       Cash transaction ledger
  /api/handover     Master cash-handover listing

SEE ALSO:
  - handlers.go: Handler implementations
  - auth/middleware.go: Identity extraction
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/cashdesk/auth"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Caller-Id", "X-Caller-Login", "X-Caller-Role", "X-Caller-Name", "X-Caller-Cities"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Cash transaction routes
		r.Route("/cash", func(r chi.Router) {
			r.Get("/health", h.Health)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware)
				r.Get("/", h.ListCash)
				r.Post("/", h.CreateCash)
				r.Get("/{id}", h.GetCash)
				r.Put("/{id}", h.UpdateCash)
				r.Delete("/{id}", h.DeleteCash)
			})
		})

		// Handover routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Get("/handover", h.ListHandover)
		})
	})

	return r
}
