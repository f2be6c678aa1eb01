package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device-facing endpoints. Devices authenticate per-request with
		// their id and password; there is no session.
		r.Route("/iot", func(r chi.Router) {
			r.Get("/", s.handleIoTPing)
			r.Post("/init", s.handleDeviceInit)
			r.Post("/message", s.handleDeviceMessage)
			r.Post("/password", s.handleDevicePassword)
		})

		// Mobile-facing endpoints. Users authenticate with the token
		// obtained from login; the cache validates it per-request.
		r.Route("/mobile", func(r chi.Router) {
			r.Get("/", s.handleMobilePing)
			r.Post("/login", s.handleLogin)

			r.Route("/user/{userId}", func(r chi.Router) {
				r.Post("/properties/list", s.handleListProperties)

				r.Route("/devices", func(r chi.Router) {
					r.Post("/link", s.handleLinkDevice)
					r.Post("/unlink", s.handleUnlinkDevice)
					r.Post("/list", s.handleDevicesList)
					r.Post("/{deviceId}/get", s.handleDeviceFullData)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.registry.Count(),
		"users":   s.users.Count(),
	})
}
