package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(
		requestID,
		accessLog(s.logger),
		recoverPanics(s.logger),
		cors(s.cfg.CORS.AllowedOrigins),
		limitBody(maxRequestBodySize),
	)

	// Prometheus scrape endpoint
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{device}", s.handleGetDevice)
			r.Post("/{device}/command", s.handleDeviceCommand)
		})

		r.Get("/history", s.handleHistory)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports the server version and the health of each
// registered component. Any failing component turns the response into 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.checks))
	status, code := "ok", http.StatusOK

	for name, check := range s.checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			components[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
