package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

// healthCheckTimeout bounds each dependency check made by /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID, s.accessLog, s.recoverPanics, s.cors, limitBody)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/listeners", func(r chi.Router) {
			r.Get("/", s.handleListListeners)
			r.Post("/", s.handleAddListener)

			r.Route("/{port}", func(r chi.Router) {
				r.Get("/", s.handleGetListener)
				r.Delete("/", s.handleStopListener)
				r.Post("/start", s.handleStartListener)
				r.Post("/stop", s.handleStopListener)
			})
		})

		r.Get("/symbols", s.handleSymbol)
		r.Post("/enrich", s.handleEnrich)
		r.Get("/audit", s.handleListAudit)

		r.Get(streamPath(s.wsCfg), s.handleStream)
	})

	return r
}

// streamPath returns the configured websocket route, relative to /api/v1.
func streamPath(cfg config.WebSocketConfig) string {
	if cfg.Path == "" {
		return "/ws"
	}
	return "/" + strings.TrimLeft(cfg.Path, "/")
}

// handleHealth returns the server health status. Each configured dependency
// is checked; any failure reports "degraded" with a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))

	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	respond(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
