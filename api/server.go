/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/assets/*         Asset administration, audit trail, schedule
  /api/depreciation/*   Calculator preview
  /api/expiry           Remaining life and expiry dates
  /api/year-end/*       Year-end batch
  /metrics              Prometheus scrape endpoint
  /                     Endpoint index

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured. A nil
// gatherer serves the default Prometheus registry.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Asset routes
		r.Route("/assets", func(r chi.Router) {
			r.Get("/", h.ListAssets)
			r.Post("/", h.CreateAsset)
			r.Get("/{id}", h.GetAsset)
			r.Put("/{id}/status", h.UpdateAssetStatus)
			r.Get("/{id}/audit", h.GetAssetAudit)
			r.Get("/{id}/schedule", h.GetAssetSchedule)
		})

		// Calculator routes
		r.Post("/depreciation/preview", h.PreviewDepreciation)
		r.Get("/expiry", h.GetExpiry)

		// Year-end routes
		r.Route("/year-end", func(r chi.Router) {
			r.Post("/process", h.ProcessYearEnd)
			r.Post("/trigger", h.TriggerYearEnd)
			r.Get("/summary", h.GetYearEndSummary)
			r.Get("/runs", h.ListYearEndRuns)
		})
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Fixed Asset Depreciation</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Fixed Asset Depreciation API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/assets">/api/assets</a> - List assets</li>
<li><a href="/api/year-end/summary">/api/year-end/summary</a> - Next year-end preview</li>
<li><a href="/api/year-end/runs">/api/year-end/runs</a> - Year-end runs</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}
