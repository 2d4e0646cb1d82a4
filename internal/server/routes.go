package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Tracked tickers
	mux.HandleFunc("/api/tickers", s.app.TickersHandler.ListHandler)

	// API routes - Market data
	mux.HandleFunc("/api/prices", s.app.PricesHandler.ListHandler)
	mux.HandleFunc("/api/news", s.app.NewsHandler.ListHandler)
	mux.HandleFunc("/api/news/", s.app.NewsHandler.GetHandler) // GET /{id}
	mux.HandleFunc("/api/aggregates", s.app.AggregatesHandler.ListHandler)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobsHandler.StatusHandler)
	mux.HandleFunc("/api/jobs/runs", s.app.JobsHandler.RunsHandler)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // POST /{name}/trigger

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	return mux
}

// handleJobRoutes dispatches /api/jobs/{name}/trigger; anything else under
// the prefix is a 404.
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/trigger") {
		s.app.JobsHandler.TriggerHandler(w, r)
		return
	}
	http.NotFound(w, r)
}
