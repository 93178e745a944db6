package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (live spider stats)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - One-shot scrape
	mux.HandleFunc("/api/scrape", s.app.ScrapeHandler.ScrapeHandler)

	// API routes - Spider control
	mux.HandleFunc("/api/spider/enqueue", s.app.SpiderHandler.EnqueueHandler)
	mux.HandleFunc("/api/spider/seed-sources", s.app.SpiderHandler.SeedSourcesHandler)
	mux.HandleFunc("/api/spider/stats", s.app.SpiderHandler.StatsHandler)
	mux.HandleFunc("/api/spider/start", s.app.SpiderHandler.StartHandler)
	mux.HandleFunc("/api/spider/stop", s.app.SpiderHandler.StopHandler)

	// API routes - Job history and results
	mux.HandleFunc("/api/jobs/stats", s.app.JobHandler.GetJobStatsHandler)
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // Handles /api/jobs/{id} and subpaths
	mux.HandleFunc("/api/results/", s.handleResultRoutes)

	// API routes - Archive
	mux.HandleFunc("/api/archive/replay", s.app.ArchiveHandler.ReplayHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes job-related requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	// GET /api/jobs/{id}/results
	if RouteByPathSuffix(w, r, "/api/jobs/", []PathSuffixRouter{
		{Suffix: "/results", Handler: s.app.JobHandler.GetJobResultsHandler},
	}) {
		return
	}

	// GET /api/jobs/{id}
	s.app.JobHandler.GetJobHandler(w, r)
}

// handleResultRoutes routes /api/results/{id} requests
func (s *Server) handleResultRoutes(w http.ResponseWriter, r *http.Request) {
	// GET /api/results/{id}/markdown
	if RouteByPathSuffix(w, r, "/api/results/", []PathSuffixRouter{
		{Suffix: "/markdown", Handler: s.app.JobHandler.ResultMarkdownHandler},
	}) {
		return
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}
