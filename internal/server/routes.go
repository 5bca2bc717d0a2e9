package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI pages
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/jobs", s.app.PageHandler.ServePage("jobs.html"))
	mux.Handle("/static/", s.app.PageHandler.StaticFileHandler())

	// WebSocket for live logs and job updates
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Extraction
	mux.HandleFunc("/api/process", s.app.ExtractHandler.ProcessHandler)
	mux.HandleFunc("/api/batch_process", s.app.BatchHandler.BatchProcessHandler)
	mux.HandleFunc("/api/split", s.app.SplitHandler.SplitPDFHandler)

	// Job history
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)
	mux.HandleFunc("/api/batches/", s.handleBatchRoutes)

	// Service info
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Catch-all for unknown API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleIndex serves the main page on "/" only; everything else under the
// root pattern is a 404.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.app.PageHandler.ServePage("index.html")(w, r)
}

// handleJobRoutes dispatches /api/jobs/{id} and its subresources
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 0 || parts[0] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	jobID := parts[0]

	switch {
	case len(parts) == 1:
		// /api/jobs/{id}
		switch r.Method {
		case http.MethodGet:
			s.app.JobHandler.GetJobHandler(w, r, jobID)
		case http.MethodDelete:
			s.app.JobHandler.DeleteJobHandler(w, r, jobID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "download":
		// /api/jobs/{id}/download
		s.app.JobHandler.DownloadJobHandler(w, r, jobID)
	case len(parts) == 3 && parts[1] == "export" && parts[2] == "pdf":
		// /api/jobs/{id}/export/pdf
		s.app.JobHandler.ExportJobPDFHandler(w, r, jobID)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleBatchRoutes dispatches /api/batches/{id}/archive
func (s *Server) handleBatchRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/batches/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 2 && parts[0] != "" && parts[1] == "archive" {
		s.app.JobHandler.BatchArchiveHandler(w, r, parts[0])
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}
