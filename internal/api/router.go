// Package api exposes pipeline runs and their jobs over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/customer-etl/internal/api/handlers"
	"github.com/dvloznov/customer-etl/internal/api/middleware"
	"github.com/dvloznov/customer-etl/internal/jobs"
	"github.com/rs/zerolog"
)

// RouterConfig wires the HTTP handlers.
type RouterConfig struct {
	Publisher jobs.Publisher
	JobStore  jobs.JobStore
	Runs      handlers.RunLister
	APIKey    string
	Log       zerolog.Logger
}

// NewRouter builds the routes and wraps them in the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	runsHandler := handlers.NewRunsHandler(cfg.Publisher, cfg.Runs, cfg.Log)
	jobsHandler := handlers.NewJobsHandler(cfg.JobStore, cfg.Log)

	mux := http.NewServeMux()

	// Runs endpoints
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			runsHandler.TriggerRun(w, r)
		case http.MethodGet:
			runsHandler.ListRuns(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(cfg.Log)(
		middleware.Logger(cfg.Log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(cfg.APIKey)(mux),
				),
			),
		),
	)
}
