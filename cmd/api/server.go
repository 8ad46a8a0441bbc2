package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"phishguard/internal/analyzer"
	"phishguard/internal/gatekeeper"
	"phishguard/internal/models"
	"phishguard/internal/verdict"
)

// VerdictStore backs the /check-url, /add-url and /urls contract.
type VerdictStore interface {
	verdict.Store
	verdict.Lister
}

type Analyzer interface {
	Run(ctx context.Context, url string, opts analyzer.Options) (models.AnalysisSummary, error)
	CheckWebsite(ctx context.Context, url string) models.ScanResponse
}

type JobStore interface {
	CreateJob(ctx context.Context, id string, total int) error
	GetJob(ctx context.Context, id string) (models.Job, error)
	Results(ctx context.Context, jobID string) ([]models.AnalysisRecord, error)
}

type TaskQueue interface {
	Push(ctx context.Context, tasks ...models.Task) error
}

const defaultPollTimeout = 25 * time.Second

type server struct {
	verdicts VerdictStore
	analyzer Analyzer
	gate     *gatekeeper.Gatekeeper
	mailbox  *gatekeeper.Mailbox

	// jobs and tasks are nil unless Postgres and Redis are both configured.
	jobs  JobStore
	tasks TaskQueue

	apiKey      string
	pollTimeout time.Duration
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/status", statusHandler)

	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(s.apiKey))

		r.Post("/check-url", s.checkURLHandler)
		r.Post("/add-url", s.addURLHandler)
		r.Get("/urls", s.listURLsHandler)

		r.Post("/analyze", s.analyzeHandler)
		r.Post("/check-website", s.checkWebsiteHandler)

		r.Post("/navigation", s.navigationHandler)
		r.Get("/tabs/{id}/result", s.tabResultHandler)

		r.Route("/jobs", func(r chi.Router) {
			r.Use(s.requireJobs)
			r.Post("/", s.uploadHandler)
			r.Get("/{id}", s.jobStatusHandler)
			r.Get("/{id}/results", s.resultsHandler)
		})
	})

	return r
}

func (s *server) requireJobs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.jobs == nil || s.tasks == nil {
			writeError(w, http.StatusServiceUnavailable, "Batch jobs require Postgres and Redis")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
