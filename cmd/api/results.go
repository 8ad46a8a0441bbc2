package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"phishguard/internal/models"
	"phishguard/internal/store"
)

func (s *server) jobStatusHandler(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log.Printf("DB Error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ResultRow is one analyzed URL of a job.
type ResultRow struct {
	URL    string                `json:"url"`
	Score  int                   `json:"score"`
	Status models.Classification `json:"status"`
	Data   json.RawMessage       `json:"data"`
}

func (s *server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := s.jobs.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("DB Error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch results")
		return
	}

	// Empty array rather than null while the job is still running.
	rows := make([]ResultRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ResultRow{URL: rec.URL, Score: rec.Score, Status: rec.Status, Data: rec.Data})
	}
	writeJSON(w, http.StatusOK, rows)
}
