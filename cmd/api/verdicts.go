package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"phishguard/internal/models"
	"phishguard/internal/urlutil"
)

type urlRequest struct {
	URL    string `json:"url"`
	Status string `json:"status,omitempty"`
}

type statusResponse struct {
	Status models.Classification `json:"status"`
}

func (s *server) checkURLHandler(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	status, found := s.verdicts.Lookup(r.Context(), req.URL)
	if !found {
		status = models.Unknown
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (s *server) addURLHandler(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid URL or status")
		return
	}
	status := models.Classification(req.Status)
	if req.URL == "" || !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid URL or status")
		return
	}

	err := s.verdicts.Upsert(r.Context(), req.URL, status)
	if errors.Is(err, urlutil.ErrInvalidURL) || errors.Is(err, urlutil.ErrEmptyURL) {
		writeError(w, http.StatusBadRequest, "Invalid URL or status")
		return
	}
	if err != nil {
		log.Printf("[ERROR] add-url %s: %v", req.URL, err)
		writeError(w, http.StatusInternalServerError, "Failed to store verdict")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (s *server) listURLsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.verdicts.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] list urls: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list verdicts")
		return
	}
	if list == nil {
		list = []models.Verdict{}
	}
	writeJSON(w, http.StatusOK, list)
}
