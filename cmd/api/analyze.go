package main

import (
	"encoding/json"
	"net/http"

	"phishguard/internal/analyzer"
)

type analyzeRequest struct {
	URL      string `json:"url"`
	FastOnly bool   `json:"fastOnly"`
}

func (s *server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	summary, err := s.analyzer.Run(r.Context(), req.URL, analyzer.Options{FastOnly: req.FastOnly})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.Context().Err() != nil {
		writeJSON(w, http.StatusGatewayTimeout, summary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type checkWebsiteRequest struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

// checkWebsiteHandler is the message endpoint the extension popup uses.
func (s *server) checkWebsiteHandler(w http.ResponseWriter, r *http.Request) {
	var req checkWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.Action != "checkWebsite" {
		writeError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	writeJSON(w, http.StatusOK, s.analyzer.CheckWebsite(r.Context(), req.URL))
}
