package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"phishguard/internal/gatekeeper"
)

type navigationResponse struct {
	Intercepted bool   `json:"intercepted"`
	Redirect    string `json:"redirect,omitempty"`
}

func (s *server) navigationHandler(w http.ResponseWriter, r *http.Request) {
	var evt gatekeeper.NavigationEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed navigation event")
		return
	}

	resp := navigationResponse{Intercepted: s.gate.OnNavigation(evt)}
	if resp.Intercepted {
		resp.Redirect = s.gate.InterstitialURL(evt.URL)
	}
	writeJSON(w, http.StatusOK, resp)
}

// tabResultHandler is long-polled by the interstitial page. It answers with
// the stored result, or waits for the running check to deliver one.
func (s *server) tabResultHandler(w http.ResponseWriter, r *http.Request) {
	tabID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tab id")
		return
	}

	// Listen before asking for a stored result so no delivery slips between.
	ch, cancel := s.mailbox.Listen(tabID)
	defer cancel()

	if d, ok := s.gate.Ready(tabID); ok {
		writeJSON(w, http.StatusOK, d)
		return
	}
	if !s.gate.Pending(tabID) {
		select {
		case d := <-ch:
			writeJSON(w, http.StatusOK, d)
		default:
			writeError(w, http.StatusNotFound, "No check pending for this tab")
		}
		return
	}

	timeout := s.pollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	ctx, stop := context.WithTimeout(r.Context(), timeout)
	defer stop()

	select {
	case d := <-ch:
		writeJSON(w, http.StatusOK, d)
	case <-ctx.Done():
		w.WriteHeader(http.StatusNoContent)
	}
}

// logNavigator stands in for the browser: the redirect target travels back
// in the /navigation response and the client performs it.
func logNavigator(tabID int, url string) error {
	log.Printf("[Gatekeeper] tab %d -> %s", tabID, url)
	return nil
}
