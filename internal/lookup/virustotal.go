package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"phishguard/internal/retry"
)

const DefaultVirusTotalURL = "https://www.virustotal.com/api/v3"

var (
	ErrNoAPIKey = errors.New("VirusTotal API key not configured")
	// ErrAnalysisPending is returned when the analysis never reached
	// "completed" within the poll budget.
	ErrAnalysisPending = errors.New("VirusTotal analysis did not complete")
)

// DefaultVirusTotalPoll waits before every poll, about 25s in total.
var DefaultVirusTotalPoll = retry.Policy{Attempts: 5, Delay: 5 * time.Second, WaitFirst: true}

type AnalysisStats struct {
	Harmless   int `json:"harmless"`
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
}

// Clean reports whether no engine flagged the URL and at least one vouched
// for it.
func (s AnalysisStats) Clean() bool {
	return s.Malicious == 0 && s.Suspicious == 0 && s.Harmless > 0
}

type VirusTotal struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Poll    retry.Policy
	// Limiter paces submissions; the public API allows 4 per minute.
	Limiter *rate.Limiter
}

func NewVirusTotal(baseURL, apiKey string, client *http.Client) *VirusTotal {
	if baseURL == "" {
		baseURL = DefaultVirusTotalURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &VirusTotal{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  client,
		Poll:    DefaultVirusTotalPoll,
		Limiter: rate.NewLimiter(rate.Every(15*time.Second), 4),
	}
}

// Submit queues rawURL for scanning and returns the analysis id.
func (v *VirusTotal) Submit(ctx context.Context, rawURL string) (string, error) {
	if v.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if v.Limiter != nil {
		if err := v.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for VirusTotal quota: %w", err)
		}
	}

	form := url.Values{}
	form.Set("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-apikey", v.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit to VirusTotal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("VirusTotal submit returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode VirusTotal submit response: %w", err)
	}
	if body.Data.ID == "" {
		return "", errors.New("VirusTotal returned no analysis id")
	}
	return body.Data.ID, nil
}

// Analysis fetches the current state of an analysis.
func (v *VirusTotal) Analysis(ctx context.Context, id string) (string, AnalysisStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/analyses/"+url.PathEscape(id), nil)
	if err != nil {
		return "", AnalysisStats{}, err
	}
	req.Header.Set("x-apikey", v.APIKey)

	resp, err := v.Client.Do(req)
	if err != nil {
		return "", AnalysisStats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", AnalysisStats{}, fmt.Errorf("VirusTotal analysis returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Attributes struct {
				Status string        `json:"status"`
				Stats  AnalysisStats `json:"stats"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", AnalysisStats{}, fmt.Errorf("decode VirusTotal analysis: %w", err)
	}
	return body.Data.Attributes.Status, body.Data.Attributes.Stats, nil
}

// Await polls an analysis until it completes. Individual poll failures are
// logged and retried.
func (v *VirusTotal) Await(ctx context.Context, id string) (AnalysisStats, error) {
	var stats AnalysisStats
	err := v.Poll.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		status, s, err := v.Analysis(ctx, id)
		if err != nil {
			log.Printf("[VirusTotalCheck] Polling attempt %d/%d failed: %v", attempt+1, v.Poll.Attempts, err)
			return false, nil
		}
		if status != "completed" {
			return false, nil
		}
		stats = s
		return true, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return stats, ErrAnalysisPending
	}
	return stats, err
}
