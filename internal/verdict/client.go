package verdict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"phishguard/internal/models"
)

// HTTPClient talks to a remote verdict store over its JSON contract:
// POST /check-url, POST /add-url and GET /urls.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type urlRequest struct {
	URL    string                `json:"url"`
	Status models.Classification `json:"status,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Lookup treats every failure, and an explicit "unknown", as absent.
func (c *HTTPClient) Lookup(ctx context.Context, url string) (models.Classification, bool) {
	var resp statusResponse
	if err := c.post(ctx, "/check-url", urlRequest{URL: url}, &resp); err != nil {
		log.Printf("[DatabaseCheck] lookup %s: %v", url, err)
		return models.Unknown, false
	}

	switch status := models.ParseClassification(resp.Status); status {
	case models.Safe, models.Malicious:
		return status, true
	default:
		return models.Unknown, false
	}
}

func (c *HTTPClient) Upsert(ctx context.Context, url string, status models.Classification) error {
	var resp statusResponse
	return c.post(ctx, "/add-url", urlRequest{URL: url, Status: status}, &resp)
}

func (c *HTTPClient) List(ctx context.Context) ([]models.Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/urls", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verdict store returned status %d", resp.StatusCode)
	}

	var out []models.Verdict
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verdict list: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, into any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
