package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"phishguard/internal/retry"
)

const DefaultSSLLabsURL = "https://api.ssllabs.com/api/v3"

var (
	// ErrAssessmentFailed is reported when the rating service ends in ERROR.
	ErrAssessmentFailed = errors.New("TLS assessment failed")
	// ErrAssessmentPending is reported when polling ran out before READY.
	ErrAssessmentPending = errors.New("TLS assessment did not finish")
)

// DefaultSSLLabsPoll allows roughly two minutes for an assessment.
var DefaultSSLLabsPoll = retry.Policy{Attempts: 12, Delay: 10 * time.Second, WaitFirst: true}

type SSLReport struct {
	Host          string        `json:"host"`
	Status        string        `json:"status"`
	StatusMessage string        `json:"statusMessage"`
	Endpoints     []SSLEndpoint `json:"endpoints"`
}

type SSLEndpoint struct {
	IPAddress string              `json:"ipAddress"`
	Grade     string              `json:"grade"`
	Details   *SSLEndpointDetails `json:"details"`
}

type SSLEndpointDetails struct {
	Cert        *SSLCert `json:"cert"`
	ChainIssues int      `json:"chainIssues"`
}

type SSLCert struct {
	NotAfter       int64  `json:"notAfter"` // ms since epoch
	ValidationType string `json:"validationType"`
}

// Expiry converts NotAfter into a time.
func (c *SSLCert) Expiry() time.Time {
	return time.UnixMilli(c.NotAfter)
}

// Registration is the organisation record sent to /register.
type Registration struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
}

// SSLLabs drives the SSL Labs v3 assessment API.
type SSLLabs struct {
	BaseURL      string
	Email        string
	Client       *http.Client
	Poll         retry.Policy
	Registration *Registration

	registerOnce sync.Once
}

func NewSSLLabs(baseURL, email string, client *http.Client) *SSLLabs {
	if baseURL == "" {
		baseURL = DefaultSSLLabsURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	s := &SSLLabs{
		BaseURL: baseURL,
		Email:   email,
		Client:  client,
		Poll:    DefaultSSLLabsPoll,
	}
	if email != "" {
		s.Registration = &Registration{
			FirstName:    "PhishGuard",
			LastName:     "Service",
			Email:        email,
			Organization: "PhishGuard",
		}
	}
	return s
}

// Assess starts a fresh assessment of host and polls until it is READY.
func (s *SSLLabs) Assess(ctx context.Context, host string) (*SSLReport, error) {
	s.registerOnce.Do(func() { s.register(ctx) })

	start := url.Values{}
	start.Set("host", host)
	start.Set("publish", "off")
	start.Set("startNew", "on")
	start.Set("all", "done")

	report, err := s.analyze(ctx, start)
	if err != nil {
		return nil, err
	}
	if done, err := terminal(report); done {
		return report, err
	}

	poll := url.Values{}
	poll.Set("host", host)
	poll.Set("all", "done")

	err = s.Poll.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		next, err := s.analyze(ctx, poll)
		if err != nil {
			// Transient errors (overload, 429) keep polling.
			log.Printf("[SSLLabs] poll %d for %s failed: %v", attempt+1, host, err)
			return false, nil
		}
		report = next
		return terminal(report)
	})
	if errors.Is(err, retry.ErrExhausted) {
		return report, ErrAssessmentPending
	}
	if err != nil {
		return report, err
	}
	return report, nil
}

func terminal(r *SSLReport) (bool, error) {
	switch r.Status {
	case "READY":
		return true, nil
	case "ERROR":
		return true, fmt.Errorf("%w: %s", ErrAssessmentFailed, r.StatusMessage)
	default:
		return false, nil
	}
}

func (s *SSLLabs) analyze(ctx context.Context, q url.Values) (*SSLReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/analyze?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if s.Email != "" {
		req.Header.Set("email", s.Email)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ssllabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ssllabs returned status %d", resp.StatusCode)
	}

	var report SSLReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode ssllabs response: %w", err)
	}
	return &report, nil
}

// register is best effort: the API keeps answering for an already
// registered address.
func (s *SSLLabs) register(ctx context.Context) {
	if s.Registration == nil {
		return
	}
	body, err := json.Marshal(s.Registration)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/register", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		log.Printf("[SSLLabs] registration failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[SSLLabs] registration returned status %d", resp.StatusCode)
	}
}
