package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"phishguard/internal/analyzer"
	"phishguard/internal/gatekeeper"
	"phishguard/internal/models"
	"phishguard/internal/store"
	"phishguard/internal/urlutil"
	"phishguard/internal/verdict"
)

const testKey = "secret"

type stubAnalyzer struct {
	gate chan struct{}
}

func (s *stubAnalyzer) Run(ctx context.Context, url string, opts analyzer.Options) (models.AnalysisSummary, error) {
	if _, err := urlutil.Sanitize(url); err != nil {
		return models.AnalysisSummary{}, err
	}
	total := 6
	if opts.FastOnly {
		total = 5
	}
	return models.AnalysisSummary{URL: url, Score: 90, Status: models.Safe, Total: total}, nil
}

func (s *stubAnalyzer) CheckWebsite(ctx context.Context, url string) models.ScanResponse {
	if s.gate != nil {
		<-s.gate
	}
	if strings.Contains(url, "phish") {
		return models.ScanResponse{IsSafe: false, Message: "Found 3 security concerns."}
	}
	return models.ScanResponse{IsSafe: true, Message: "ok"}
}

type memoryJobs struct {
	mu      sync.Mutex
	jobs    map[string]models.Job
	results map[string][]models.AnalysisRecord
	pushed  []models.Task
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: map[string]models.Job{}, results: map[string][]models.AnalysisRecord{}}
}

func (m *memoryJobs) CreateJob(ctx context.Context, id string, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = models.Job{ID: id, Status: models.JobPending, TotalCount: total, CreatedAt: time.Now()}
	return nil
}

func (m *memoryJobs) GetJob(ctx context.Context, id string) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return models.Job{}, store.ErrJobNotFound
	}
	return j, nil
}

func (m *memoryJobs) Results(ctx context.Context, jobID string) ([]models.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[jobID], nil
}

func (m *memoryJobs) Push(ctx context.Context, tasks ...models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = append(m.pushed, tasks...)
	return nil
}

func newTestServer(t *testing.T, an *stubAnalyzer, jobs *memoryJobs) (*server, *httptest.Server) {
	t.Helper()
	mailbox := gatekeeper.NewMailbox()
	gate := gatekeeper.New(context.Background(), an, nil, mailbox, gatekeeper.Config{
		Interstitial: "https://guard.local/checking.html",
	})
	s := &server{
		verdicts:    verdict.NewService(verdict.NewMemoryRepository(time.Now), nil, 0),
		analyzer:    an,
		gate:        gate,
		mailbox:     mailbox,
		apiKey:      testKey,
		pollTimeout: 2 * time.Second,
	}
	if jobs != nil {
		s.jobs = jobs
		s.tasks = jobs
	}
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestAuthAndCORS(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"Status is public", http.MethodGet, "/status", "", http.StatusOK},
		{"Missing key", http.MethodGet, "/urls", "", http.StatusUnauthorized},
		{"Wrong key", http.MethodGet, "/urls", "Bearer nope", http.StatusUnauthorized},
		{"Valid key", http.MethodGet, "/urls", "Bearer " + testKey, http.StatusOK},
		{"Preflight", http.MethodOptions, "/urls", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
				t.Error("missing CORS header")
			}
		})
	}
}

func TestVerdictContract(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{}, nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/check-url", `{"url":"https://evil.test"}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"unknown"`) {
		t.Fatalf("expected unknown for unseen URL, got %d %s", resp.StatusCode, body)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"Valid", `{"url":"https://evil.test/login","status":"malicious"}`, http.StatusOK},
		{"Bad status", `{"url":"https://evil.test","status":"bad"}`, http.StatusBadRequest},
		{"Missing URL", `{"status":"safe"}`, http.StatusBadRequest},
		{"Unparseable URL", `{"url":"http://","status":"safe"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, ts.URL+"/add-url", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
		})
	}

	// Stored under the origin, so any path on the host matches.
	_, body = do(t, http.MethodPost, ts.URL+"/check-url", `{"url":"https://EVIL.test/other"}`)
	if !strings.Contains(string(body), `"malicious"`) {
		t.Errorf("expected malicious, got %s", body)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/check-url", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing url should be 400, got %d", resp.StatusCode)
	}

	_, body = do(t, http.MethodGet, ts.URL+"/urls", "")
	var list []models.Verdict
	if err := json.Unmarshal(body, &list); err != nil || len(list) != 1 || list[0].URL != "https://evil.test" {
		t.Errorf("unexpected list %s (%v)", body, err)
	}
}

func TestAnalyzeEndpoints(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{}, nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/analyze", `{"url":"example.com","fastOnly":true}`)
	var summary models.AnalysisSummary
	json.Unmarshal(body, &summary)
	if resp.StatusCode != http.StatusOK || summary.Total != 5 {
		t.Errorf("unexpected analyze reply %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/analyze", `{"url":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty url should be 400, got %d", resp.StatusCode)
	}

	_, body = do(t, http.MethodPost, ts.URL+"/check-website", `{"action":"checkWebsite","url":"https://phish.test"}`)
	var scan models.ScanResponse
	json.Unmarshal(body, &scan)
	if scan.IsSafe {
		t.Errorf("expected unsafe scan, got %s", body)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/check-website", `{"action":"other","url":"https://a.test"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown action should be 400, got %d", resp.StatusCode)
	}
}

func TestNavigationLongPoll(t *testing.T) {
	an := &stubAnalyzer{gate: make(chan struct{})}
	s, ts := newTestServer(t, an, nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/tabs/3/result", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("idle tab should be 404, got %d", resp.StatusCode)
	}

	_, body = do(t, http.MethodPost, ts.URL+"/navigation", `{"tabId":3,"url":"https://phish.test/login","frameId":0}`)
	var nav navigationResponse
	json.Unmarshal(body, &nav)
	if !nav.Intercepted || !strings.HasPrefix(nav.Redirect, "https://guard.local/checking.html?url=") {
		t.Fatalf("unexpected navigation reply %s", body)
	}

	type reply struct {
		code int
		body []byte
	}
	got := make(chan reply, 1)
	go func() {
		resp, body := do(t, http.MethodGet, ts.URL+"/tabs/3/result", "")
		got <- reply{resp.StatusCode, body}
	}()

	time.Sleep(50 * time.Millisecond)
	close(an.gate)

	r := <-got
	var d gatekeeper.Delivery
	json.Unmarshal(r.body, &d)
	if r.code != http.StatusOK || d.OriginalURL != "https://phish.test/login" || d.Result.IsSafe {
		t.Errorf("unexpected delivery %d %s", r.code, r.body)
	}
	s.gate.Wait()

	_, body = do(t, http.MethodPost, ts.URL+"/navigation", `{"tabId":3,"url":"https://a.test","frameId":2}`)
	if strings.Contains(string(body), `"intercepted":true`) {
		t.Error("sub-frame navigation must not be intercepted")
	}
}

func TestStoredResultAfterMissedDelivery(t *testing.T) {
	an := &stubAnalyzer{}
	s, ts := newTestServer(t, an, nil)

	do(t, http.MethodPost, ts.URL+"/navigation", `{"tabId":8,"url":"https://phish.test","frameId":0}`)
	s.gate.Wait()

	resp, body := do(t, http.MethodGet, ts.URL+"/tabs/8/result", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "phish.test") {
		t.Errorf("stored result not returned: %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/tabs/8/result", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("result should be handed over once, got %d", resp.StatusCode)
	}
}

func TestJobs(t *testing.T) {
	jobs := newMemoryJobs()
	_, ts := newTestServer(t, &stubAnalyzer{}, jobs)

	resp, body := do(t, http.MethodPost, ts.URL+"/jobs", `{"urls":["https://a.test"," ","https://b.test"]}`)
	var up UploadResponse
	json.Unmarshal(body, &up)
	if resp.StatusCode != http.StatusAccepted || up.TotalRows != 2 || up.JobID == "" {
		t.Fatalf("unexpected upload reply %d %s", resp.StatusCode, body)
	}
	if len(jobs.pushed) != 2 || jobs.pushed[0].JobID != up.JobID {
		t.Errorf("unexpected tasks %+v", jobs.pushed)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/jobs/"+up.JobID, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"pending"`) {
		t.Errorf("unexpected status reply %d %s", resp.StatusCode, body)
	}

	_, body = do(t, http.MethodGet, ts.URL+"/jobs/"+up.JobID+"/results", "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/jobs/missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job should be 404, got %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/jobs", `{"urls":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty job should be 400, got %d", resp.StatusCode)
	}
}

func TestCSVUpload(t *testing.T) {
	jobs := newMemoryJobs()
	_, ts := newTestServer(t, &stubAnalyzer{}, jobs)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "urls.csv")
	fw.Write([]byte("https://a.test,first\nhttps://b.test\n\n"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/jobs", &buf)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted || len(jobs.pushed) != 2 {
		t.Errorf("unexpected upload: %d, %d tasks", resp.StatusCode, len(jobs.pushed))
	}
}

func TestJobsDisabledWithoutBackends(t *testing.T) {
	_, ts := newTestServer(t, &stubAnalyzer{}, nil)

	resp, _ := do(t, http.MethodPost, ts.URL+"/jobs", `{"urls":["https://a.test"]}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}
