package checks

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"phishguard/internal/lookup"
	"phishguard/internal/models"
)

func TestFastChecks(t *testing.T) {
	tests := []struct {
		name  string
		check Check
		url   string
		want  models.Classification
	}{
		{"HTTPS ok", HTTPS{}, "https://example.com", models.Safe},
		{"HTTPS plain", HTTPS{}, "http://example.com", models.Malicious},
		{"HTTPS no scheme", HTTPS{}, "example", models.Unknown},

		{"Entropy normal", Entropy{}, "https://example.com", models.Safe},
		{"Entropy random host", Entropy{}, "https://x7kq9zp2mv4bw8rt1yhj3nc6.com", models.Malicious},
		{"Entropy repeated char", Entropy{}, "aaaaaaaaaa", models.Safe},
		{"Entropy hex token", Entropy{}, "https://9f8e7d6c5b4a39281706f5e4d3c2b1a0.example.com", models.Malicious},

		{"Encoding none", Encoding{}, "https://example.com", models.Safe},
		{"Encoding printable ascii", Encoding{}, "https://example.com/%41", models.Malicious},
		{"Encoding utf8 pair", Encoding{}, "https://example.com/%C3%A9", models.Safe},
		{"Encoding too many", Encoding{}, "https://example.com/%C3%A9%C3%A9", models.Malicious},
		{"Encoding control byte", Encoding{}, "https://example.com/%1F", models.Safe},

		{"Brand genuine", Brand{}, "https://google.com", models.Safe},
		{"Brand typosquat", Brand{}, "https://g00gle.com", models.Malicious},
		{"Brand login look-alike", Brand{}, "https://goog1e-login.com", models.Malicious},
		{"Brand genuine subdomain", Brand{}, "https://www.google.com", models.Safe},
		{"Brand explained example amaz0n", Brand{}, "https://amaz0n.com", models.Malicious},
		{"Brand explained example g00gle", Brand{}, "https://g00gle.com", models.Malicious},
		{"Brand unrelated", Brand{}, "https://example.com", models.Safe},
		{"Brand no host", Brand{}, "https://", models.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.check.Evaluate(context.Background(), tt.url)
			if r.Classification != tt.want {
				t.Errorf("%s(%q) = %s (%s), want %s", tt.check.Name(), tt.url, r.Classification, r.Message, tt.want)
			}
			if r.Name != tt.check.Name() {
				t.Errorf("result name %q does not match check %q", r.Name, tt.check.Name())
			}
		})
	}
}

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"", 0},
		{"aaaa", 0},
		{"aaaaaaaaaa", 0},
		{"ab", 1},
		{"abcd", 2},
		{"https://example.com", 3.7216},
	}
	for _, tt := range tests {
		if got := ShannonEntropy(tt.input); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("ShannonEntropy(%q) = %.4f, want %.4f", tt.input, got, tt.want)
		}
	}
}

func TestImpersonatedBrands(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"g00gle.com", "google"},
		{"goooogle.com", "google"},
		{"goog1e.com", "google"},
		{"google.com", ""},
		{"mail.google.com", ""},
		{"micr0soft-support.com", "microsoft"},
		{"amaz0n.co", "amazon"},
		{"netfl1x.com", "netflix"},
		{"tw1tter.com", "twitter"},
		{"appl3.com", "apple"},
		{"apple.com", ""},
		{"FACEB00K.com", "facebook"},
		{"g00gle-amaz0n.com", "google, amazon"},
		{"example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got := strings.Join(ImpersonatedBrands(tt.host), ", ")
			if got != tt.want {
				t.Errorf("ImpersonatedBrands(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

type fakeVerdicts map[string]models.Classification

func (f fakeVerdicts) Lookup(ctx context.Context, url string) (models.Classification, bool) {
	c, ok := f[url]
	return c, ok
}

func TestDatabaseCheck(t *testing.T) {
	c := &Database{Store: fakeVerdicts{
		"https://good.test": models.Safe,
		"https://bad.test":  models.Malicious,
		"https://odd.test":  models.Unknown,
	}}

	tests := []struct {
		url  string
		want models.Classification
	}{
		{"https://good.test", models.Safe},
		{"https://bad.test", models.Malicious},
		{"https://odd.test", models.Unknown},
		{"https://new.test", models.Unknown},
	}
	for _, tt := range tests {
		if got := c.Evaluate(context.Background(), tt.url).Classification; got != tt.want {
			t.Errorf("Database(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}

	if got := (&Database{}).Evaluate(context.Background(), "https://x.test").Classification; got != models.Unknown {
		t.Errorf("expected unknown without a store, got %s", got)
	}
}

type fakeResolver struct {
	ips []string
	err error
}

func (f fakeResolver) LookupA(ctx context.Context, host string) ([]string, error) {
	return f.ips, f.err
}

func TestDNSCheck(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		resolver lookup.Resolver
		want     models.Classification
	}{
		{"Public", "https://example.com", fakeResolver{ips: []string{"93.184.216.34"}}, models.Safe},
		{"Private", "https://intranet.example", fakeResolver{ips: []string{"93.184.216.34", "192.168.1.5"}}, models.Malicious},
		{"Loopback", "https://local.example", fakeResolver{ips: []string{"127.0.0.1"}}, models.Malicious},
		{"No records", "https://void.example", fakeResolver{err: lookup.ErrNoRecords}, models.Unknown},
		{"Resolver down", "https://example.com", fakeResolver{err: errors.New("timeout")}, models.Unknown},
		{"Private literal", "http://10.1.2.3", nil, models.Malicious},
		{"Public literal", "http://8.8.8.8", nil, models.Safe},
		{"No resolver", "https://example.com", nil, models.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &DNS{Resolver: tt.resolver}
			r := c.Evaluate(context.Background(), tt.url)
			if r.Classification != tt.want {
				t.Errorf("got %s (%s), want %s", r.Classification, r.Message, tt.want)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := map[string]bool{
		"10.0.0.1":        true,
		"172.16.0.1":      true,
		"172.31.255.255":  true,
		"172.32.0.1":      false,
		"192.168.0.10":    true,
		"127.0.0.1":       true,
		"0.1.2.3":         true,
		"8.8.8.8":         false,
		"::ffff:10.0.0.1": true,
		"garbage":         false,
	}
	for ip, want := range tests {
		if got := IsPrivateIP(ip); got != want {
			t.Errorf("IsPrivateIP(%q) = %v, want %v", ip, got, want)
		}
	}
}

type fakeRater struct {
	report *lookup.SSLReport
	err    error
	calls  int
}

func (f *fakeRater) Assess(ctx context.Context, host string) (*lookup.SSLReport, error) {
	f.calls++
	return f.report, f.err
}

func endpoint(grade string, notAfter time.Time, chainIssues int) lookup.SSLEndpoint {
	return lookup.SSLEndpoint{
		Grade: grade,
		Details: &lookup.SSLEndpointDetails{
			Cert:        &lookup.SSLCert{NotAfter: notAfter.UnixMilli()},
			ChainIssues: chainIssues,
		},
	}
}

func TestCertificateCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ready := func(eps ...lookup.SSLEndpoint) *lookup.SSLReport {
		return &lookup.SSLReport{Status: "READY", Endpoints: eps}
	}

	tests := []struct {
		name      string
		url       string
		rater     *fakeRater
		want      models.Classification
		wantInMsg string
	}{
		{"Valid", "https://example.com", &fakeRater{report: ready(endpoint("A+", now.AddDate(0, 6, 0), 0))}, models.Safe, "valid"},
		{"Plain HTTP", "http://example.com", &fakeRater{}, models.Malicious, "does not use HTTPS"},
		{"Failing grade", "https://example.com", &fakeRater{report: ready(endpoint("F", now.AddDate(1, 0, 0), 0))}, models.Malicious, "Poor SSL rating: F"},
		{"Expired", "https://example.com", &fakeRater{report: ready(endpoint("A", now.Add(-time.Hour), 0))}, models.Malicious, "expired"},
		{"Expires soon", "https://example.com", &fakeRater{report: ready(endpoint("A", now.AddDate(0, 0, 10), 0))}, models.Malicious, "expires soon"},
		{"Chain issues", "https://example.com", &fakeRater{report: ready(endpoint("B", now.AddDate(1, 0, 0), 2))}, models.Malicious, "trust issues"},
		{"Second endpoint bad", "https://example.com", &fakeRater{report: ready(
			endpoint("A", now.AddDate(1, 0, 0), 0),
			endpoint("T", now.AddDate(1, 0, 0), 0),
		)}, models.Malicious, "Poor SSL rating: T"},
		{"Assessment error", "https://example.com", &fakeRater{err: lookup.ErrAssessmentFailed}, models.Unknown, "Unable to retrieve"},
		{"Never ready", "https://example.com", &fakeRater{err: lookup.ErrAssessmentPending}, models.Unknown, "Unable to verify"},
		{"No endpoints", "https://example.com", &fakeRater{report: ready()}, models.Unknown, "Unable to retrieve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Certificate{Rater: tt.rater, Now: func() time.Time { return now }}
			r := c.Evaluate(context.Background(), tt.url)
			if r.Classification != tt.want {
				t.Errorf("got %s (%s), want %s", r.Classification, r.Message, tt.want)
			}
			if !strings.Contains(r.Message, tt.wantInMsg) {
				t.Errorf("expected message to contain %q, got %q", tt.wantInMsg, r.Message)
			}
		})
	}

	plain := &fakeRater{}
	(&Certificate{Rater: plain}).Evaluate(context.Background(), "http://example.com")
	if plain.calls != 0 {
		t.Error("plain HTTP must not reach the rating service")
	}
}

type fakeScanner struct {
	submitErr error
	stats     lookup.AnalysisStats
	awaitErr  error
}

func (f fakeScanner) Submit(ctx context.Context, url string) (string, error) {
	return "id-1", f.submitErr
}

func (f fakeScanner) Await(ctx context.Context, id string) (lookup.AnalysisStats, error) {
	return f.stats, f.awaitErr
}

func TestVirusTotalCheck(t *testing.T) {
	tests := []struct {
		name    string
		scanner ReputationScanner
		want    models.Classification
		message string
	}{
		{"Clean", fakeScanner{stats: lookup.AnalysisStats{Harmless: 64, Undetected: 8}}, models.Safe, "Site appears safe (64 trusted sources)"},
		{"Flagged", fakeScanner{stats: lookup.AnalysisStats{Harmless: 60, Malicious: 3, Suspicious: 1}}, models.Malicious, "Warning: 3 malicious, 1 suspicious detections"},
		{"Nobody vouches", fakeScanner{stats: lookup.AnalysisStats{Undetected: 70}}, models.Malicious, "Warning: 0 malicious, 0 suspicious detections"},
		{"Poll timeout", fakeScanner{awaitErr: lookup.ErrAnalysisPending}, models.Malicious, "Unable to verify safety - treating as suspicious"},
		{"Cancelled", fakeScanner{awaitErr: context.Canceled}, models.Unknown, "Error contacting VirusTotal API"},
		{"Submit failed", fakeScanner{submitErr: lookup.ErrNoAPIKey}, models.Unknown, "Failed to submit URL to VirusTotal"},
		{"Not configured", nil, models.Unknown, "Failed to submit URL to VirusTotal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &VirusTotal{Scanner: tt.scanner}
			r := c.Evaluate(context.Background(), "https://example.com")
			if r.Classification != tt.want || r.Message != tt.message {
				t.Errorf("got %s %q, want %s %q", r.Classification, r.Message, tt.want, tt.message)
			}
		})
	}
}

func TestVirusTotalExplainCounts(t *testing.T) {
	c := &VirusTotal{}
	text := c.Explain(models.CheckResult{Classification: models.Malicious, Message: "Warning: 7 malicious, 2 suspicious detections"})
	if !strings.Contains(text, "malicious by 7 and suspicious by 2") {
		t.Errorf("explanation does not carry the counts: %q", text)
	}
}

func TestRedirectCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/1", http.StatusFound)
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3", http.StatusFound)
		case "/short":
			http.Redirect(w, r, "/end", http.StatusFound)
		}
	}))
	defer srv.Close()

	c := &Redirect{Client: lookup.NewClients(nil).NoRedirect, MaxHops: 5, Budget: 5 * time.Second}
	ctx := context.Background()

	if r := c.Evaluate(ctx, srv.URL+"/"); r.Classification != models.Malicious {
		t.Errorf("expected 3 redirects to be malicious, got %s (%s)", r.Classification, r.Message)
	}
	if r := c.Evaluate(ctx, srv.URL+"/short"); r.Classification != models.Safe {
		t.Errorf("expected a single redirect to be safe, got %s (%s)", r.Classification, r.Message)
	}
	if r := c.Evaluate(ctx, "http://127.0.0.1:1/"); r.Classification != models.Unknown {
		t.Errorf("expected unreachable host to be unknown, got %s", r.Classification)
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := Default(Deps{})

	wantFast := []string{"HTTPS Check", "Database Check", "Entropy Analysis", "URL Encoding Analysis", "Brand Impersonation Check"}
	wantDeep := []string{"Redirect Chain Analysis", "DNS Resolution Check", "Certificate Validity Check", "VirusTotal Check"}
	wantWeights := map[string]int{
		"HTTPS Check": 10, "Database Check": 40, "Entropy Analysis": 15, "URL Encoding Analysis": 15,
		"Brand Impersonation Check": 25, "Redirect Chain Analysis": 20, "DNS Resolution Check": 25,
		"Certificate Validity Check": 25, "VirusTotal Check": 50,
	}

	if len(reg.Fast) != len(wantFast) || len(reg.Deep) != len(wantDeep) {
		t.Fatalf("unexpected registry sizes: %d fast, %d deep", len(reg.Fast), len(reg.Deep))
	}
	for i, c := range reg.Fast {
		if c.Name() != wantFast[i] || !c.IsFast() {
			t.Errorf("fast[%d] = %s (fast=%v), want %s", i, c.Name(), c.IsFast(), wantFast[i])
		}
	}
	for i, c := range reg.Deep {
		if c.Name() != wantDeep[i] || c.IsFast() {
			t.Errorf("deep[%d] = %s (fast=%v), want %s", i, c.Name(), c.IsFast(), wantDeep[i])
		}
	}
	for _, c := range reg.All() {
		if c.Weight() != wantWeights[c.Name()] {
			t.Errorf("%s weight = %d, want %d", c.Name(), c.Weight(), wantWeights[c.Name()])
		}
		if _, ok := c.(Explainer); !ok {
			t.Errorf("%s should explain non-safe results", c.Name())
		}
		if _, ok := c.(Recommender); !ok {
			t.Errorf("%s should recommend on non-safe results", c.Name())
		}
	}
}

func TestSafeResultsHaveNoExplanation(t *testing.T) {
	for _, c := range Default(Deps{}).All() {
		safe := models.CheckResult{Name: c.Name(), Classification: models.Safe}
		if text := c.(Explainer).Explain(safe); text != "" {
			t.Errorf("%s explained a safe result", c.Name())
		}
		if text := c.(Recommender).Recommend(safe); text != "" {
			t.Errorf("%s recommended on a safe result", c.Name())
		}
	}
}
