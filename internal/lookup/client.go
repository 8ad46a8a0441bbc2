package lookup

import (
	"math/rand"
	"net/http"
	"time"

	"phishguard/internal/proxy"
)

// Clients bundles the outbound HTTP clients used by the deep checks. Both
// share one transport and therefore one connection pool.
type Clients struct {
	Default *http.Client
	// NoRedirect returns 3xx responses as is; the redirect check walks the
	// chain itself.
	NoRedirect *http.Client
}

// NewClients builds the shared clients. A nil or empty proxy manager means
// direct connections.
func NewClients(pm *proxy.Manager) *Clients {
	transport := &userAgentTransport{base: pm.Transport()}

	return &Clients{
		Default: &http.Client{
			Timeout:   20 * time.Second,
			Transport: transport,
		},
		NoRedirect: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Transport: transport,
		},
	}
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func getRandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// userAgentTransport fills in a browser User-Agent when the caller set none.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", getRandomUserAgent())
	}
	return t.base.RoundTrip(req)
}
