package proxy

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// Manager rotates outbound deep-check connections over a SOCKS5 pool and
// caps how many of them are open at once.
type Manager struct {
	proxies []*url.URL
	counter uint64
	slots   chan struct{}
	timeout time.Duration
}

// New parses the proxy list and sizes the connection semaphore. A limit of
// zero defaults to the number of proxies.
func New(proxyList []string, limit int) (*Manager, error) {
	var parsed []*url.URL

	for _, p := range proxyList {
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL '%s': %w", p, err)
		}
		if u.Scheme != "socks5" && u.Scheme != "socks5h" {
			return nil, fmt.Errorf("unsupported proxy scheme '%s' in '%s'", u.Scheme, p)
		}
		parsed = append(parsed, u)
	}

	if limit <= 0 {
		limit = len(parsed)
		if limit == 0 {
			limit = 10 // Failsafe
		}
	}

	return &Manager{
		proxies: parsed,
		slots:   make(chan struct{}, limit),
		timeout: 10 * time.Second,
	}, nil
}

func (m *Manager) Next() *url.URL {
	if m == nil || len(m.proxies) == 0 {
		return nil
	}
	n := atomic.AddUint64(&m.counter, 1)
	return m.proxies[(n-1)%uint64(len(m.proxies))]
}

func (m *Manager) Enabled() bool {
	return m != nil && len(m.proxies) > 0
}

// InUse reports how many proxied connections currently hold a slot.
func (m *Manager) InUse() int {
	if m == nil {
		return 0
	}
	return len(m.slots)
}

// Transport builds an http.Transport whose connections go through the pool.
// Keep-alives are off when proxying so idle connections never pin a slot.
func (m *Manager) Transport() *http.Transport {
	t := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
	if m.Enabled() {
		t.DialContext = m.DialContext
		t.DisableKeepAlives = true
	} else {
		t.DialContext = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
		t.Proxy = http.ProxyFromEnvironment
	}
	return t
}
