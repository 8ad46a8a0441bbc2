package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/miekg/dns"
	gocache "github.com/patrickmn/go-cache"
)

// ErrNoRecords means the name resolved but carried no A records.
var ErrNoRecords = errors.New("no DNS records found")

// Resolver returns the IPv4 addresses of a hostname.
type Resolver interface {
	LookupA(ctx context.Context, host string) ([]string, error)
}

const DefaultDoHEndpoint = "https://dns.google/resolve"

// DoHResolver speaks the JSON flavour of DNS-over-HTTPS
// (GET <endpoint>?name=<host>&type=A).
type DoHResolver struct {
	Endpoint string
	Client   *http.Client

	memo   *gocache.Cache
	maxTTL time.Duration
}

func NewDoHResolver(endpoint string, client *http.Client) *DoHResolver {
	if endpoint == "" {
		endpoint = DefaultDoHEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DoHResolver{
		Endpoint: endpoint,
		Client:   client,
		memo:     gocache.New(5*time.Minute, 10*time.Minute),
		maxTTL:   5 * time.Minute,
	}
}

type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		TTL  int    `json:"TTL"`
		Data string `json:"data"`
	} `json:"Answer"`
}

func (r *DoHResolver) LookupA(ctx context.Context, host string) ([]string, error) {
	if cached, found := r.memo.Get(host); found {
		return cached.([]string), nil
	}

	q := url.Values{}
	q.Set("name", host)
	q.Set("type", "A")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DoH request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH resolver returned status %d", resp.StatusCode)
	}

	var body dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode DoH response: %w", err)
	}

	var ips []string
	ttl := r.maxTTL
	for _, ans := range body.Answer {
		if ans.Type != int(dns.TypeA) {
			continue
		}
		ips = append(ips, ans.Data)
		if d := time.Duration(ans.TTL) * time.Second; d > 0 && d < ttl {
			ttl = d
		}
	}
	if len(ips) == 0 {
		return nil, ErrNoRecords
	}

	r.memo.Set(host, ips, ttl)
	return ips, nil
}

// UDPResolver queries a DNS server directly over UDP.
type UDPResolver struct {
	Server string
	client *dns.Client
}

// NewUDPResolver targets server ("host:port"). An empty server falls back
// to the first nameserver in /etc/resolv.conf, then to 8.8.8.8:53.
func NewUDPResolver(server string, timeout time.Duration) *UDPResolver {
	if server == "" {
		server = "8.8.8.8:53"
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
			server = net.JoinHostPort(conf.Servers[0], conf.Port)
		}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second // Fail fast if DNS is slow
	}
	return &UDPResolver{
		Server: server,
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}
}

func (r *UDPResolver) LookupA(ctx context.Context, host string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.Server)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("DNS lookup failed: %s", dns.RcodeToString[resp.Rcode])
	}

	var ips []string
	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			ips = append(ips, a.A.String())
		}
	}
	if len(ips) == 0 {
		return nil, ErrNoRecords
	}
	return ips, nil
}
