package urlutil

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL   = errors.New("empty URL provided")
	ErrInvalidURL = errors.New("invalid URL format")
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Sanitize reduces a raw URL to its origin (scheme://host[:port]).
// Path, query, fragment and userinfo are discarded; a missing scheme
// defaults to https.
func Sanitize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	host := u.Hostname()
	if u.Scheme == "" || host == "" {
		return "", ErrInvalidURL
	}

	scheme := strings.ToLower(u.Scheme)
	host = canonicalHost(host)

	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}

	if port != "" {
		return scheme + "://" + net.JoinHostPort(host, port), nil
	}
	if strings.Contains(host, ":") {
		// IPv6 literal
		return scheme + "://[" + host + "]", nil
	}
	return scheme + "://" + host, nil
}

// Hostname returns the host part of rawURL, or rawURL itself when it does
// not parse.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}

func canonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	// Hosts that fail strict IDNA rules (underscores etc.) are still usable
	// origins, so fall back to the lower-cased form.
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		return ascii
	}
	return host
}
