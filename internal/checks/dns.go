package checks

import (
	"context"
	"errors"
	"net/netip"
	"net/url"
	"strings"

	"phishguard/internal/lookup"
	"phishguard/internal/models"
)

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("0.0.0.0/8"),
}

// IsPrivateIP reports whether ip falls in a private, loopback or
// "this network" IPv4 range. Unparseable input is not private.
func IsPrivateIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// DNS flags public hostnames that resolve into private address space.
type DNS struct {
	Resolver lookup.Resolver
}

func (*DNS) Name() string { return "DNS Resolution Check" }
func (*DNS) Description() string {
	return "Analyzes DNS resolution for suspicious patterns and private IP ranges"
}
func (*DNS) Weight() int  { return 25 }
func (*DNS) IsFast() bool { return false }

func (c *DNS) Evaluate(ctx context.Context, rawURL string) models.CheckResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return result(c, models.Unknown, "Unable to perform DNS resolution check")
	}
	host := u.Hostname()

	var ips []string
	if _, err := netip.ParseAddr(host); err == nil {
		ips = []string{host}
	} else {
		if c.Resolver == nil {
			return result(c, models.Unknown, "Unable to perform DNS resolution check")
		}
		ips, err = c.Resolver.LookupA(ctx, host)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, lookup.ErrNoRecords) {
				msg = "No DNS records found"
			}
			return result(c, models.Unknown, "DNS resolution failed: "+msg)
		}
	}

	var suspicious []string
	for _, ip := range ips {
		if IsPrivateIP(ip) {
			suspicious = append(suspicious, ip)
		}
	}
	if len(suspicious) > 0 {
		return result(c, models.Malicious, "Resolves to suspicious IP range(s): "+strings.Join(suspicious, ", "))
	}
	return result(c, models.Safe, "Resolves to public IP(s): "+strings.Join(ips, ", "))
}

func (*DNS) Recommend(r models.CheckResult) string {
	switch {
	case r.Classification == models.Safe:
		return ""
	case strings.HasPrefix(r.Message, "Unable to perform"):
		return "Could not analyze the DNS resolution for this site. Consider using caution."
	case strings.HasPrefix(r.Message, "DNS resolution failed"):
		return "DNS resolution issues detected. The domain may be misconfigured or recently registered."
	default:
		return "This site resolves to suspicious IP addresses, suggesting it may be part of a phishing campaign."
	}
}

func (*DNS) Explain(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	if r.Classification == models.Malicious {
		return `This public domain points at a private or reserved IP address such as 10.x.x.x, 172.16-31.x.x, 192.168.x.x or 127.x.x.x.

Those ranges belong to internal networks and are almost never used by real public websites. It can mean DNS rebinding aimed at devices on your own network, tampered DNS records, or a badly misconfigured host.`
	}
	return `We could not resolve this domain to an address.

The domain may be newly registered, misconfigured or already taken down. Newly created domains are common in phishing campaigns, but resolution failures also happen with legitimate sites.`
}
