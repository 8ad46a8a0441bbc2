package checks

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"phishguard/internal/models"
)

type brandPattern struct {
	real string
	fake *regexp.Regexp
}

var commonBrands = []brandPattern{
	{"google", regexp.MustCompile(`(?i)g[o0]{2,}gle|go{2,}gle|goog[l1]e`)},
	{"facebook", regexp.MustCompile(`(?i)faceb[o0]{2,}k|facebo{2,}k`)},
	{"microsoft", regexp.MustCompile(`(?i)micr[o0]s[o0]ft|micro{2,}s[o0]ft`)},
	{"paypal", regexp.MustCompile(`(?i)payp[a@]l|p[a@]ypal`)},
	{"amazon", regexp.MustCompile(`(?i)am[a@]z[o0]n`)},
	{"apple", regexp.MustCompile(`(?i)[a@]ppl[e3]`)},
	{"netflix", regexp.MustCompile(`(?i)n[e3]tfl[i1]x`)},
	{"twitter", regexp.MustCompile(`(?i)tw[i1]tt[e3]r`)},
}

// Brand detects look-alike spellings of well-known brands in the hostname.
// A hostname that contains the real brand name is never flagged for it.
type Brand struct{}

func (Brand) Name() string { return "Brand Impersonation Check" }
func (Brand) Description() string {
	return "Detects attempts to impersonate well-known brands through URL manipulation"
}
func (Brand) Weight() int  { return 25 }
func (Brand) IsFast() bool { return true }

func (c Brand) Evaluate(ctx context.Context, rawURL string) models.CheckResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return result(c, models.Unknown, "Unable to analyze URL for brand impersonation")
	}

	if brands := ImpersonatedBrands(u.Hostname()); len(brands) > 0 {
		return result(c, models.Malicious, "Possible impersonation of: "+strings.Join(brands, ", "))
	}
	return result(c, models.Safe, "No brand impersonation detected")
}

// ImpersonatedBrands lists the brands whose look-alike pattern matches host.
func ImpersonatedBrands(host string) []string {
	host = strings.ToLower(host)
	var found []string
	for _, b := range commonBrands {
		if !strings.Contains(host, b.real) && b.fake.MatchString(host) {
			found = append(found, b.real)
		}
	}
	return found
}

func (Brand) Recommend(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return "This site may be impersonating a legitimate brand. Double-check the URL carefully and consider visiting the official site directly."
}

func (Brand) Explain(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return `The domain of this URL closely resembles a well-known brand without actually being it.

Phishing sites copy the look of a real service and register a domain that is one character off, such as "amaz0n" or "g00gle". At a glance the address looks right.

For banking, shopping or email, type the address yourself or use a bookmark instead of following links.`
}
