package checks

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"phishguard/internal/lookup"
	"phishguard/internal/models"
)

// MaxRedirects is the longest chain considered normal.
const MaxRedirects = 2

// Redirect walks the redirect chain with HEAD requests.
type Redirect struct {
	Client  *http.Client
	MaxHops int
	Budget  time.Duration
}

func (*Redirect) Name() string        { return "Redirect Chain Analysis" }
func (*Redirect) Description() string { return "Analyzes URL redirect chains for suspicious patterns" }
func (*Redirect) Weight() int         { return 20 }
func (*Redirect) IsFast() bool        { return false }

func (c *Redirect) Evaluate(ctx context.Context, url string) models.CheckResult {
	if c.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Budget)
		defer cancel()
	}

	hops, err := lookup.FollowRedirects(ctx, c.Client, url, c.MaxHops)
	if err != nil {
		log.Printf("[RedirectCheck] %s: %v", url, err)
		return result(c, models.Unknown, "Unable to analyze redirect chain")
	}

	if len(hops) > MaxRedirects {
		return result(c, models.Malicious, fmt.Sprintf("Suspicious redirect chain detected (%d redirects)", len(hops)))
	}
	return result(c, models.Safe, fmt.Sprintf("Normal redirect pattern (%d redirects)", len(hops)))
}

func (*Redirect) Recommend(r models.CheckResult) string {
	switch r.Classification {
	case models.Safe:
		return ""
	case models.Unknown:
		return "Could not analyze the redirect chain for this URL. Consider using caution if you're unfamiliar with the site."
	default:
		return "This URL involves multiple redirects, which can be a sign of a phishing attempt."
	}
}

func (*Redirect) Explain(r models.CheckResult) string {
	switch r.Classification {
	case models.Safe:
		return ""
	case models.Unknown:
		return `We could not follow the redirects of this URL. The site did not answer or refused the request, so we cannot tell where the link finally leads.`
	default:
		return fmt.Sprintf(`This URL bounces through more than %d redirects before reaching its destination.

Long redirect chains are a common way to hide the final page from security filters, often by passing through URL shorteners or throwaway domains.`, MaxRedirects)
	}
}
