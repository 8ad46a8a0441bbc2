package checks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"phishguard/internal/lookup"
	"phishguard/internal/models"
)

// ExpiryWarning is how close to notAfter a certificate counts as expiring.
const ExpiryWarning = 14 * 24 * time.Hour

const (
	issuePoorRating   = "Poor SSL rating"
	issueExpired      = "Certificate has expired"
	issueExpiresSoon  = "Certificate expires soon"
	issueChainProblem = "Certificate chain has trust issues"
)

// Certificate delegates TLS evaluation to an external rating service.
type Certificate struct {
	Rater TLSRater
	Now   func() time.Time
}

func (*Certificate) Name() string { return "Certificate Validity Check" }
func (*Certificate) Description() string {
	return "Verifies the SSL certificate's issuer, expiration date, and other security attributes"
}
func (*Certificate) Weight() int  { return 25 }
func (*Certificate) IsFast() bool { return false }

func (c *Certificate) Evaluate(ctx context.Context, rawURL string) models.CheckResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return result(c, models.Unknown, "Unable to verify certificate")
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return result(c, models.Malicious, "Site does not use HTTPS, certificate cannot be verified")
	}
	if c.Rater == nil {
		return result(c, models.Unknown, "Unable to verify certificate")
	}

	report, err := c.Rater.Assess(ctx, u.Hostname())
	if err != nil {
		log.Printf("[CertificateCheck] %s: %v", u.Hostname(), err)
		if errors.Is(err, lookup.ErrAssessmentFailed) {
			return result(c, models.Unknown, "Unable to retrieve certificate information")
		}
		return result(c, models.Unknown, "Unable to verify certificate")
	}
	if len(report.Endpoints) == 0 {
		return result(c, models.Unknown, "Unable to retrieve certificate information")
	}

	if issues := c.issues(report); len(issues) > 0 {
		return result(c, models.Malicious, "Certificate issues detected: "+strings.Join(issues, ", "))
	}
	return result(c, models.Safe, "SSL certificate is valid and trusted")
}

// issues inspects every endpoint and reports each problem once.
func (c *Certificate) issues(report *lookup.SSLReport) []string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()

	seen := make(map[string]bool)
	var out []string
	add := func(issue string) {
		if !seen[issue] {
			seen[issue] = true
			out = append(out, issue)
		}
	}

	for _, ep := range report.Endpoints {
		if ep.Grade == "F" || ep.Grade == "T" {
			add(fmt.Sprintf("%s: %s", issuePoorRating, ep.Grade))
		}
		if ep.Details == nil {
			continue
		}
		if cert := ep.Details.Cert; cert != nil && cert.NotAfter > 0 {
			expiry := cert.Expiry()
			switch {
			case expiry.Before(t):
				add(issueExpired)
			case expiry.Before(t.Add(ExpiryWarning)):
				add(issueExpiresSoon)
			}
		}
		if ep.Details.ChainIssues > 0 {
			add(issueChainProblem)
		}
	}
	return out
}

func (*Certificate) Recommend(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	switch m := r.Message; {
	case strings.Contains(m, "Unable to"):
		return "Could not validate the security certificate for this site. Consider using caution."
	case strings.Contains(m, "does not use HTTPS"):
		return "This site does not use HTTPS. Avoid entering sensitive information like passwords or credit card details."
	case strings.Contains(m, issueExpired):
		return "This site's security certificate has expired. This could indicate the site is abandoned or poorly maintained, increasing security risk."
	case strings.Contains(m, issueExpiresSoon):
		return "This site's security certificate is about to expire. While not immediately dangerous, it shows poor maintenance."
	case strings.Contains(m, issueChainProblem):
		return "This site uses a certificate that isn't fully trusted. This could indicate a man-in-the-middle attack or improper configuration."
	case strings.Contains(m, issuePoorRating):
		return "This site's SSL configuration is weak and vulnerable to known attacks. Your connection may not be secure."
	}
	return "There are issues with this site's security certificate. Your connection may not be secure."
}

func (*Certificate) Explain(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	switch m := r.Message; {
	case strings.Contains(m, "does not use HTTPS"):
		return `This website does not use HTTPS, so there is no certificate to verify. Data travels in plain text and nothing proves the site is who it claims to be.`
	case strings.Contains(m, issueExpired):
		return `This website's TLS certificate has expired.

Certificates must be renewed regularly. An expired one points to an abandoned or neglected site, and browsers can no longer confirm the connection is authentic.`
	case strings.Contains(m, issueExpiresSoon):
		return `This website's TLS certificate expires within two weeks. It is still valid today, but owners normally renew well ahead of time.`
	case strings.Contains(m, issueChainProblem):
		return `The certificate chain for this website is not fully trusted.

The certificate may be self-signed, issued by an unknown authority, missing intermediates, or issued for another domain. This is how a man-in-the-middle attack looks to a browser.`
	case strings.Contains(m, issuePoorRating):
		return `The TLS configuration of this website received a failing grade.

It may allow outdated protocols or weak ciphers, or be vulnerable to known attacks, so the encrypted connection may not protect your data.`
	}
	return `We could not complete a verification of this website's certificate. The rating service did not return a result in time or reported an error. This does not mean the site is unsafe.`
}
