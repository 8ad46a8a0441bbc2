package checks

import (
	"context"
	"net/url"
	"strings"

	"phishguard/internal/models"
)

// HTTPS flags origins served over plain HTTP.
type HTTPS struct{}

func (HTTPS) Name() string        { return "HTTPS Check" }
func (HTTPS) Description() string { return "Checks if the site uses a secure HTTPS connection." }
func (HTTPS) Weight() int         { return 10 }
func (HTTPS) IsFast() bool        { return true }

func (c HTTPS) Evaluate(ctx context.Context, rawURL string) models.CheckResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return result(c, models.Unknown, "Invalid URL")
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return result(c, models.Malicious, "Site does not use HTTPS")
	}
	return result(c, models.Safe, "Site uses HTTPS")
}

func (HTTPS) Recommend(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return "This site does not use secure HTTPS. Avoid entering sensitive information like passwords or credit card details."
}

func (HTTPS) Explain(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return `HTTPS encrypts everything exchanged between your browser and the website.

This website uses plain HTTP. Anyone on the network path, for example on public Wi-Fi, can read or alter passwords, card numbers and other data you send.

Legitimate sites that handle any user data serve HTTPS by default, and browsers mark HTTP pages as "Not Secure".`
}
