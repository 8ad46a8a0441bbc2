package checks

import (
	"context"
	"fmt"
	"regexp"

	"phishguard/internal/models"
)

var (
	percentEncoded = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	// printable ASCII needs no encoding; hiding it is a red flag
	encodedPrintable = regexp.MustCompile(`%[2-7][0-9A-Fa-f]`)
)

// MaxEncoded is the number of percent-escapes tolerated in a URL.
const MaxEncoded = 3

type Encoding struct{}

func (Encoding) Name() string { return "URL Encoding Analysis" }
func (Encoding) Description() string {
	return "Detects suspicious URL encoding patterns that might hide malicious content"
}
func (Encoding) Weight() int  { return 15 }
func (Encoding) IsFast() bool { return true }

func (c Encoding) Evaluate(ctx context.Context, rawURL string) models.CheckResult {
	count := len(percentEncoded.FindAllString(rawURL, -1))
	if count > MaxEncoded || encodedPrintable.MatchString(rawURL) {
		return result(c, models.Malicious, fmt.Sprintf("Suspicious URL encoding detected (%d encoded characters)", count))
	}
	return result(c, models.Safe, "Normal URL encoding pattern")
}

func (Encoding) Recommend(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return "Unusual encoding in this URL could be hiding malicious content. Exercise caution."
}

func (Encoding) Explain(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	return `This URL uses percent-encoding in ways commonly seen in disguised links.

Suspicious patterns include:
- encoding ordinary letters and digits that never need it
- long runs of escapes such as %2F%2E%2E
- double-encoded sequences

Attackers use these tricks to slip past filters and to hide where a link really goes.`
}
