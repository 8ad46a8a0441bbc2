package checks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"phishguard/internal/lookup"
	"phishguard/internal/models"
)

// VirusTotal asks a multi-engine reputation service about the URL. A scan
// that never completes is treated as suspicious.
type VirusTotal struct {
	Scanner ReputationScanner
}

func (*VirusTotal) Name() string { return "VirusTotal Check" }
func (*VirusTotal) Description() string {
	return "Scans the URL using VirusTotal to check for known threats."
}
func (*VirusTotal) Weight() int  { return 50 }
func (*VirusTotal) IsFast() bool { return false }

func (c *VirusTotal) Evaluate(ctx context.Context, url string) models.CheckResult {
	if c.Scanner == nil {
		return result(c, models.Unknown, "Failed to submit URL to VirusTotal")
	}

	id, err := c.Scanner.Submit(ctx, url)
	if err != nil {
		log.Printf("[VirusTotalCheck] submit %s: %v", url, err)
		return result(c, models.Unknown, "Failed to submit URL to VirusTotal")
	}

	stats, err := c.Scanner.Await(ctx, id)
	switch {
	case errors.Is(err, lookup.ErrAnalysisPending):
		return result(c, models.Malicious, "Unable to verify safety - treating as suspicious")
	case err != nil:
		log.Printf("[VirusTotalCheck] poll %s: %v", id, err)
		return result(c, models.Unknown, "Error contacting VirusTotal API")
	}

	if stats.Clean() {
		return result(c, models.Safe, fmt.Sprintf("Site appears safe (%d trusted sources)", stats.Harmless))
	}
	return result(c, models.Malicious, fmt.Sprintf("Warning: %d malicious, %d suspicious detections", stats.Malicious, stats.Suspicious))
}

func (*VirusTotal) Recommend(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	switch m := r.Message; {
	case strings.Contains(m, "Unable to verify safety"):
		return "VirusTotal could not complete the scan in time. This doesn't necessarily mean the site is unsafe, but you should proceed with caution."
	case strings.Contains(m, "Failed to submit"):
		return "Unable to check this URL with VirusTotal. Consider using alternative security tools to verify this site."
	case strings.Contains(m, "Error contacting"):
		return "Connection to VirusTotal failed. This is a technical issue with our service rather than a problem with the website."
	}
	return "This URL has been flagged by multiple security services as potentially harmful. Visiting it may put your device or personal information at risk."
}

func (*VirusTotal) Explain(r models.CheckResult) string {
	if r.Classification == models.Safe {
		return ""
	}
	switch m := r.Message; {
	case strings.Contains(m, "Unable to verify safety"):
		return `VirusTotal did not finish analysing this URL within our time limit.

New URLs are sometimes still queued, or the service is busy. Because this is our most authoritative signal, an incomplete scan counts against the site until it can be confirmed.`
	case strings.Contains(m, "Failed to submit"), strings.Contains(m, "Error contacting"):
		return `We could not get an answer from VirusTotal for this URL because of an API, quota or network problem on our side. It says nothing about the site itself.`
	}

	var malicious, suspicious int
	fmt.Sscanf(r.Message, "Warning: %d malicious, %d suspicious", &malicious, &suspicious)
	return fmt.Sprintf(`VirusTotal checks URLs against dozens of antivirus engines, blocklists and reputation services.

This URL was reported as malicious by %d and suspicious by %d of them. Independent detections from several engines are a strong indication of phishing or malware.`, malicious, suspicious)
}
