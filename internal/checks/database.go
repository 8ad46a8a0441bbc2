package checks

import (
	"context"

	"phishguard/internal/models"
)

// Database returns the stored verdict for the URL, if any.
type Database struct {
	Store VerdictLookup
}

func (*Database) Name() string { return "Database Check" }
func (*Database) Description() string {
	return "Checks if the URL is already known in our database as safe, malicious, or unknown."
}
func (*Database) Weight() int  { return 40 }
func (*Database) IsFast() bool { return true }

func (c *Database) Evaluate(ctx context.Context, url string) models.CheckResult {
	if c.Store == nil {
		return result(c, models.Unknown, "URL not found in database")
	}

	status, found := c.Store.Lookup(ctx, url)
	if !found {
		return result(c, models.Unknown, "URL not found in database")
	}

	switch status {
	case models.Safe:
		return result(c, models.Safe, "URL is marked as safe in our database")
	case models.Malicious:
		return result(c, models.Malicious, "URL is marked as malicious in our database")
	default:
		return result(c, models.Unknown, "URL not found in database")
	}
}

func (*Database) Recommend(r models.CheckResult) string {
	switch r.Classification {
	case models.Safe:
		return ""
	case models.Malicious:
		return "This URL has been previously identified as malicious in our database. Avoid accessing this site."
	default:
		return "This check was inconclusive. Consider using other security indicators to evaluate this site."
	}
}

func (*Database) Explain(r models.CheckResult) string {
	switch r.Classification {
	case models.Safe:
		return ""
	case models.Malicious:
		return `This URL is recorded in our database as malicious.

Entries come from earlier analyses that found the site hosting phishing pages, distributing malware or running scams. A stored malicious verdict is one of the strongest signals we have.`
	default:
		return `We have no reliable history for this URL.

It was either never analysed before or the database could not be reached. This alone says nothing about the site; the other checks decide the overall assessment.`
	}
}
