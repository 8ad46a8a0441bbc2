package checks

import (
	"context"
	"time"

	"phishguard/internal/lookup"
	"phishguard/internal/models"
)

// Check is one independent signal about a URL. Evaluate never fails: any
// problem it hits is reported as models.Unknown.
type Check interface {
	Name() string
	Description() string
	Weight() int
	IsFast() bool
	Evaluate(ctx context.Context, url string) models.CheckResult
}

// Explainer is implemented by checks that can describe a non-safe result
// in detail.
type Explainer interface {
	Explain(result models.CheckResult) string
}

// Recommender is implemented by checks that give the user short advice for
// a non-safe result.
type Recommender interface {
	Recommend(result models.CheckResult) string
}

// VerdictLookup reads a stored classification for a canonical URL.
type VerdictLookup interface {
	Lookup(ctx context.Context, url string) (models.Classification, bool)
}

// TLSRater runs an external TLS assessment of a host.
type TLSRater interface {
	Assess(ctx context.Context, host string) (*lookup.SSLReport, error)
}

// ReputationScanner submits a URL to a multi-engine scanner and waits for
// the verdict.
type ReputationScanner interface {
	Submit(ctx context.Context, url string) (string, error)
	Await(ctx context.Context, id string) (lookup.AnalysisStats, error)
}

// Registry holds the checks in evaluation order.
type Registry struct {
	Fast []Check
	Deep []Check
}

// All returns fast checks followed by deep checks.
func (r Registry) All() []Check {
	all := make([]Check, 0, len(r.Fast)+len(r.Deep))
	all = append(all, r.Fast...)
	return append(all, r.Deep...)
}

type Deps struct {
	Verdicts   VerdictLookup
	Clients    *lookup.Clients
	Resolver   lookup.Resolver
	TLS        TLSRater
	Reputation ReputationScanner
	Now        func() time.Time
}

// Default wires the standard check set.
func Default(d Deps) Registry {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Clients == nil {
		d.Clients = lookup.NewClients(nil)
	}
	return Registry{
		Fast: []Check{
			HTTPS{},
			&Database{Store: d.Verdicts},
			Entropy{},
			Encoding{},
			Brand{},
		},
		Deep: []Check{
			&Redirect{Client: d.Clients.NoRedirect, MaxHops: 5, Budget: 30 * time.Second},
			&DNS{Resolver: d.Resolver},
			&Certificate{Rater: d.TLS, Now: d.Now},
			&VirusTotal{Scanner: d.Reputation},
		},
	}
}

func result(c Check, cls models.Classification, message string) models.CheckResult {
	return models.CheckResult{
		Name:           c.Name(),
		Message:        message,
		Classification: cls,
	}
}
