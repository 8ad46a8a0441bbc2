package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"phishguard/internal/checks"
	"phishguard/internal/models"
	"phishguard/internal/urlutil"
)

// EarlyExitThreshold is the number of malicious fast results that makes
// the deep checks pointless.
const EarlyExitThreshold = 2

// Reporter receives the aggregate status of every analysis. Report must
// not block the caller.
type Reporter interface {
	Report(url string, status models.Classification)
}

type Options struct {
	// FastOnly skips the deep (network-bound) checks.
	FastOnly bool
	// EarlyExit stops after the fast batch once EarlyExitThreshold checks
	// came back malicious.
	EarlyExit bool
}

type Config struct {
	// DeepBudget caps the wall-clock time of the deep batch. Zero leaves
	// each check to its own limits.
	DeepBudget time.Duration
}

type Analyzer struct {
	registry checks.Registry
	reporter Reporter
	cfg      Config
}

func New(registry checks.Registry, reporter Reporter, cfg Config) *Analyzer {
	return &Analyzer{
		registry: registry,
		reporter: reporter,
		cfg:      cfg,
	}
}

// Analyze runs the full pipeline without early exit.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, fastOnly bool) (models.AnalysisSummary, error) {
	return a.Run(ctx, rawURL, Options{FastOnly: fastOnly})
}

// Run sanitizes rawURL, evaluates the checks and reports the aggregate
// status. The only errors returned are urlutil input errors.
func (a *Analyzer) Run(ctx context.Context, rawURL string, opts Options) (models.AnalysisSummary, error) {
	origin, err := urlutil.Sanitize(rawURL)
	if err != nil {
		return models.AnalysisSummary{}, err
	}
	start := time.Now()

	fastResults := runBatch(ctx, a.registry.Fast, origin)

	var deepChecks []checks.Check
	var deepResults []models.CheckResult
	earlyExit := false

	switch {
	case opts.EarlyExit && countOf(fastResults, models.Malicious) >= EarlyExitThreshold:
		earlyExit = true
		log.Printf("[Analyzer] %s: early exit after fast checks", origin)
	case !opts.FastOnly:
		deepCtx := ctx
		if a.cfg.DeepBudget > 0 {
			var cancel context.CancelFunc
			deepCtx, cancel = context.WithTimeout(ctx, a.cfg.DeepBudget)
			defer cancel()
		}
		deepChecks = a.registry.Deep
		deepResults = runBatch(deepCtx, deepChecks, origin)
	}

	summary := summarize(origin, a.registry.Fast, fastResults, deepChecks, deepResults)
	summary.EarlyExit = earlyExit
	summary.Duration = time.Since(start).Round(time.Millisecond).String()

	if a.reporter != nil {
		a.reporter.Report(origin, summary.Status)
	}
	return summary, nil
}

// CheckWebsite is the reduced answer used by the navigation path.
func (a *Analyzer) CheckWebsite(ctx context.Context, rawURL string) models.ScanResponse {
	summary, err := a.Run(ctx, rawURL, Options{EarlyExit: true})
	switch {
	case errors.Is(err, urlutil.ErrEmptyURL):
		return models.ScanResponse{IsSafe: false, Message: "Empty URL provided"}
	case err != nil:
		return models.ScanResponse{IsSafe: false, Message: "Invalid URL format"}
	}

	return models.ScanResponse{
		IsSafe:  summary.Status == models.Safe,
		Message: summary.Message,
		Details: &models.ScanDetails{
			Harmless:   summary.Passed,
			Malicious:  summary.Malicious,
			Suspicious: 0,
			Undetected: summary.Unknown,
		},
	}
}

// runBatch evaluates every check concurrently. results[i] belongs to
// list[i] regardless of completion order.
func runBatch(ctx context.Context, list []checks.Check, url string) []models.CheckResult {
	results := make([]models.CheckResult, len(list))

	var wg sync.WaitGroup
	for i, c := range list {
		wg.Add(1)
		go func(i int, c checks.Check) {
			defer wg.Done()
			results[i] = evaluate(ctx, c, url)
		}(i, c)
	}
	wg.Wait()

	return results
}

func evaluate(ctx context.Context, c checks.Check, url string) (r models.CheckResult) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[ERROR] check %s panicked on %s: %v", c.Name(), url, p)
			r = models.CheckResult{
				Name:           c.Name(),
				Message:        fmt.Sprintf("Check failed: %v", p),
				Classification: models.Unknown,
			}
		}
	}()

	r = c.Evaluate(ctx, url)
	if !r.Classification.Valid() {
		r.Classification = models.Unknown
	}
	if r.Name == "" {
		r.Name = c.Name()
	}
	return r
}
