// Package engine assembles the analysis pipeline from configuration. Both
// binaries build the same pipeline through it.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"phishguard/internal/analyzer"
	"phishguard/internal/checks"
	"phishguard/internal/config"
	"phishguard/internal/lookup"
	"phishguard/internal/proxy"
	"phishguard/internal/queue"
	"phishguard/internal/store"
	"phishguard/internal/verdict"
)

// VerdictStore is a verdict store that can also enumerate its contents.
type VerdictStore interface {
	verdict.Store
	verdict.Lister
}

type Engine struct {
	Analyzer *analyzer.Analyzer
	Reporter *verdict.Reporter
	Verdicts VerdictStore
	Proxy    *proxy.Manager
}

// Verdicts picks the verdict store: a remote one when cfg names it,
// otherwise Postgres (or memory) behind an optional Redis cache.
func Verdicts(cfg config.Config, pg *store.Postgres, rdb *redis.Client) VerdictStore {
	if cfg.VerdictStoreURL != "" {
		log.Printf("🌐 Using remote verdict store at %s", cfg.VerdictStoreURL)
		return verdict.NewHTTPClient(cfg.VerdictStoreURL, cfg.APIKey)
	}

	var repo verdict.Repository
	if pg != nil {
		repo = pg
	} else {
		log.Println("⚠️  No DB_URL configured. Verdicts are kept in memory.")
		repo = verdict.NewMemoryRepository(time.Now)
	}

	var c verdict.Cache
	if rdb != nil {
		c = queue.NewVerdictCache(rdb)
	}
	return verdict.NewService(repo, c, verdict.DefaultCacheTTL)
}

// Build wires the checks, lookups and reporter around verdicts.
func Build(cfg config.Config, verdicts VerdictStore) (*Engine, error) {
	pm, err := proxy.New(cfg.ProxyList, cfg.ProxyConcurrency)
	if err != nil {
		return nil, fmt.Errorf("proxy manager: %w", err)
	}
	if pm.Enabled() {
		log.Printf("🛡️  Proxy rotation enabled (%d proxies loaded)", len(cfg.ProxyList))
	} else {
		log.Println("⚠️  No proxies configured. Running with direct connections.")
	}

	clients := lookup.NewClients(pm)

	var resolver lookup.Resolver
	switch cfg.DNSMode {
	case config.DNSModeUDP:
		resolver = lookup.NewUDPResolver(cfg.DNSServer, 0)
	default:
		resolver = lookup.NewDoHResolver(cfg.DoHEndpoint, clients.Default)
	}

	if cfg.VirusTotalKey == "" {
		log.Println("⚠️  VIRUSTOTAL_API_KEY not set. Reputation check will be inconclusive.")
	}

	reporter := verdict.NewReporter(verdicts, verdict.ReporterConfig{
		QueueSize: cfg.ReporterQueue,
		Workers:   cfg.ReporterWorkers,
		Timeout:   cfg.ReporterTimeout,
	})

	registry := checks.Default(checks.Deps{
		Verdicts:   verdicts,
		Clients:    clients,
		Resolver:   resolver,
		TLS:        lookup.NewSSLLabs("", cfg.SSLLabsEmail, clients.Default),
		Reputation: lookup.NewVirusTotal("", cfg.VirusTotalKey, clients.Default),
	})

	return &Engine{
		Analyzer: analyzer.New(registry, reporter, analyzer.Config{DeepBudget: cfg.DeepBudget}),
		Reporter: reporter,
		Verdicts: verdicts,
		Proxy:    pm,
	}, nil
}

// Close drains pending verdict reports.
func (e *Engine) Close(ctx context.Context) error {
	err := e.Reporter.Close(ctx)
	stats := e.Reporter.Stats()
	log.Printf("📊 Verdict reports: %d submitted, %d stored, %d failed, %d dropped",
		stats.Submitted, stats.Stored, stats.Failed, stats.Dropped)
	return err
}
