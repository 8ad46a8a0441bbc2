package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"phishguard/internal/config"
	"phishguard/internal/engine"
	"phishguard/internal/gatekeeper"
	"phishguard/internal/queue"
	"phishguard/internal/store"
)

func main() {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		log.Printf("🔌 Connecting to Redis at %s...", cfg.RedisAddr)
		rdb, err = queue.Connect(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("✅ Connected to Redis")
	}

	var pg *store.Postgres
	if cfg.DatabaseURL != "" {
		log.Println("🔌 Connecting to Database...")
		pg, err = store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to DB: %v", err)
		}
		defer pg.Close()
		log.Println("✅ Connected to PostgreSQL & Migrations Applied")
	}

	verdicts := engine.Verdicts(cfg, pg, rdb)
	eng, err := engine.Build(cfg, verdicts)
	if err != nil {
		log.Fatalf("❌ Failed to build analyzer: %v", err)
	}

	// Cancelling ctx stops background checks and the safe-site eviction.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailbox := gatekeeper.NewMailbox()
	gate := gatekeeper.New(ctx, eng.Analyzer, gatekeeper.NavigatorFunc(logNavigator), mailbox, gatekeeper.Config{
		Interstitial: cfg.Interstitial,
		SafeTTL:      cfg.SafeTTL,
	})
	gate.StartCleanup(ctx, 5*time.Minute)
	log.Println("✅ Safe-site eviction started (interval: 5m)")

	srv := &server{
		verdicts: verdicts,
		analyzer: eng.Analyzer,
		gate:     gate,
		mailbox:  mailbox,
		apiKey:   cfg.APIKey,
	}
	if pg != nil && rdb != nil {
		srv.jobs = pg
		srv.tasks = queue.NewTasks(rdb)
	} else {
		log.Println("⚠️  Batch jobs disabled (need both DB_URL and REDIS_ADDR)")
	}
	if cfg.APIKey == "" {
		log.Println("⚠️  API_SECRET_KEY not set. The API accepts unauthenticated requests.")
	}

	httpServer := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     srv.routes(),
		ReadTimeout: 30 * time.Second,
		// Deep analyses and tab long polls hold the response open.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 PhishGuard API running on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	<-quit
	log.Println("⏳ Shutdown signal received, draining in-flight requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}
	cancel()
	gate.Wait()
	if err := eng.Close(shutdownCtx); err != nil {
		log.Printf("❌ Verdict reporter did not drain: %v", err)
	}
	log.Println("✅ Server shut down cleanly.")
}
