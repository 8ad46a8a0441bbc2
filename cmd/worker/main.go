package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phishguard/internal/config"
	"phishguard/internal/engine"
	"phishguard/internal/queue"
	"phishguard/internal/store"
	"phishguard/internal/worker"
)

func main() {
	log.Println("🚀 Starting PhishGuard Worker...")

	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	rdb, err := queue.Connect(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("✅ Connected to Redis")

	if cfg.DatabaseURL == "" {
		log.Fatal("❌ DB_URL environment variable is required")
	}
	pg, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	defer pg.Close()
	log.Println("✅ Connected to PostgreSQL")

	eng, err := engine.Build(cfg, engine.Verdicts(cfg, pg, rdb))
	if err != nil {
		log.Fatalf("❌ Failed to build analyzer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runner := &worker.Runner{
		Tasks:    queue.NewTasks(rdb),
		Results:  pg,
		Analyzer: eng.Analyzer,
		FastOnly: cfg.WorkerFast,
	}
	runner.Start(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Close(drainCtx); err != nil {
		log.Printf("❌ Verdict reporter did not drain: %v", err)
	}
}
