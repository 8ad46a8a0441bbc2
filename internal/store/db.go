package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres holds the verdict table and the batch job tables.
type Postgres struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and runs migrations.
func Open(connString string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping is used by the status endpoint.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// runMigrations creates the necessary tables if they don't exist
func (p *Postgres) runMigrations(ctx context.Context) error {
	// One verdict per canonical URL.
	queryURLs := `
	CREATE TABLE IF NOT EXISTS urls (
		url TEXT PRIMARY KEY,
		status TEXT NOT NULL CHECK (status IN ('safe', 'malicious', 'unknown')),
		last_checked TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	queryJobs := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		total_count INT DEFAULT 0,
		processed_count INT DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	);`

	// The full AnalysisSummary is kept so results can be re-scored later.
	queryAnalyses := `
	CREATE TABLE IF NOT EXISTS analyses (
		id SERIAL PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id),
		url TEXT NOT NULL,
		score INT NOT NULL,
		status TEXT NOT NULL,
		data JSONB NOT NULL
	);`

	queryIndex := `CREATE INDEX IF NOT EXISTS analyses_job_id_idx ON analyses (job_id);`

	for name, q := range map[string]string{"urls": queryURLs, "jobs": queryJobs} {
		if _, err := p.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migration failed (%s): %w", name, err)
		}
	}
	if _, err := p.pool.Exec(ctx, queryAnalyses); err != nil {
		return fmt.Errorf("migration failed (analyses): %w", err)
	}
	if _, err := p.pool.Exec(ctx, queryIndex); err != nil {
		return fmt.Errorf("migration failed (analyses index): %w", err)
	}

	return nil
}
