package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"phishguard/internal/models"
)

var ErrJobNotFound = errors.New("job not found")

func (p *Postgres) CreateJob(ctx context.Context, id string, total int) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO jobs (id, status, total_count) VALUES ($1, $2, $3)`,
		id, string(models.JobPending), total)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (models.Job, error) {
	var j models.Job
	var status string
	err := p.pool.QueryRow(ctx, `
		SELECT id, status, total_count, processed_count, created_at, completed_at
		FROM jobs WHERE id = $1
	`, id).Scan(&j.ID, &status, &j.TotalCount, &j.ProcessedCount, &j.CreatedAt, &j.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("query job: %w", err)
	}
	j.Status = models.JobStatus(status)
	return j, nil
}

// SaveAnalysis stores one result and advances the job's progress in the
// same transaction. The job flips to completed with its last result.
func (p *Postgres) SaveAnalysis(ctx context.Context, rec models.AnalysisRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analyses (job_id, url, score, status, data)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.JobID, rec.URL, rec.Score, string(rec.Status), []byte(rec.Data))
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE jobs
		SET processed_count = processed_count + 1,
		    status = CASE
		        WHEN processed_count + 1 >= total_count THEN 'completed'
		        ELSE status
		    END,
		    completed_at = CASE
		        WHEN processed_count + 1 >= total_count THEN NOW()
		        ELSE completed_at
		    END
		WHERE id = $1
	`, rec.JobID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}

	return tx.Commit(ctx)
}

// Results returns the analyses of a job in insertion order.
func (p *Postgres) Results(ctx context.Context, jobID string) ([]models.AnalysisRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT job_id, url, score, status, data
		FROM analyses WHERE job_id = $1 ORDER BY id
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []models.AnalysisRecord
	for rows.Next() {
		var rec models.AnalysisRecord
		var status string
		var data []byte
		if err := rows.Scan(&rec.JobID, &rec.URL, &rec.Score, &status, &data); err != nil {
			return nil, err
		}
		rec.Status = models.ParseClassification(status)
		rec.Data = data
		out = append(out, rec)
	}
	return out, rows.Err()
}
