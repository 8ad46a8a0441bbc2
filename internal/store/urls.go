package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"phishguard/internal/models"
)

func (p *Postgres) Get(ctx context.Context, url string) (models.Verdict, bool, error) {
	var v models.Verdict
	var status string
	err := p.pool.QueryRow(ctx,
		`SELECT url, status, last_checked FROM urls WHERE url = $1`, url,
	).Scan(&v.URL, &status, &v.LastChecked)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Verdict{}, false, nil
	}
	if err != nil {
		return models.Verdict{}, false, fmt.Errorf("query verdict: %w", err)
	}
	v.Status = models.ParseClassification(status)
	return v, true, nil
}

// Upsert creates the row on first sight and overwrites status and
// last_checked afterwards.
func (p *Postgres) Upsert(ctx context.Context, url string, status models.Classification) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO urls (url, status, last_checked)
		VALUES ($1, $2, NOW())
		ON CONFLICT (url) DO UPDATE
		SET status = EXCLUDED.status,
		    last_checked = NOW()
	`, url, string(status))
	if err != nil {
		return fmt.Errorf("upsert verdict: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]models.Verdict, error) {
	rows, err := p.pool.Query(ctx, `SELECT url, status, last_checked FROM urls ORDER BY last_checked DESC`)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var out []models.Verdict
	for rows.Next() {
		var v models.Verdict
		var status string
		if err := rows.Scan(&v.URL, &status, &v.LastChecked); err != nil {
			return nil, err
		}
		v.Status = models.ParseClassification(status)
		out = append(out, v)
	}
	return out, rows.Err()
}
