package verdict

import (
	"context"
	"errors"
	"time"

	"phishguard/internal/models"
)

var ErrInvalidStatus = errors.New("invalid status")

// Store is the contract the analyzer needs: read a stored classification,
// and record the latest one. Lookup reports absent on any failure.
type Store interface {
	Lookup(ctx context.Context, url string) (models.Classification, bool)
	Upsert(ctx context.Context, url string, status models.Classification) error
}

// Lister is implemented by stores that can enumerate their verdicts.
type Lister interface {
	List(ctx context.Context) ([]models.Verdict, error)
}

// Repository is the durable side of the store. There is at most one row
// per URL; Upsert overwrites status and last_checked.
type Repository interface {
	Get(ctx context.Context, url string) (models.Verdict, bool, error)
	Upsert(ctx context.Context, url string, status models.Classification) error
	List(ctx context.Context) ([]models.Verdict, error)
}

// Cache is the read-through layer in front of a Repository.
type Cache interface {
	Get(ctx context.Context, url string) (models.Classification, bool, error)
	Set(ctx context.Context, url string, status models.Classification, ttl time.Duration) error
}
