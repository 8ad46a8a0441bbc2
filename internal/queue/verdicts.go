package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"phishguard/internal/models"
)

const verdictPrefix = "phishguard:verdict:"

// VerdictCache keeps url -> status strings in Redis with a TTL.
type VerdictCache struct {
	rdb *redis.Client
}

func NewVerdictCache(rdb *redis.Client) *VerdictCache {
	return &VerdictCache{rdb: rdb}
}

func (c *VerdictCache) Get(ctx context.Context, url string) (models.Classification, bool, error) {
	val, err := c.rdb.Get(ctx, verdictPrefix+url).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return models.ParseClassification(val), true, nil
}

func (c *VerdictCache) Set(ctx context.Context, url string, status models.Classification, ttl time.Duration) error {
	return c.rdb.Set(ctx, verdictPrefix+url, string(status), ttl).Err()
}
