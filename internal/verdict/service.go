package verdict

import (
	"context"
	"fmt"
	"log"
	"time"

	"phishguard/internal/models"
	"phishguard/internal/urlutil"
)

// DefaultCacheTTL is how long a verdict stays in the cache.
const DefaultCacheTTL = time.Hour

// Service is the verdict store proper: a Cache in front of a Repository.
// URLs are reduced to their origin before they are used as keys.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
}

// NewService wires the layers. cache may be nil.
func NewService(repo Repository, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

func (s *Service) Lookup(ctx context.Context, url string) (models.Classification, bool) {
	v, found, err := s.Get(ctx, url)
	if err != nil || !found {
		return models.Unknown, false
	}
	return v.Status, true
}

// Get returns the stored verdict. Cache errors are logged and bypassed.
func (s *Service) Get(ctx context.Context, url string) (models.Verdict, bool, error) {
	key, err := urlutil.Sanitize(url)
	if err != nil {
		return models.Verdict{}, false, err
	}

	if s.cache != nil {
		status, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("[ERROR] verdict cache read %s: %v", key, err)
		} else if hit {
			return models.Verdict{URL: key, Status: status}, true, nil
		}
	}

	v, found, err := s.repo.Get(ctx, key)
	if err != nil {
		return models.Verdict{}, false, fmt.Errorf("load verdict: %w", err)
	}
	if !found {
		return models.Verdict{}, false, nil
	}

	s.fill(ctx, key, v.Status)
	return v, true, nil
}

// Upsert writes the repository first, then refreshes the cache.
func (s *Service) Upsert(ctx context.Context, url string, status models.Classification) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	key, err := urlutil.Sanitize(url)
	if err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, key, status); err != nil {
		return fmt.Errorf("store verdict: %w", err)
	}
	s.fill(ctx, key, status)
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.Verdict, error) {
	return s.repo.List(ctx)
}

func (s *Service) fill(ctx context.Context, key string, status models.Classification) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, status, s.ttl); err != nil {
		log.Printf("[ERROR] verdict cache write %s: %v", key, err)
	}
}
