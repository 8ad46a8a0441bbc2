package cache

import (
	"context"
	"sync"
	"time"
)

// Item represents a cached value with an expiration time.
type Item struct {
	Value      any
	Expiration int64
}

// Store is a thread-safe TTL cache. Expired entries are evicted when read
// or by Cleanup.
type Store struct {
	items map[string]Item
	mu    sync.Mutex
	now   func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock lets tests control time.
func NewWithClock(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		items: make(map[string]Item),
		now:   now,
	}
}

// Set adds a value to the cache with a specific TTL, replacing any earlier
// entry and its expiry.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = Item{
		Value:      value,
		Expiration: s.now().Add(ttl).UnixNano(),
	}
}

// Get retrieves a value. An expired item is removed and reported missing.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, found := s.items[key]
	if !found {
		return nil, false
	}

	if s.now().UnixNano() > item.Expiration {
		delete(s.items, key)
		return nil, false
	}

	return item.Value, true
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len counts stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Cleanup removes expired items.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UnixNano()
	for k, v := range s.items {
		if now > v.Expiration {
			delete(s.items, k)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
