package cache

import (
	"context"
	"strings"
	"time"
)

// DefaultSafeTTL is how long a hostname stays trusted after a safe verdict.
const DefaultSafeTTL = 30 * time.Minute

// SafeSites remembers hostnames that recently passed a check so repeat
// navigations skip the interstitial.
type SafeSites struct {
	store *Store
	ttl   time.Duration
}

func NewSafeSites(ttl time.Duration, now func() time.Time) *SafeSites {
	if ttl <= 0 {
		ttl = DefaultSafeTTL
	}
	return &SafeSites{store: NewWithClock(now), ttl: ttl}
}

// MarkSafe records host as safe, restarting its TTL window.
func (c *SafeSites) MarkSafe(host string) {
	c.store.Set(strings.ToLower(host), c.store.now(), c.ttl)
}

func (c *SafeSites) IsSafe(host string) bool {
	_, ok := c.store.Get(strings.ToLower(host))
	return ok
}

// MarkedAt returns when host was last marked safe, if it still is.
func (c *SafeSites) MarkedAt(host string) (time.Time, bool) {
	v, ok := c.store.Get(strings.ToLower(host))
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

func (c *SafeSites) Forget(host string) {
	c.store.Delete(strings.ToLower(host))
}

func (c *SafeSites) Len() int {
	return c.store.Len()
}

// StartCleanup evicts expired hosts every interval until ctx is done.
func (c *SafeSites) StartCleanup(ctx context.Context, interval time.Duration) {
	c.store.StartCleanup(ctx, interval)
}
