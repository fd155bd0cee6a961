package competency

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL matches the dashboard area cache lifetime
const DefaultCacheTTL = time.Hour

// Loader fetches the current area map from storage
type Loader func(ctx context.Context) (map[string]Area, error)

// AreaCache memoizes the derived area map for a TTL.
// Concurrent readers share one load; Invalidate forces the next read to reload
type AreaCache struct {
	load Loader
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	areas   map[string]Area
	expires time.Time
}

// NewAreaCache builds a cache around load. ttl <= 0 uses DefaultCacheTTL
func NewAreaCache(load Loader, ttl time.Duration) *AreaCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &AreaCache{load: load, ttl: ttl, now: time.Now}
}

// Areas returns the cached map, reloading after expiry
func (c *AreaCache) Areas(ctx context.Context) (map[string]Area, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.areas != nil && c.now().Before(c.expires) {
		return c.areas, nil
	}

	areas, err := c.load(ctx)
	if err != nil {
		// serve stale data over an error when we have any
		if c.areas != nil {
			return c.areas, nil
		}
		return nil, err
	}
	c.areas = areas
	c.expires = c.now().Add(c.ttl)
	return c.areas, nil
}

// Invalidate drops the cached map
func (c *AreaCache) Invalidate() {
	c.mu.Lock()
	c.areas = nil
	c.expires = time.Time{}
	c.mu.Unlock()
}

// Refresh reloads immediately, replacing the cached map on success
func (c *AreaCache) Refresh(ctx context.Context) error {
	areas, err := c.load(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.areas = areas
	c.expires = c.now().Add(c.ttl)
	c.mu.Unlock()
	return nil
}
