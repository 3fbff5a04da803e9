package search

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedTool memoises successful searches for a while. Failures are never cached.
type CachedTool struct {
	next  Tool
	cache *cache.Cache
}

// NewCachedTool wraps next with a TTL cache.
func NewCachedTool(next Tool, ttl time.Duration) *CachedTool {
	return &CachedTool{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Search implements Tool.
func (c *CachedTool) Search(ctx context.Context, query string) ([]Result, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))

	if cached, found := c.cache.Get(key); found {
		return cached.([]Result), nil
	}

	results, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, results, cache.DefaultExpiration)
	return results, nil
}
