package search

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedTool blocks callers until the provider's query budget allows another request.
type RateLimitedTool struct {
	next    Tool
	limiter *rate.Limiter
}

// NewRateLimitedTool allows qps queries per second with the given burst.
// A non-positive qps disables limiting.
func NewRateLimitedTool(next Tool, qps float64, burst int) *RateLimitedTool {
	limit := rate.Inf
	if qps > 0 {
		limit = rate.Limit(qps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedTool{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Search implements Tool.
func (r *RateLimitedTool) Search(ctx context.Context, query string) ([]Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limit: %w", err)
	}
	return r.next.Search(ctx, query)
}
