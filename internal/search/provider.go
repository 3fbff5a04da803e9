package search

import (
	"fmt"

	"github.com/bizmatters/agent-builder/travel-planner/internal/config"
)

// New assembles the configured provider behind the rate limiter, breaker and cache.
func New(cfg config.SearchConfig) (Tool, error) {
	var base Tool
	switch cfg.Provider {
	case config.SearchTavily:
		if cfg.TavilyAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		base = NewTavily(cfg.TavilyAPIKey, cfg.Depth, cfg.MaxResults, cfg.Timeout)
	case config.SearchDuckDuckGo:
		base = NewDuckDuckGo(cfg.MaxResults, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported search provider %q", cfg.Provider)
	}

	var tool Tool = NewRateLimitedTool(base, cfg.QPS, cfg.Burst)
	tool = NewResilientTool(cfg.Provider, tool)
	if cfg.CacheTTL > 0 {
		tool = NewCachedTool(tool, cfg.CacheTTL)
	}
	return tool, nil
}
