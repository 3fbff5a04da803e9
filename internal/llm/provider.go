package llm

import (
	"fmt"

	"github.com/bizmatters/agent-builder/travel-planner/internal/config"
)

// New builds the configured provider wrapped in a circuit breaker.
func New(cfg config.LLMConfig) (*ResilientGenerator, error) {
	var (
		gen Generator
		err error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI, config.ProviderGroq:
		gen, err = NewOpenAIFromConfig(cfg)
	case config.ProviderAnthropic:
		gen, err = NewAnthropicFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.Provider, err)
	}

	return WithCircuitBreaker(cfg.Provider, gen), nil
}
