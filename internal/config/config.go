package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// Search providers
const (
	SearchTavily     = "tavily"
	SearchDuckDuckGo = "duckduckgo"
)

// GroqBaseURL is the OpenAI-compatible endpoint exposed by Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGroq:      "llama-3.3-70b-versatile",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// Config holds all runtime settings for the travel planner.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	// DevUserEmail and DevUserPassword seed a login into the in-memory store
	// when DatabaseURL is empty.
	DevUserEmail    string
	DevUserPassword string

	LLM     LLMConfig
	Search  SearchConfig
	Planner PlannerConfig
	Session SessionConfig
}

// LLMConfig selects and tunes the text generator.
type LLMConfig struct {
	Provider        string
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     float32
	ChatTemperature float32
	MaxTokens       int
	Timeout         time.Duration
}

// SearchConfig selects and tunes the web search tool.
type SearchConfig struct {
	Provider     string
	TavilyAPIKey string
	Depth        string
	MaxResults   int
	QPS          float64
	Burst        int
	CacheTTL     time.Duration
	Timeout      time.Duration
}

// PlannerConfig bounds the revision loop.
type PlannerConfig struct {
	MaxRevisions        int
	ResearchConcurrency int
}

// SessionConfig controls chat session retention.
type SessionConfig struct {
	TTL          time.Duration
	HistoryLimit int
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf(`{"level":"warn","message":"Failed to load .env file","error":%q}`, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	p := &parser{}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		DevUserEmail:    os.Getenv("DEV_USER_EMAIL"),
		DevUserPassword: os.Getenv("DEV_USER_PASSWORD"),
		LLM: LLMConfig{
			Provider:        provider,
			Model:           getEnv("LLM_MODEL", defaultModels[provider]),
			APIKey:          apiKeyFor(provider),
			BaseURL:         os.Getenv("LLM_BASE_URL"),
			Temperature:     p.float32("LLM_TEMPERATURE", 0),
			ChatTemperature: p.float32("CHAT_TEMPERATURE", 0.7),
			MaxTokens:       p.int("LLM_MAX_TOKENS", 4096),
			Timeout:         p.duration("LLM_TIMEOUT", 60*time.Second),
		},
		Search: SearchConfig{
			Provider:     strings.ToLower(getEnv("SEARCH_PROVIDER", SearchTavily)),
			TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),
			Depth:        getEnv("SEARCH_DEPTH", "basic"),
			MaxResults:   p.int("SEARCH_MAX_RESULTS", 3),
			QPS:          p.float64("SEARCH_QPS", 5),
			Burst:        p.int("SEARCH_BURST", 3),
			CacheTTL:     p.duration("SEARCH_CACHE_TTL", 15*time.Minute),
			Timeout:      p.duration("SEARCH_TIMEOUT", 10*time.Second),
		},
		Planner: PlannerConfig{
			MaxRevisions:        p.int("MAX_REVISIONS", 3),
			ResearchConcurrency: p.int("RESEARCH_CONCURRENCY", 4),
		},
		Session: SessionConfig{
			TTL:          p.duration("SESSION_TTL", 2*time.Hour),
			HistoryLimit: p.int("CHAT_HISTORY_LIMIT", 20),
		},
	}

	if cfg.LLM.Provider == ProviderGroq && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = GroqBaseURL
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate reports settings that would make the planner unusable.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := defaultModels[c.LLM.Provider]; !ok {
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider))
	} else if c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("API key for provider %q is required", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("LLM_MODEL is required"))
	}

	switch c.Search.Provider {
	case SearchTavily:
		if c.Search.TavilyAPIKey == "" {
			errs = append(errs, errors.New("TAVILY_API_KEY is required for the tavily search provider"))
		}
	case SearchDuckDuckGo:
	default:
		errs = append(errs, fmt.Errorf("unsupported SEARCH_PROVIDER %q", c.Search.Provider))
	}
	if c.Search.MaxResults <= 0 {
		errs = append(errs, errors.New("SEARCH_MAX_RESULTS must be positive"))
	}

	if c.Planner.MaxRevisions < 0 {
		errs = append(errs, errors.New("MAX_REVISIONS must not be negative"))
	}
	if c.Planner.ResearchConcurrency <= 0 {
		errs = append(errs, errors.New("RESEARCH_CONCURRENCY must be positive"))
	}

	return errors.Join(errs...)
}

func apiKeyFor(provider string) string {
	switch provider {
	case ProviderGroq:
		return os.Getenv("GROQ_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parser collects conversion errors so Load can report all of them at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) float64(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func (p *parser) float32(key string, fallback float32) float32 {
	return float32(p.float64(key, float64(fallback)))
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}
