package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "JWT_SECRET", "LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL",
		"OPENAI_API_KEY", "GROQ_API_KEY", "ANTHROPIC_API_KEY", "LLM_TEMPERATURE", "CHAT_TEMPERATURE",
		"SEARCH_PROVIDER", "TAVILY_API_KEY", "SEARCH_MAX_RESULTS", "SEARCH_CACHE_TTL",
		"MAX_REVISIONS", "RESEARCH_CONCURRENCY", "SESSION_TTL", "CHAT_HISTORY_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.Temperature)
	assert.Equal(t, float32(0.7), cfg.LLM.ChatTemperature)
	assert.Equal(t, SearchTavily, cfg.Search.Provider)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.Equal(t, 15*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, 3, cfg.Planner.MaxRevisions)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 20, cfg.Session.HistoryLimit)
}

func TestFromEnv_ProviderDefaults(t *testing.T) {
	tests := []struct {
		name          string
		provider      string
		keyVar        string
		expectedModel string
		expectedBase  string
	}{
		{name: "openai", provider: "openai", keyVar: "OPENAI_API_KEY", expectedModel: "gpt-4o-mini"},
		{name: "groq", provider: "groq", keyVar: "GROQ_API_KEY", expectedModel: "llama-3.3-70b-versatile", expectedBase: GroqBaseURL},
		{name: "anthropic", provider: "Anthropic", keyVar: "ANTHROPIC_API_KEY", expectedModel: "claude-3-5-haiku-latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LLM_PROVIDER", tt.provider)
			t.Setenv(tt.keyVar, "key-"+tt.name)

			cfg, err := FromEnv()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedModel, cfg.LLM.Model)
			assert.Equal(t, "key-"+tt.name, cfg.LLM.APIKey)
			assert.Equal(t, tt.expectedBase, cfg.LLM.BaseURL)
		})
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_REVISIONS", "three")
	t.Setenv("SEARCH_CACHE_TTL", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_REVISIONS")
	assert.Contains(t, err.Error(), "SEARCH_CACHE_TTL")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		expectedError string
	}{
		{
			name: "valid_tavily",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "TAVILY_API_KEY": "tv"},
		},
		{
			name: "valid_duckduckgo_without_search_key",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "SEARCH_PROVIDER": "duckduckgo"},
		},
		{
			name:          "missing_llm_key",
			env:           map[string]string{"TAVILY_API_KEY": "tv"},
			expectedError: "API key for provider \"openai\" is required",
		},
		{
			name:          "missing_tavily_key",
			env:           map[string]string{"OPENAI_API_KEY": "sk"},
			expectedError: "TAVILY_API_KEY is required",
		},
		{
			name:          "unknown_provider",
			env:           map[string]string{"LLM_PROVIDER": "mystery", "TAVILY_API_KEY": "tv"},
			expectedError: "unsupported LLM_PROVIDER",
		},
		{
			name:          "unknown_search_provider",
			env:           map[string]string{"OPENAI_API_KEY": "sk", "SEARCH_PROVIDER": "bing"},
			expectedError: "unsupported SEARCH_PROVIDER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := FromEnv()
			require.NoError(t, err)

			err = cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			}
		})
	}
}
