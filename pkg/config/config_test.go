package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.InDelta(t, 0.5, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, "Feira de Santana", cfg.Weather.DefaultCity)
	assert.Equal(t, 50, cfg.Conversation.TitleLimit)
	assert.Equal(t, 20, cfg.Conversation.ListLimit)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Empty(t, cfg.Search.APIKey)
	assert.Empty(t, cfg.Weather.APIKey)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("IRIS_LLM_APIKEY", "llm-key")
	t.Setenv("IRIS_SEARCH_APIKEY", "search-key")
	t.Setenv("IRIS_WEATHER_APIKEY", "weather-key")
	t.Setenv("IRIS_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "llm-key", cfg.LLM.APIKey)
	assert.Equal(t, "search-key", cfg.Search.APIKey)
	assert.Equal(t, "weather-key", cfg.Weather.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("IRIS_STORAGE_BACKEND", "firestore")

	_, err := Load()
	assert.Error(t, err)
}
