package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  chat_model: "gpt-4"
  embedding_model: "text-embedding-ada-002"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_articles"
  vector_dim: 1536
  batch_size: 50
  search_limit: 4

scraper:
  rate_limit: 1.5
  content_selectors:
    - "#main-content"
  sources:
    - name: "acme"
      url: "https://www.acme-insurance.test/resources"
      link_selectors:
        - "a[href*='/resources/']"
      include:
        - "/resources/home-insurance/"
      exclude:
        - "quote"
        - "calculator"
      max_articles: 5

processor:
  chunk_size: 500
  chunk_overlap: 50

ui:
  streaming: false
  theme: "dark"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Pin the environment so local DATABASE_URL etc. don't leak in
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", config.LLM.ChatModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 4, config.Database.SearchLimit)
	assert.Equal(t, 1.5, config.Scraper.RateLimit)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.False(t, config.UI.Streaming)

	require.Len(t, config.Scraper.Sources, 1)
	src := config.Scraper.Sources[0]
	assert.Equal(t, "acme", src.Name)
	assert.Equal(t, []string{"/resources/home-insurance/"}, src.Include)
	assert.Equal(t, []string{"quote", "calculator"}, src.Exclude)
	assert.Equal(t, 5, src.MaxArticles)
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "gpt-4-1106-preview", config.LLM.ChatModel)
	assert.Equal(t, "text-embedding-ada-002", config.LLM.EmbedModel)
	assert.Equal(t, 1536, config.Database.VectorDim)
	assert.Equal(t, 3, config.Database.SearchLimit)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 50, config.Processor.ChunkOverlap)
	assert.NotEmpty(t, config.Scraper.ContentSelectors)

	// Without configured sources the default provider is used
	require.Len(t, config.Scraper.Sources, 1)
	assert.Equal(t, "allstate", config.Scraper.Sources[0].Name)
	assert.Equal(t, 10, config.Scraper.Sources[0].MaxArticles)
	assert.NotEmpty(t, config.Scraper.Sources[0].Exclude)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedErrs  int
		errorMessages []string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "invalid llm and database",
			mutate: func(c *Config) {
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
				c.Database.URL = ""
				c.Database.VectorDim = -1
			},
			expectedErrs: 4,
			errorMessages: []string{
				"llm.max_tokens: max_tokens must be between 1 and 4096",
				"llm.temperature: temperature must be between 0 and 2",
				"database.url: connection string is required",
				"database.vector_dim: vector_dim must be positive",
			},
		},
		{
			name: "invalid source and chunking",
			mutate: func(c *Config) {
				c.Scraper.Sources[0].URL = "not-a-url"
				c.Scraper.Sources[0].MaxArticles = 0
				c.Processor.ChunkOverlap = 500
			},
			expectedErrs: 3,
			errorMessages: []string{
				"scraper.sources[0].url: invalid source URL",
				"scraper.sources[0].max_articles: max_articles must be positive",
				"processor.chunk_overlap: chunk_overlap must be non-negative and less than chunk_size",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			applyDefaults(config)
			config.Database.URL = "postgres://localhost:5432/test"
			tt.mutate(config)

			errors := config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "sk-test", config.LLM.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", config.LLM.BaseURL)
}
