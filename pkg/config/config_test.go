package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  max_tokens: 1000
  temperature: 0.5
  requests_per_second: 2

capabilities:
  sentiment_model: "llama3"
  summary_model: "mistral"
  call_timeout: 15s

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_reports"
  vector_dim: 384

pipeline:
  workers: 8
  top_entities: 10

wordcloud:
  width: 640
  height: 320

log:
  level: debug
  development: true
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 2.0, config.LLM.RequestsPerSecond)
	assert.Equal(t, "llama3", config.Capabilities.SentimentModel)
	assert.Equal(t, "mistral", config.Capabilities.SummaryModel)
	assert.Empty(t, config.Capabilities.EntitiesModel)
	assert.Equal(t, 15*time.Second, config.Capabilities.CallTimeout)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_reports", config.Database.TableName)
	assert.Equal(t, 384, config.Database.VectorDim)
	assert.Equal(t, 8, config.Pipeline.Workers)
	assert.Equal(t, 10, config.Pipeline.TopEntities)
	assert.Equal(t, 640, config.WordCloud.Width)
	assert.True(t, config.Log.Development)

	// defaults fill the gaps
	assert.Equal(t, int64(50*1024*1024), config.Pipeline.MaxUploadBytes)
	assert.Equal(t, 30, config.Pipeline.MinSummaryWords)
	assert.Equal(t, 100, config.WordCloud.MaxWords)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Empty(t, config.Validate())
	assert.Equal(t, "mistral", config.Capabilities.SentimentModel)
	assert.Equal(t, 4, config.Pipeline.Workers)
	assert.Equal(t, 20, config.Pipeline.TopEntities)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid llm",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
			},
			errorMessages: []string{
				"llm.base_url: invalid Ollama base URL",
				"llm.max_tokens: max_tokens must be between 1 and 4096",
				"llm.temperature: temperature must be between 0 and 2",
			},
		},
		{
			name: "invalid pipeline and database",
			mutate: func(c *Config) {
				c.Database.URL = "not a url"
				c.Database.VectorDim = -1
				c.Pipeline.Workers = 100
			},
			errorMessages: []string{
				"database.url: invalid database URL",
				"database.vector_dim: vector_dim must be positive",
				"pipeline.workers: workers must be between 1 and 64",
			},
		},
		{
			name: "invalid wordcloud and log",
			mutate: func(c *Config) {
				c.WordCloud.RelativeScaling = 2
				c.Log.Level = "chatty"
			},
			errorMessages: []string{
				"wordcloud.relative_scaling: relative_scaling must be between 0 and 1",
				"log.level: unknown log level: chatty",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			errors := c.Validate()
			require.Len(t, errors, len(tt.errorMessages))

			for i, msg := range tt.errorMessages {
				assert.Equal(t, msg, errors[i].Error())
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("DOCSIFT_ADDR", ":9000")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, ":9000", config.Server.Addr)
}
