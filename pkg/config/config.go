package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xhad/docsift/pkg/capability"
	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	BaseURL           string  `yaml:"base_url"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CapabilitiesConfig names the model behind each optional analyzer. An empty
// model name leaves that capability unavailable.
type CapabilitiesConfig struct {
	SentimentModel string        `yaml:"sentiment_model"`
	SummaryModel   string        `yaml:"summary_model"`
	EntitiesModel  string        `yaml:"entities_model"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	CachePath      string        `yaml:"cache_path"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	TableName      string `yaml:"table_name"`
	VectorDim      int    `yaml:"vector_dim"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type PipelineConfig struct {
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
	Workers         int   `yaml:"workers"`
	MinLineLength   int   `yaml:"min_line_length"`
	PreviewLength   int   `yaml:"preview_length"`
	MinSummaryWords int   `yaml:"min_summary_words"`
	MaxSummaryWords int   `yaml:"max_summary_words"`
	TopEntities     int   `yaml:"top_entities"`
}

type WordCloudConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	MaxWords        int     `yaml:"max_words"`
	MinFontSize     float64 `yaml:"min_font_size"`
	MaxFontSize     float64 `yaml:"max_font_size"`
	RelativeScaling float64 `yaml:"relative_scaling"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Database     DatabaseConfig     `yaml:"database"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	WordCloud    WordCloudConfig    `yaml:"wordcloud"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docsift/config.yaml"),
			"/etc/docsift/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{
		Capabilities: CapabilitiesConfig{
			SentimentModel: "mistral",
			SummaryModel:   "mistral",
			EntitiesModel:  "mistral",
		},
	}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 512
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}
	if config.LLM.RequestsPerSecond == 0 {
		config.LLM.RequestsPerSecond = 8
	}
	if config.LLM.Burst == 0 {
		config.LLM.Burst = 4
	}

	if config.Capabilities.CallTimeout == 0 {
		config.Capabilities.CallTimeout = capability.DefaultTimeout
	}
	if config.Capabilities.ProbeTimeout == 0 {
		config.Capabilities.ProbeTimeout = 30 * time.Second
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "reports"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.EmbeddingModel == "" {
		config.Database.EmbeddingModel = "nomic-embed-text:latest"
	}

	if config.Pipeline.MaxUploadBytes == 0 {
		config.Pipeline.MaxUploadBytes = 50 * 1024 * 1024
	}
	if config.Pipeline.Workers == 0 {
		config.Pipeline.Workers = 4
	}
	if config.Pipeline.MinLineLength == 0 {
		config.Pipeline.MinLineLength = 10
	}
	if config.Pipeline.PreviewLength == 0 {
		config.Pipeline.PreviewLength = 300
	}
	if config.Pipeline.MinSummaryWords == 0 {
		config.Pipeline.MinSummaryWords = 30
	}
	if config.Pipeline.MaxSummaryWords == 0 {
		config.Pipeline.MaxSummaryWords = 1024
	}
	if config.Pipeline.TopEntities == 0 {
		config.Pipeline.TopEntities = 20
	}

	if config.WordCloud.Width == 0 {
		config.WordCloud.Width = 800
	}
	if config.WordCloud.Height == 0 {
		config.WordCloud.Height = 400
	}
	if config.WordCloud.MaxWords == 0 {
		config.WordCloud.MaxWords = 100
	}
	if config.WordCloud.MinFontSize == 0 {
		config.WordCloud.MinFontSize = 10
	}
	if config.WordCloud.MaxFontSize == 0 {
		config.WordCloud.MaxFontSize = 120
	}
	if config.WordCloud.RelativeScaling == 0 {
		config.WordCloud.RelativeScaling = 0.5
	}

	if config.Server.Addr == "" {
		config.Server.Addr = "127.0.0.1:8001"
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if addr := os.Getenv("DOCSIFT_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
}
