package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

// EmbedderConfig represents the configuration for an embedder.
type EmbedderConfig struct {
	Model             string
	BaseURL           string // Ollama server URL
	RequestsPerSecond float64
	BatchSize         int
	Limiter           *rate.Limiter
}

type embeddingModel interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// Embedder turns line texts into vectors in rate limited batches.
type Embedder struct {
	config  EmbedderConfig
	model   embeddingModel
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	config = embedderDefaults(config)

	emb, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return newEmbedder(emb, config), nil
}

func embedderDefaults(config EmbedderConfig) EmbedderConfig {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	return config
}

func newEmbedder(model embeddingModel, config EmbedderConfig) *Embedder {
	limiter := config.Limiter
	if limiter == nil {
		limiter = NewLimiter(config.RequestsPerSecond, 1)
	}
	return &Embedder{
		config:  config,
		model:   model,
		limiter: limiter,
	}
}

// CreateEmbedding embeds texts in order, one request per batch.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		batch, err := e.model.CreateEmbedding(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}
