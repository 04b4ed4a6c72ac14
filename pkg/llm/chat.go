package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when the model answered with no content.
var ErrEmptyResponse = errors.New("empty response from LLM")

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model             string
	Temperature       float64
	MaxTokens         int
	BaseURL           string // Ollama server URL
	RequestsPerSecond float64
	Burst             int
	// Limiter, when set, is shared with other engines on the same server
	// and overrides RequestsPerSecond and Burst.
	Limiter *rate.Limiter
}

// ChatEngine sends rate limited prompts to a single model.
type ChatEngine struct {
	config  ChatConfig
	llm     llms.Model
	limiter *rate.Limiter
}

// NewWithConfig creates a new ChatEngine backed by Ollama.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return newEngine(llm, config), nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}
	return newEngine(model, config), nil
}

func withDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 512
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return config, nil
}

func newEngine(model llms.Model, config ChatConfig) *ChatEngine {
	limiter := config.Limiter
	if limiter == nil {
		limiter = NewLimiter(config.RequestsPerSecond, config.Burst)
	}

	return &ChatEngine{
		config:  config,
		llm:     model,
		limiter: limiter,
	}
}

// NewLimiter builds a limiter for one model server. A non-positive rate
// means unlimited.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// Model returns the name of the model behind the engine.
func (ce *ChatEngine) Model() string {
	return ce.config.Model
}

// Generate sends one system and one user message and returns the trimmed
// answer.
func (ce *ChatEngine) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := ce.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrEmptyResponse
	}

	answer := strings.TrimSpace(response.Choices[0].Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// Probe checks that the model answers at all.
func (ce *ChatEngine) Probe(ctx context.Context) error {
	_, err := ce.Generate(ctx, "You are a health check. Reply with the single word OK.", "ping")
	return err
}
