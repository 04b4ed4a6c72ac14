package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.RequestsPerSecond <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.requests_per_second",
			Message: "requests_per_second must be positive",
		})
	}

	// Validate capability timeouts
	if c.Capabilities.CallTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "capabilities.call_timeout",
			Message: "call_timeout must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Pipeline config
	if c.Pipeline.MaxUploadBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_upload_bytes",
			Message: "max_upload_bytes must be positive",
		})
	}

	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.workers",
			Message: "workers must be between 1 and 64",
		})
	}

	if c.Pipeline.TopEntities < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.top_entities",
			Message: "top_entities must be positive",
		})
	}

	if c.Pipeline.MaxSummaryWords < c.Pipeline.MinSummaryWords {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_summary_words",
			Message: "max_summary_words must not be less than min_summary_words",
		})
	}

	// Validate WordCloud config
	if c.WordCloud.Width < 1 || c.WordCloud.Height < 1 {
		errors = append(errors, ValidationError{
			Field:   "wordcloud.size",
			Message: "width and height must be positive",
		})
	}

	if c.WordCloud.MinFontSize <= 0 || c.WordCloud.MaxFontSize < c.WordCloud.MinFontSize {
		errors = append(errors, ValidationError{
			Field:   "wordcloud.font_size",
			Message: "font sizes must be positive and max_font_size >= min_font_size",
		})
	}

	if c.WordCloud.RelativeScaling < 0 || c.WordCloud.RelativeScaling > 1 {
		errors = append(errors, ValidationError{
			Field:   "wordcloud.relative_scaling",
			Message: "relative_scaling must be between 0 and 1",
		})
	}

	// Validate Log config
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level: %s", c.Log.Level),
		})
	}

	return errors
}
