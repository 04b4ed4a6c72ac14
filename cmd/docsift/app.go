package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/xhad/docsift/internal/types"
	"github.com/xhad/docsift/pkg/analysis"
	"github.com/xhad/docsift/pkg/cache"
	"github.com/xhad/docsift/pkg/capability"
	"github.com/xhad/docsift/pkg/config"
	"github.com/xhad/docsift/pkg/extractor"
	"github.com/xhad/docsift/pkg/llm"
	"github.com/xhad/docsift/pkg/pipeline"
	"github.com/xhad/docsift/pkg/processor"
	"github.com/xhad/docsift/pkg/store"
	"github.com/xhad/docsift/pkg/wordcloud"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// app holds everything a command needs, built once from the config.
type app struct {
	config   *config.Config
	logger   *zap.Logger
	limiter  *rate.Limiter
	cache    *cache.Store
	registry *capability.Registry
	reports  types.ReportStore
	embedder types.Embedder
	pipeline *pipeline.Orchestrator
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	// Command line flags win over the file and the environment
	if v := c.String("ollama-url"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := c.String("db-url"); v != "" {
		cfg.Database.URL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// setup builds the app. withStorage connects the optional report store.
func setup(c *cli.Context, withStorage bool) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		config:  cfg,
		logger:  logger,
		limiter: llm.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst),
	}

	if cfg.Capabilities.CachePath != "" {
		a.cache, err = cache.Open(cfg.Capabilities.CachePath)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	a.registry = a.buildRegistry(c.Context)

	if withStorage && cfg.Database.URL != "" {
		a.connectStorage(c.Context)
	}

	if err := a.buildPipeline(); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

// buildRegistry probes each configured model once and registers the
// capabilities whose model answered.
func (a *app) buildRegistry(ctx context.Context) *capability.Registry {
	caps := a.config.Capabilities
	engines := make(map[string]*llm.ChatEngine)
	failed := make(map[string]bool)

	engine := func(name, model string) *llm.ChatEngine {
		if model == "" {
			a.logger.Info("capability disabled", zap.String("capability", name))
			return nil
		}
		if e, ok := engines[model]; ok {
			return e
		}
		if failed[model] {
			return nil
		}

		e, err := llm.NewWithConfig(llm.ChatConfig{
			Model:       model,
			Temperature: a.config.LLM.Temperature,
			MaxTokens:   a.config.LLM.MaxTokens,
			BaseURL:     a.config.LLM.BaseURL,
			Limiter:     a.limiter,
		})
		if err == nil {
			probeCtx, cancel := context.WithTimeout(ctx, caps.ProbeTimeout)
			err = e.Probe(probeCtx)
			cancel()
		}
		if err != nil {
			a.logger.Warn("model unavailable", zap.String("model", model), zap.String("capability", name), zap.Error(err))
			failed[model] = true
			return nil
		}

		a.logger.Info("model loaded", zap.String("model", model))
		engines[model] = e
		return e
	}

	var opts []capability.Option
	if e := engine(capability.Sentiment, caps.SentimentModel); e != nil {
		opts = append(opts, capability.WithSentiment(
			capability.CachedSentiment(llm.NewSentimentClassifier(e), a.cache, caps.SentimentModel), caps.SentimentModel))
	}
	if e := engine(capability.Summary, caps.SummaryModel); e != nil {
		opts = append(opts, capability.WithSummarizer(
			capability.CachedSummarizer(llm.NewSummarizer(e), a.cache, caps.SummaryModel), caps.SummaryModel))
	}
	if e := engine(capability.Entities, caps.EntitiesModel); e != nil {
		opts = append(opts, capability.WithEntities(
			capability.CachedEntities(llm.NewEntityExtractor(e), a.cache, caps.EntitiesModel), caps.EntitiesModel))
	}

	return capability.NewRegistry(opts...)
}

// connectStorage enables report persistence. Failure leaves it disabled.
func (a *app) connectStorage(ctx context.Context) {
	db := a.config.Database

	rs, err := store.NewWithConfig(ctx, store.ReportStoreConfig{
		ConnString: db.URL,
		TableName:  db.TableName,
		VectorDim:  db.VectorDim,
	})
	if err != nil {
		a.logger.Warn("report storage disabled", zap.Error(err))
		return
	}
	a.reports = rs

	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   db.EmbeddingModel,
		BaseURL: a.config.LLM.BaseURL,
		Limiter: a.limiter,
	})
	if err != nil {
		a.logger.Warn("line embeddings disabled", zap.Error(err))
		return
	}
	a.embedder = emb
}

func (a *app) buildPipeline() error {
	cfg := a.config
	invoker := capability.Invoker{Logger: a.logger, Timeout: cfg.Capabilities.CallTimeout}
	rule := analysis.SummaryRule{MinWords: cfg.Pipeline.MinSummaryWords, MaxWords: cfg.Pipeline.MaxSummaryWords}

	renderer, err := wordcloud.NewWithConfig(wordcloud.RendererConfig{
		Width:           cfg.WordCloud.Width,
		Height:          cfg.WordCloud.Height,
		MaxWords:        cfg.WordCloud.MaxWords,
		MinFontSize:     cfg.WordCloud.MinFontSize,
		MaxFontSize:     cfg.WordCloud.MaxFontSize,
		RelativeScaling: cfg.WordCloud.RelativeScaling,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize word cloud renderer: %w", err)
	}
	words := processor.NewWithConfig(processor.ProcessorConfig{MaxWords: cfg.WordCloud.MaxWords})

	a.pipeline = pipeline.NewWithConfig(pipeline.Config{
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
		Workers:        cfg.Pipeline.Workers,
		Logger:         a.logger,
		Invoker:        invoker,
		Registry:       a.registry,
		Extractor: extractor.NewWithConfig(extractor.ExtractorConfig{
			MinLineLength: cfg.Pipeline.MinLineLength,
			Logger:        a.logger,
		}),
		Lines: analysis.NewLineAnalyzer(analysis.LineConfig{
			PreviewLength: cfg.Pipeline.PreviewLength,
			Summary:       rule,
			Invoker:       invoker,
		}),
		Aggregator: analysis.NewAggregator(analysis.AggregatorConfig{
			TopEntities: cfg.Pipeline.TopEntities,
			Workers:     cfg.Pipeline.Workers,
			Summary:     rule,
			Invoker:     invoker,
			Words:       &words,
			Renderer:    renderer,
			Language:    processor.NewLanguageDetector(),
		}),
		Store:    a.reports,
		Embedder: a.embedder,
	})
	return nil
}

func (a *app) close() {
	if a.reports != nil {
		a.reports.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close cache", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// exitError turns client mistakes into plain messages and hides faults.
func exitError(err error) error {
	var clientErr *pipeline.ClientInputError
	if errors.As(err, &clientErr) {
		return cli.Exit(clientErr.Message, 1)
	}
	return err
}
