package capability

import (
	"context"

	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/internal/types"
	"github.com/xhad/docsift/pkg/cache"
)

// The cached decorators consult the store before calling the wrapped
// analyzer and record only successful results. Cache read or write errors
// never fail the call.

type cachedSentiment struct {
	next  types.SentimentClassifier
	store *cache.Store
	model string
}

func CachedSentiment(next types.SentimentClassifier, store *cache.Store, model string) types.SentimentClassifier {
	if next == nil || store == nil {
		return next
	}
	return &cachedSentiment{next: next, store: store, model: model}
}

func (c *cachedSentiment) Classify(ctx context.Context, text string) (models.Sentiment, error) {
	return memo(c.store, Sentiment, c.model, text, func() (models.Sentiment, error) {
		return c.next.Classify(ctx, text)
	})
}

type cachedSummarizer struct {
	next  types.Summarizer
	store *cache.Store
	model string
}

func CachedSummarizer(next types.Summarizer, store *cache.Store, model string) types.Summarizer {
	if next == nil || store == nil {
		return next
	}
	return &cachedSummarizer{next: next, store: store, model: model}
}

func (c *cachedSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return memo(c.store, Summary, c.model, text, func() (string, error) {
		return c.next.Summarize(ctx, text)
	})
}

type cachedEntities struct {
	next  types.EntityExtractor
	store *cache.Store
	model string
}

func CachedEntities(next types.EntityExtractor, store *cache.Store, model string) types.EntityExtractor {
	if next == nil || store == nil {
		return next
	}
	return &cachedEntities{next: next, store: store, model: model}
}

func (c *cachedEntities) Entities(ctx context.Context, text string) ([]models.Entity, error) {
	return memo(c.store, Entities, c.model, text, func() ([]models.Entity, error) {
		return c.next.Entities(ctx, text)
	})
}

func memo[T any](store *cache.Store, bucket, model, text string, fn func() (T, error)) (T, error) {
	key := cache.Key(model, text)

	var cached T
	if ok, err := store.Get(bucket, key, &cached); err == nil && ok {
		return cached, nil
	}

	v, err := fn()
	if err != nil {
		return v, err
	}
	_ = store.Put(bucket, key, v)
	return v, nil
}
