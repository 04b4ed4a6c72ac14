// Package analysis turns line units into per-line results and folds them
// into a document summary. Every capability call is best effort: a missing,
// failing or slow analyzer leaves its field absent instead of failing the
// document.
package analysis

import (
	"context"
	"strings"

	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/capability"
	"go.uber.org/zap"
)

// SummaryRule bounds which texts are sent to the summarizer.
type SummaryRule struct {
	MinWords int // below this the text is its own summary
	MaxWords int // longer input is cut to this many words
}

func (r SummaryRule) withDefaults() SummaryRule {
	if r.MinWords <= 0 {
		r.MinWords = 30
	}
	if r.MaxWords <= 0 {
		r.MaxWords = 1024
	}
	return r
}

// summarize returns a summary of text, or text itself when it is too short
// or no summary could be produced.
func summarize(ctx context.Context, inv capability.Invoker, snap capability.Snapshot, rule SummaryRule, text string) string {
	if snap.Summarizer == nil {
		return text
	}

	words := strings.Fields(text)
	if len(words) < rule.MinWords {
		return text
	}
	input := text
	if len(words) > rule.MaxWords {
		input = strings.Join(words[:rule.MaxWords], " ")
	}

	return capability.BestEffort(ctx, withModel(inv, snap.SummaryModel), capability.Summary, text,
		func(ctx context.Context) (string, error) {
			summary, err := snap.Summarizer.Summarize(ctx, input)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(summary) == "" {
				return "", capability.ErrEmptyResult
			}
			return summary, nil
		})
}

func classify(ctx context.Context, inv capability.Invoker, snap capability.Snapshot, text string) *models.Sentiment {
	if snap.Sentiment == nil {
		return nil
	}

	return capability.BestEffort[*models.Sentiment](ctx, withModel(inv, snap.SentimentModel), capability.Sentiment, nil,
		func(ctx context.Context) (*models.Sentiment, error) {
			label, err := snap.Sentiment.Classify(ctx, text)
			if err != nil {
				return nil, err
			}
			return &label, nil
		})
}

func entities(ctx context.Context, inv capability.Invoker, snap capability.Snapshot, text string) []models.Entity {
	if snap.Entities == nil {
		return []models.Entity{}
	}

	found := capability.BestEffort[[]models.Entity](ctx, withModel(inv, snap.EntitiesModel), capability.Entities, nil,
		func(ctx context.Context) ([]models.Entity, error) {
			return snap.Entities.Entities(ctx, text)
		})
	if found == nil {
		return []models.Entity{}
	}
	return found
}

func withModel(inv capability.Invoker, model string) capability.Invoker {
	inv.Logger = inv.Logger.With(zap.String("model", model))
	return inv
}

// truncate cuts text to n characters and marks the cut with "...".
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
