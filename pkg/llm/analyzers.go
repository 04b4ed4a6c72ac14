package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xhad/docsift/internal/models"
)

const (
	sentimentSystem = "You are a sentiment classifier. Answer with exactly one word: positive, negative or neutral."
	summarySystem   = "You summarize documents. Answer with a concise summary of 30 to 150 words and nothing else."
	entitiesSystem  = "You extract named entities. Answer only with a JSON array of objects with the keys \"text\" and \"label\". " +
		"Use the labels PERSON, ORG, GPE, LOC, DATE, MONEY, PRODUCT and EVENT. Answer [] when there are none."
)

// SentimentClassifier labels text as positive, negative or neutral.
type SentimentClassifier struct {
	engine *ChatEngine
}

func NewSentimentClassifier(engine *ChatEngine) *SentimentClassifier {
	return &SentimentClassifier{engine: engine}
}

func (s *SentimentClassifier) Classify(ctx context.Context, text string) (models.Sentiment, error) {
	answer, err := s.engine.Generate(ctx, sentimentSystem, text)
	if err != nil {
		return "", err
	}
	return parseSentiment(answer)
}

// parseSentiment takes the label mentioned first in the answer.
func parseSentiment(answer string) (models.Sentiment, error) {
	lower := strings.ToLower(answer)

	best, bestIdx := models.Sentiment(""), -1
	for _, label := range models.SentimentLabels {
		idx := strings.Index(lower, string(label))
		if idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = label, idx
		}
	}
	if bestIdx < 0 {
		return "", fmt.Errorf("unrecognized sentiment answer %q", answer)
	}
	return best, nil
}

// Summarizer produces short abstractive summaries.
type Summarizer struct {
	engine *ChatEngine
}

func NewSummarizer(engine *ChatEngine) *Summarizer {
	return &Summarizer{engine: engine}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.engine.Generate(ctx, summarySystem, text)
}

// EntityExtractor asks the model for entities as JSON.
type EntityExtractor struct {
	engine *ChatEngine
}

func NewEntityExtractor(engine *ChatEngine) *EntityExtractor {
	return &EntityExtractor{engine: engine}
}

func (e *EntityExtractor) Entities(ctx context.Context, text string) ([]models.Entity, error) {
	answer, err := e.engine.Generate(ctx, entitiesSystem, text)
	if err != nil {
		return nil, err
	}
	return parseEntities(answer)
}

// parseEntities decodes the first JSON array in the answer. Models often
// wrap the array in prose or code fences.
func parseEntities(answer string) ([]models.Entity, error) {
	start := strings.Index(answer, "[")
	end := strings.LastIndex(answer, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in entity answer")
	}

	var raw []models.Entity
	if err := json.Unmarshal([]byte(answer[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode entities: %w", err)
	}

	entities := make([]models.Entity, 0, len(raw))
	for _, ent := range raw {
		ent.Text = strings.TrimSpace(ent.Text)
		ent.Label = strings.ToUpper(strings.TrimSpace(ent.Label))
		if ent.Text == "" || ent.Label == "" {
			continue
		}
		entities = append(entities, ent)
	}
	return entities, nil
}
