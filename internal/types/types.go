package types

import (
	"context"

	"github.com/xhad/docsift/internal/models"
)

// Core interfaces

// Extractor turns raw document bytes into ordered line units.
type Extractor interface {
	Extract(ctx context.Context, data []byte, format models.Format) ([]models.LineUnit, error)
}

// SentimentClassifier assigns one of the fixed sentiment labels to a text.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (models.Sentiment, error)
}

// Summarizer produces a short abstractive summary of a text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// EntityExtractor finds named entities in a text, in order of appearance.
type EntityExtractor interface {
	Entities(ctx context.Context, text string) ([]models.Entity, error)
}

// Embedder turns texts into vectors for similarity search.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// WordCounter ranks the words of a text for word-cloud rendering.
type WordCounter interface {
	WordFrequencies(text string) []models.WordCount
}

// Renderer draws ranked words into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, words []models.WordCount) ([]byte, error)
}

// LanguageDetector names the dominant language of a text, if confident.
type LanguageDetector interface {
	DetectLanguage(text string) (string, bool)
}

// ReportStore persists finished reports. embeddings, when not nil, holds one
// vector per unit.
type ReportStore interface {
	Save(ctx context.Context, report *models.Report, units []models.LineUnit, embeddings [][]float32) error
	Get(ctx context.Context, id string) (*models.Report, error)
	SimilarLines(ctx context.Context, embedding []float32, limit int) ([]models.StoredLine, error)
	Close()
}
