package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/docsift/internal/models"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"caf\xc3\xa9", "café"},
		{"bad\xffbyte", "badbyte"},
		{"nul\x00inside", "nulinside"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeText(tt.in))
	}
}

func TestVectorSkipsMismatchedDimensions(t *testing.T) {
	rs := &ReportStore{config: ReportStoreConfig{VectorDim: 2}}
	embeddings := [][]float32{{1, 2}, {1, 2, 3}}

	assert.NotNil(t, rs.vector(embeddings, 0))
	assert.Nil(t, rs.vector(embeddings, 1))
	assert.Nil(t, rs.vector(embeddings, 2))
	assert.Nil(t, rs.vector(nil, 0))
}

func TestLineSentiment(t *testing.T) {
	negative := models.SentimentNegative
	report := &models.Report{IndividualAnalysis: []models.LineResult{{Sentiment: &negative}, {}}}

	got := lineSentiment(report, 0)
	if assert.NotNil(t, got) {
		assert.Equal(t, "negative", *got)
	}
	assert.Nil(t, lineSentiment(report, 1))
	assert.Nil(t, lineSentiment(report, 5))
}
