package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/capability"
)

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\t\tc", 10))
	assert.Equal(t, "abcdefg...", oneLine("abcdefghijklmnop", 10))
}

func TestDistribution(t *testing.T) {
	assert.Equal(t, "", distribution(nil))
	assert.Equal(t, "(positive=3, neutral=1)", distribution(map[models.Sentiment]int{
		models.SentimentNeutral:  1,
		models.SentimentPositive: 3,
	}))
}

func TestDataURISize(t *testing.T) {
	assert.Equal(t, uint64(3), dataURISize("data:image/png;base64,cG5n"))
	assert.Equal(t, uint64(0), dataURISize("garbage"))
}

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	positive := models.SentimentPositive
	lang := "en"

	var buf bytes.Buffer
	printReport(&buf, &models.Report{
		ID:              "r1",
		Filename:        "q3.pdf",
		FileType:        "PDF",
		TotalLines:      1200,
		TotalPages:      3,
		ModelsAvailable: map[string]bool{capability.Sentiment: true},
		IndividualAnalysis: []models.LineResult{
			{LineNumber: 1, Location: 1, Preview: "Revenue grew", Sentiment: &positive,
				Entities: []models.Entity{{Text: "Acme", Label: "ORG"}}},
		},
		CombinedAnalysis: &models.DocumentSummary{
			TotalTextLength:       12,
			SentimentDistribution: map[models.Sentiment]int{positive: 1},
			OverallSentiment:      &positive,
			Summary:               "Revenue grew",
			TopEntities:           []models.EntityCount{{Entity: models.Entity{Text: "Acme", Label: "ORG"}, Count: 1}},
			TotalEntities:         1,
			Language:              &lang,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Report r1")
	assert.Contains(t, out, "q3.pdf (PDF)")
	assert.Contains(t, out, "1,200 lines across 3 pages")
	assert.Contains(t, out, "Acme/ORG")
	assert.Contains(t, out, "positive (positive=1)")
	assert.Contains(t, out, "Language: en")
	assert.NotContains(t, out, "Word cloud")
}

func TestPrintStatus(t *testing.T) {
	color.NoColor = true
	model := "mistral"

	var buf bytes.Buffer
	printStatus(&buf, map[string]capability.ModelStatus{
		"summarizer":           {Loaded: true, Model: &model},
		"nlp":                  {},
		"sentiment_classifier": {Loaded: true, Model: &model},
	}, false)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "✗ nlp")
	assert.Contains(t, string(lines[2]), "✓ summarizer")
	assert.NotContains(t, buf.String(), "All models ready")
}
