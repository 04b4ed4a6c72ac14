package analysis

import (
	"context"

	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/capability"
	"go.uber.org/zap"
)

type LineConfig struct {
	PreviewLength int
	Summary       SummaryRule
	Invoker       capability.Invoker
}

// LineAnalyzer runs every available capability over one line unit.
type LineAnalyzer struct {
	config LineConfig
}

func NewLineAnalyzer(config LineConfig) *LineAnalyzer {
	if config.PreviewLength <= 0 {
		config.PreviewLength = 300
	}
	config.Summary = config.Summary.withDefaults()
	if config.Invoker.Logger == nil {
		config.Invoker.Logger = zap.NewNop()
	}

	return &LineAnalyzer{config: config}
}

// Analyze never fails. Capabilities missing from snap, or failing, leave
// their field empty; the summary falls back to the unit text.
func (a *LineAnalyzer) Analyze(ctx context.Context, unit models.LineUnit, snap capability.Snapshot) models.LineResult {
	inv := a.config.Invoker

	return models.LineResult{
		LineNumber:     unit.SequenceIndex,
		Location:       unit.Location,
		Preview:        truncate(unit.Text, a.config.PreviewLength),
		FullText:       unit.Text,
		FullTextLength: len([]rune(unit.Text)),
		Sentiment:      classify(ctx, inv, snap, unit.Text),
		Summary:        summarize(ctx, inv, snap, a.config.Summary, unit.Text),
		Entities:       entities(ctx, inv, snap, unit.Text),
	}
}
