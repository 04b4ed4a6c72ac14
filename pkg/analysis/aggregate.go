package analysis

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/internal/types"
	"github.com/xhad/docsift/pkg/capability"
	"github.com/xhad/docsift/pkg/processor"
	"github.com/xhad/docsift/pkg/wordcloud"
	"go.uber.org/zap"
)

const (
	capabilityWordCloud = "wordcloud"
	languageSample      = 4096
)

type AggregatorConfig struct {
	PreviewLength int
	TopEntities   int
	MinCloudChars int
	Workers       int
	Summary       SummaryRule
	Invoker       capability.Invoker
	Words         types.WordCounter
	Renderer      types.Renderer
	Language      types.LanguageDetector
}

// Aggregator folds line units and their results into a DocumentSummary.
type Aggregator struct {
	config AggregatorConfig
}

func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.PreviewLength <= 0 {
		config.PreviewLength = 1000
	}
	if config.TopEntities <= 0 {
		config.TopEntities = 20
	}
	if config.MinCloudChars <= 0 {
		config.MinCloudChars = 10
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	config.Summary = config.Summary.withDefaults()
	if config.Invoker.Logger == nil {
		config.Invoker.Logger = zap.NewNop()
	}

	return &Aggregator{config: config}
}

// Aggregate builds the document summary. When lineResults holds one result
// per unit its sentiments and entities are reused; otherwise each unit is
// classified again through snap.
func (a *Aggregator) Aggregate(ctx context.Context, snap capability.Snapshot, units []models.LineUnit, lineResults []models.LineResult) models.DocumentSummary {
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}
	combined := strings.Join(texts, " ")

	sentiments, found := a.perUnit(ctx, snap, units, lineResults)
	distribution, overall := DominantSentiment(sentiments)
	top, total := RankEntities(found, a.config.TopEntities)

	return models.DocumentSummary{
		CombinedText:          combined,
		TotalTextLength:       len([]rune(combined)),
		Preview:               truncate(combined, a.config.PreviewLength),
		SentimentDistribution: distribution,
		OverallSentiment:      overall,
		Summary:               summarize(ctx, a.config.Invoker, snap, a.config.Summary, combined),
		TopEntities:           top,
		TotalEntities:         total,
		WordCloud:             a.wordCloud(ctx, combined),
		Language:              a.language(combined),
	}
}

// perUnit returns the sentiment and entities of every unit in sequence order.
func (a *Aggregator) perUnit(ctx context.Context, snap capability.Snapshot, units []models.LineUnit, lineResults []models.LineResult) ([]*models.Sentiment, [][]models.Entity) {
	sentiments := make([]*models.Sentiment, len(units))
	found := make([][]models.Entity, len(units))

	if len(lineResults) == len(units) {
		for i, r := range lineResults {
			sentiments[i] = r.Sentiment
			found[i] = r.Entities
		}
		return sentiments, found
	}

	if snap.Sentiment == nil && snap.Entities == nil {
		return sentiments, found
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.config.Workers)
	for i, u := range units {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			sentiments[i] = classify(ctx, a.config.Invoker, snap, u.Text)
			found[i] = entities(ctx, a.config.Invoker, snap, u.Text)
		}()
	}
	wg.Wait()

	return sentiments, found
}

// DominantSentiment counts the labels that are present and picks the most
// frequent one. Ties go to the label that comes first in
// models.SentimentLabels. The result is nil when no label is present.
func DominantSentiment(sentiments []*models.Sentiment) (map[models.Sentiment]int, *models.Sentiment) {
	distribution := make(map[models.Sentiment]int)
	for _, s := range sentiments {
		if s != nil {
			distribution[*s]++
		}
	}

	var overall *models.Sentiment
	best := 0
	for _, label := range models.SentimentLabels {
		if n := distribution[label]; n > best {
			overall, best = &label, n
		}
	}
	return distribution, overall
}

// RankEntities counts entities by exact text and label, orders them by
// count with ties in order of first appearance and keeps the first limit.
// It also returns the total number of occurrences.
func RankEntities(perUnit [][]models.Entity, limit int) ([]models.EntityCount, int) {
	counts := make(map[models.Entity]int)
	var order []models.Entity
	total := 0

	for _, unit := range perUnit {
		for _, e := range unit {
			if _, seen := counts[e]; !seen {
				order = append(order, e)
			}
			counts[e]++
			total++
		}
	}

	ranked := make([]models.EntityCount, len(order))
	for i, e := range order {
		ranked[i] = models.EntityCount{Entity: e, Count: counts[e]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, total
}

func (a *Aggregator) wordCloud(ctx context.Context, text string) *string {
	if a.config.Words == nil || a.config.Renderer == nil {
		return nil
	}

	cleaned := processor.CleanText(text)
	if len([]rune(cleaned)) < a.config.MinCloudChars {
		a.config.Invoker.Logger.Debug("text too short for word cloud")
		return nil
	}

	words := a.config.Words.WordFrequencies(cleaned)
	if len(words) == 0 {
		a.config.Invoker.Logger.Debug("no words for word cloud")
		return nil
	}

	image := capability.BestEffort[[]byte](ctx, a.config.Invoker, capabilityWordCloud, nil,
		func(ctx context.Context) ([]byte, error) {
			return a.config.Renderer.Render(ctx, words)
		})
	if len(image) == 0 {
		return nil
	}

	uri := wordcloud.DataURI(image)
	return &uri
}

func (a *Aggregator) language(text string) *string {
	if a.config.Language == nil {
		return nil
	}

	if runes := []rune(text); len(runes) > languageSample {
		text = string(runes[:languageSample])
	}
	lang, ok := a.config.Language.DetectLanguage(text)
	if !ok {
		return nil
	}
	return &lang
}
