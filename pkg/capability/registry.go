// Package capability tracks the optional analyzers a process was able to load
// and provides the best-effort call used to invoke them.
package capability

import (
	"github.com/xhad/docsift/internal/types"
)

// Capability names used in availability maps.
const (
	Sentiment = "sentiment"
	Summary   = "summary"
	Entities  = "entities"
)

// ModelStatus describes one capability slot for status reporting.
type ModelStatus struct {
	Loaded bool    `json:"loaded"`
	Model  *string `json:"model"`
}

// Registry holds the analyzers available to the process. It is built once at
// startup and only read afterwards.
type Registry struct {
	sentiment      types.SentimentClassifier
	sentimentModel string
	summarizer     types.Summarizer
	summaryModel   string
	entities       types.EntityExtractor
	entitiesModel  string
}

type Option func(*Registry)

func WithSentiment(c types.SentimentClassifier, model string) Option {
	return func(r *Registry) {
		r.sentiment = c
		r.sentimentModel = model
	}
}

func WithSummarizer(s types.Summarizer, model string) Option {
	return func(r *Registry) {
		r.summarizer = s
		r.summaryModel = model
	}
}

func WithEntities(e types.EntityExtractor, model string) Option {
	return func(r *Registry) {
		r.entities = e
		r.entitiesModel = model
	}
}

// NewRegistry builds a registry. Options with a nil analyzer leave that
// capability unavailable.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot is the set of analyzers one request works with. Nil fields are
// unavailable capabilities.
type Snapshot struct {
	Sentiment  types.SentimentClassifier
	Summarizer types.Summarizer
	Entities   types.EntityExtractor

	SentimentModel string
	SummaryModel   string
	EntitiesModel  string
}

// Snapshot captures the current capabilities for one request.
func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		Sentiment:      r.sentiment,
		Summarizer:     r.summarizer,
		Entities:       r.entities,
		SentimentModel: r.sentimentModel,
		SummaryModel:   r.summaryModel,
		EntitiesModel:  r.entitiesModel,
	}
}

// Available reports which capabilities the snapshot carries.
func (s Snapshot) Available() map[string]bool {
	return map[string]bool{
		Sentiment: s.Sentiment != nil,
		Summary:   s.Summarizer != nil,
		Entities:  s.Entities != nil,
	}
}

// Status reports each capability slot with the model behind it.
func (r *Registry) Status() map[string]ModelStatus {
	s := r.Snapshot()
	return map[string]ModelStatus{
		"sentiment_classifier": status(s.Sentiment != nil, s.SentimentModel),
		"summarizer":           status(s.Summarizer != nil, s.SummaryModel),
		"nlp":                  status(s.Entities != nil, s.EntitiesModel),
	}
}

// Ready is true only when every capability is available.
func (r *Registry) Ready() bool {
	for _, ok := range r.Snapshot().Available() {
		if !ok {
			return false
		}
	}
	return true
}

func status(loaded bool, model string) ModelStatus {
	if !loaded {
		return ModelStatus{}
	}
	return ModelStatus{Loaded: true, Model: &model}
}
