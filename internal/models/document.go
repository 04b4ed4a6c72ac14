package models

import "time"

// Format identifies the kind of uploaded document.
type Format string

const (
	FormatPDF         Format = "pdf"
	FormatSpreadsheet Format = "spreadsheet"
)

// Label returns the human readable file type reported to clients.
func (f Format) Label() string {
	switch f {
	case FormatPDF:
		return "PDF"
	case FormatSpreadsheet:
		return "Excel"
	default:
		return string(f)
	}
}

// AnalysisMode selects which parts of the report are produced.
type AnalysisMode string

const (
	ModeIndividual AnalysisMode = "individual"
	ModeCombined   AnalysisMode = "combined"
	ModeBoth       AnalysisMode = "both"
)

// ParseAnalysisMode maps the analysis_type selector to a mode. Empty means both.
func ParseAnalysisMode(s string) (AnalysisMode, bool) {
	switch AnalysisMode(s) {
	case "":
		return ModeBoth, true
	case ModeIndividual, ModeCombined, ModeBoth:
		return AnalysisMode(s), true
	}
	return "", false
}

func (m AnalysisMode) WantsIndividual() bool { return m == ModeIndividual || m == ModeBoth }
func (m AnalysisMode) WantsCombined() bool   { return m == ModeCombined || m == ModeBoth }

// Sentiment is one of the fixed classification labels.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// SentimentLabels is the candidate order. It doubles as the tie-break order
// when two labels have the same count.
var SentimentLabels = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// LineUnit is one analyzable fragment of a document.
type LineUnit struct {
	SequenceIndex int    `json:"line_number"`
	Location      int    `json:"page"`
	Text          string `json:"text"`
}

// Entity is a named entity found in a piece of text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// EntityCount is an entity with its number of occurrences in a document.
type EntityCount struct {
	Entity
	Count int `json:"count"`
}

// LineResult is the analysis output for one LineUnit.
type LineResult struct {
	LineNumber     int        `json:"line_number"`
	Location       int        `json:"page"`
	Preview        string     `json:"text"`
	FullText       string     `json:"full_text"`
	FullTextLength int        `json:"full_text_length"`
	Sentiment      *Sentiment `json:"sentiment,omitempty"`
	Summary        string     `json:"summary"`
	Entities       []Entity   `json:"entities"`
}

// DocumentSummary is the aggregate analysis over a whole document.
type DocumentSummary struct {
	CombinedText          string            `json:"combined_text"`
	TotalTextLength       int               `json:"total_text_length"`
	Preview               string            `json:"preview"`
	SentimentDistribution map[Sentiment]int `json:"sentiment_distribution"`
	OverallSentiment      *Sentiment        `json:"overall_sentiment"`
	Summary               string            `json:"summary"`
	TopEntities           []EntityCount     `json:"top_entities"`
	TotalEntities         int               `json:"total_entities"`
	WordCloud             *string           `json:"wordcloud,omitempty"`
	Language              *string           `json:"language,omitempty"`
}

// Report is the top-level response of one analysis request.
type Report struct {
	ID                 string           `json:"id"`
	Filename           string           `json:"filename"`
	FileType           string           `json:"file_type"`
	TotalLines         int              `json:"total_lines"`
	TotalPages         int              `json:"total_pages"`
	ModelsAvailable    map[string]bool  `json:"models_available"`
	AnalysisType       AnalysisMode     `json:"analysis_type"`
	IndividualAnalysis []LineResult     `json:"individual_analysis,omitempty"`
	CombinedAnalysis   *DocumentSummary `json:"combined_analysis,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// StoredLine is a persisted line returned by similarity search.
type StoredLine struct {
	ReportID   string     `json:"report_id"`
	Filename   string     `json:"filename"`
	LineNumber int        `json:"line_number"`
	Location   int        `json:"page"`
	Text       string     `json:"text"`
	Sentiment  *Sentiment `json:"sentiment,omitempty"`
	Distance   float64    `json:"distance"`
}

// WordCount is a word with its frequency, ranked for word-cloud rendering.
type WordCount struct {
	Word  string
	Count int
}
