package processor

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"github.com/xhad/docsift/internal/models"
)

type ProcessorConfig struct {
	MaxWords        int
	MinWordLength   int
	CustomStopwords []string
	KeepNumbers     bool
}

type Processor struct {
	config    ProcessorConfig
	stopwords map[string]struct{}
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MaxWords == 0 {
		config.MaxWords = 100
	}
	if config.MinWordLength == 0 {
		config.MinWordLength = 2
	}

	stopwords := make(map[string]struct{}, len(getStopwords())+len(config.CustomStopwords))
	for _, w := range getStopwords() {
		stopwords[w] = struct{}{}
	}
	for _, w := range config.CustomStopwords {
		stopwords[strings.ToLower(w)] = struct{}{}
	}

	return Processor{
		config:    config,
		stopwords: stopwords,
	}
}

// CleanText replaces every character that is neither a word character nor
// whitespace with a space and collapses runs of whitespace.
func CleanText(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)

	return strings.Join(strings.Fields(cleaned), " ")
}

// WordFrequencies ranks the words of text by frequency, most frequent first,
// ties in order of first appearance. Stopwords and bare numbers are dropped.
// Words sharing an English stem are counted together and shown under their
// most common spelling.
func (p *Processor) WordFrequencies(text string) []models.WordCount {
	groups := make(map[string]*spellings)
	var order []string
	for _, word := range strings.Fields(CleanText(text)) {
		if len([]rune(word)) < p.config.MinWordLength {
			continue
		}
		lower := strings.ToLower(word)
		if _, stop := p.stopwords[lower]; stop {
			continue
		}
		if !p.config.KeepNumbers && isNumber(word) {
			continue
		}

		key := stem(lower)
		g, ok := groups[key]
		if !ok {
			g = &spellings{counts: make(map[string]int)}
			groups[key] = g
			order = append(order, key)
		}
		g.add(word)
	}

	ranked := make([]models.WordCount, 0, len(order))
	for _, key := range order {
		g := groups[key]
		ranked = append(ranked, models.WordCount{Word: g.dominant(), Count: g.total})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > p.config.MaxWords {
		ranked = ranked[:p.config.MaxWords]
	}
	return ranked
}

func stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", false)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// spellings tracks the case variants of one word in order of appearance.
type spellings struct {
	counts map[string]int
	order  []string
	total  int
}

func (s *spellings) add(word string) {
	if _, ok := s.counts[word]; !ok {
		s.order = append(s.order, word)
	}
	s.counts[word]++
	s.total++
}

// dominant returns the most frequent spelling, the earliest one on ties.
func (s *spellings) dominant() string {
	best := s.order[0]
	for _, w := range s.order[1:] {
		if s.counts[w] > s.counts[best] {
			best = w
		}
	}
	return best
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Common English stopwords
func getStopwords() []string {
	return []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am", "an",
		"and", "any", "are", "aren", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "cannot", "could",
		"couldn", "did", "didn", "do", "does", "doesn", "doing", "don", "down", "during",
		"each", "else", "ever", "few", "for", "from", "further", "get", "had", "hadn",
		"has", "hasn", "have", "haven", "having", "he", "her", "here", "hers", "herself",
		"him", "himself", "his", "how", "however", "i", "if", "in", "into", "is", "isn",
		"it", "its", "itself", "just", "let", "like", "ll", "me", "more", "most", "mustn",
		"my", "myself", "no", "nor", "not", "of", "off", "on", "once", "only", "or",
		"other", "otherwise", "ought", "our", "ours", "ourselves", "out", "over", "own",
		"re", "same", "shall", "shan", "she", "should", "shouldn", "since", "so", "some",
		"such", "than", "that", "the", "their", "theirs", "them", "themselves", "then",
		"there", "therefore", "these", "they", "this", "those", "through", "to", "too",
		"under", "until", "up", "ve", "very", "was", "wasn", "we", "were", "weren", "what",
		"when", "where", "which", "while", "who", "whom", "why", "with", "won", "would",
		"wouldn", "you", "your", "yours", "yourself", "yourselves", "www", "http", "https", "com",
	}
}
