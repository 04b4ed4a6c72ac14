package processor

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

var defaultLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
}

// LanguageDetector reports the dominant language of a text as a lowercase
// ISO 639-1 code.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector(languages ...lingua.Language) *LanguageDetector {
	if len(languages) == 0 {
		languages = defaultLanguages
	}

	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithMinimumRelativeDistance(0.1).
			Build(),
	}
}

func (d *LanguageDetector) DetectLanguage(text string) (string, bool) {
	if d == nil || strings.TrimSpace(text) == "" {
		return "", false
	}

	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}
