// Package extractor turns uploaded PDF and spreadsheet bytes into an ordered
// sequence of line units.
//
// Both strategies share one contract: fragments are trimmed, anything not
// longer than the minimum line length is dropped, and surviving fragments are
// numbered 1..N across the whole document regardless of the page or sheet
// they came from. A page or sheet that cannot be read is skipped with a
// warning; only a document without a single usable fragment is an error.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xhad/docsift/internal/models"
	"go.uber.org/zap"
)

// ExtractionError reports a document that is unparsable or has no usable text.
type ExtractionError struct {
	Format models.Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Format.Label(), e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type ExtractorConfig struct {
	MinLineLength int
	Logger        *zap.Logger
}

type Extractor struct {
	config ExtractorConfig
	logger *zap.Logger
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.MinLineLength == 0 {
		config.MinLineLength = 10
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Extractor{
		config: config,
		logger: config.Logger,
	}
}

// Detect maps a filename to a supported document format.
func Detect(filename string) (models.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return models.FormatPDF, nil
	case ".xlsx", ".xlsm", ".xls":
		return models.FormatSpreadsheet, nil
	default:
		return "", fmt.Errorf("unsupported file type: %q", filepath.Ext(filename))
	}
}

// Extract parses data as the declared format and returns its line units.
func (e *Extractor) Extract(ctx context.Context, data []byte, format models.Format) ([]models.LineUnit, error) {
	var (
		sections []section
		err      error
	)

	switch format {
	case models.FormatPDF:
		sections, err = e.pdfSections(ctx, data)
	case models.FormatSpreadsheet:
		sections, err = e.spreadsheetSections(ctx, data)
	default:
		return nil, &ExtractionError{Format: format, Err: fmt.Errorf("no parser for format %q", format)}
	}
	if err != nil {
		return nil, &ExtractionError{Format: format, Err: err}
	}

	units := e.number(sections)
	if len(units) == 0 {
		return nil, &ExtractionError{Format: format, Err: fmt.Errorf("no meaningful text found in %s", format.Label())}
	}

	e.logger.Debug("extracted document",
		zap.String("format", string(format)),
		zap.Int("sections", len(sections)),
		zap.Int("lines", len(units)))

	return units, nil
}

// section is the raw text of one page or sheet.
type section struct {
	location  int
	fragments []string
}

// number filters fragments and assigns global sequence indexes.
func (e *Extractor) number(sections []section) []models.LineUnit {
	var units []models.LineUnit
	for _, s := range sections {
		for _, fragment := range s.fragments {
			text := strings.TrimSpace(strings.ReplaceAll(fragment, "\x00", ""))
			if utf8.RuneCountInString(text) <= e.config.MinLineLength {
				continue
			}
			units = append(units, models.LineUnit{
				SequenceIndex: len(units) + 1,
				Location:      s.location,
				Text:          text,
			})
		}
	}
	return units
}
