package extractor

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// wordGap is the fraction of the font size above which a horizontal gap
// between glyphs separates words.
const wordGap = 0.15

// pdfSections reads every page in order. Each page becomes one section whose
// fragments are the page's text rows, top to bottom.
func (e *Extractor) pdfSections(ctx context.Context, data []byte) ([]section, error) {
	reader, err := openPDF(data)
	if err != nil {
		return nil, err
	}

	pageCount := reader.NumPage()
	sections := make([]section, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines, err := pageLines(reader, i)
		if err != nil {
			e.logger.Warn("failed to extract text from page", zap.Int("page", i), zap.Error(err))
			continue
		}
		sections = append(sections, section{location: i, fragments: lines})
	}

	return sections, nil
}

func openPDF(data []byte) (reader *pdf.Reader, err error) {
	// the parser panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("invalid PDF: %v", r)
		}
	}()

	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}
	return reader, nil
}

func pageLines(reader *pdf.Reader, num int) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("page %d: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return nil, nil
	}

	for _, row := range glyphRows(page.Content().Text) {
		lines = append(lines, joinGlyphs(row))
	}
	return lines, nil
}

// glyphRows groups glyphs by baseline, top to bottom. Within a row glyphs
// keep their drawing order.
func glyphRows(glyphs []pdf.Text) [][]pdf.Text {
	byLine := make(map[int64][]pdf.Text)
	var baselines []int64
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" {
			continue
		}
		y := int64(g.Y)
		if _, ok := byLine[y]; !ok {
			baselines = append(baselines, y)
		}
		byLine[y] = append(byLine[y], g)
	}

	sort.Slice(baselines, func(i, j int) bool { return baselines[i] > baselines[j] })

	rows := make([][]pdf.Text, len(baselines))
	for i, y := range baselines {
		rows[i] = byLine[y]
	}
	return rows
}

// joinGlyphs inserts a space wherever the gap between two glyphs is wider than
// wordGap times the font size. Producers that position words with TJ offsets
// instead of space glyphs rely on this.
func joinGlyphs(row []pdf.Text) string {
	var sb strings.Builder
	for i, g := range row {
		if i > 0 {
			prev := row[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wordGap*math.Abs(g.FontSize) && !hasSpaceEdge(prev.S, g.S) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(g.S)
	}
	return sb.String()
}

func hasSpaceEdge(prev, next string) bool {
	return strings.HasSuffix(prev, " ") || strings.HasPrefix(next, " ")
}
