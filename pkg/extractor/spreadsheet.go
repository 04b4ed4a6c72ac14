package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const cellSeparator = " | "

// ole2Signature opens every legacy BIFF (.xls) workbook.
var ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0}

// spreadsheetSections reads sheets in workbook order. The first row of each
// sheet names the columns; every following row becomes one fragment.
func (e *Extractor) spreadsheetSections(ctx context.Context, data []byte) ([]section, error) {
	if bytes.HasPrefix(data, ole2Signature) {
		return e.legacySections(ctx, data)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sections []section
	for i, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(name)
		if err != nil {
			e.logger.Warn("error reading sheet", zap.String("sheet", name), zap.Error(err))
			continue
		}
		sections = append(sections, section{location: i + 1, fragments: rowFragments(rows)})
	}

	return sections, nil
}

// rowFragments renders each data row as "column: value" pairs.
func rowFragments(rows [][]string) []string {
	if len(rows) < 2 {
		return nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	columns := columnNames(rows[0], width)

	var fragments []string
	for _, row := range rows[1:] {
		var parts []string
		for c, cell := range row {
			value := strings.TrimSpace(cell)
			if value == "" || strings.EqualFold(value, "nan") {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", columns[c], value))
		}
		if len(parts) > 0 {
			fragments = append(fragments, strings.Join(parts, cellSeparator))
		}
	}
	return fragments
}

// columnNames names blank headers "Unnamed: <index>" and suffixes repeated
// names with ".1", ".2", ...
func columnNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for c := 0; c < width; c++ {
		name := ""
		if c < len(header) {
			name = strings.TrimSpace(header[c])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", c)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		names[c] = name
	}
	return names
}
