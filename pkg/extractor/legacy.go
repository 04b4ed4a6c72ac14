package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/extrame/xls"
	"go.uber.org/zap"
)

// legacySections reads a BIFF workbook with the same header and row rules
// as the OOXML path.
func (e *Extractor) legacySections(ctx context.Context, data []byte) (sections []section, err error) {
	// the BIFF reader panics on malformed records
	defer func() {
		if r := recover(); r != nil {
			sections, err = nil, fmt.Errorf("invalid workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb == nil {
		return nil, errors.New("failed to open workbook: no workbook stream")
	}

	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, rows, err := legacySheet(wb, i)
		if err != nil {
			e.logger.Warn("error reading sheet", zap.String("sheet", name), zap.Int("index", i), zap.Error(err))
			continue
		}
		sections = append(sections, section{location: i + 1, fragments: rowFragments(rows)})
	}

	return sections, nil
}

func legacySheet(wb *xls.WorkBook, index int) (name string, rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("sheet %d: %v", index+1, r)
		}
	}()

	sheet := wb.GetSheet(index)
	if sheet == nil {
		return "", nil, fmt.Errorf("sheet %d not found", index+1)
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := legacyRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}

		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return sheet.Name, rows, nil
}

// legacyRow returns nil for rows the sheet does not define.
func legacyRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
