package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSX writes the same table as CSV into a single-sheet workbook. Numbers
// stay numeric cells.
func XLSX[R Record](rows []R, labels map[string]string, sheet string) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	f := excelize.NewFile()
	defer f.Close()

	name := defaultSheet
	if sheet != "" && sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
		name = sheet
	}

	keys := columns(rows)
	for i, h := range header(keys, labels) {
		if err := setCell(f, name, i+1, 1, h); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		vals := valuesByKey(row)
		for c, k := range keys {
			v := vals[k]
			if p, ok := v.(*float64); ok {
				if p == nil {
					continue
				}
				v = *p
			}
			if v == nil {
				continue
			}
			if err := setCell(f, name, c+1, r+2, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, ref, v)
}
