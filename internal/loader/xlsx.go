package loader

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/model"
)

// XLSXOptions configures XLSX parsing.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX parses a roster export from an XLSX workbook. The first row of
// the selected sheet is the header.
func ReadXLSX(path string, opts XLSXOptions) ([]model.AssignmentRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open xlsx")
	}

	sheet, err := selectSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("loader: empty xlsx sheet")
	}

	idx, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var records []model.AssignmentRecord
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		rec, err := idx.parseRow(cells, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	zap.L().Debug("loader: xlsx parsed",
		zap.String("sheet", sheet.Name), zap.Int("records", len(records)))
	return records, nil
}

func selectSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("loader: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("loader: sheet index %d out of range (%d sheets)",
			opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = cell.String()
	}
	return out
}
