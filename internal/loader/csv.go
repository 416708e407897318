package loader

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/model"
)

// CSVOptions configures CSV parsing.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
}

// ReadCSV parses a roster export from r. The first row is the header; rows
// with a different field count are tolerated as long as the mapped columns
// are present.
func ReadCSV(r io.Reader, opts CSVOptions) ([]model.AssignmentRecord, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("loader: empty csv input")
	}
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv header")
	}

	idx, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []model.AssignmentRecord
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read csv row %d", rowNum)
		}
		rowNum++

		if isBlank(row) {
			continue
		}
		rec, err := idx.parseRow(row, rowNum)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	zap.L().Debug("loader: csv parsed", zap.Int("records", len(records)))
	return records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
