// Package loader imports assignment records from roster exports: CSV and
// XLSX files, locally or fetched from an FTP drop. The loader maps header
// names onto the record columns and reports missing required columns as a
// data integrity failure before any analysis starts.
package loader

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/worklog"
)

// columns maps header aliases (lowercased) to canonical column names.
var columns = map[string]string{
	"timestamp":      "timestamp",
	"date":           "timestamp",
	"work_date":      "timestamp",
	"staff_id":       "staff_id",
	"staff":          "staff_id",
	"employee_id":    "staff_id",
	"role":           "role",
	"position":       "role",
	"work_type_code": "work_type_code",
	"work_type":      "work_type_code",
	"shift_code":     "work_type_code",
	"allocated_slots": "allocated_slots",
	"slots":           "allocated_slots",
	"hours":           "allocated_slots",
}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// columnIndex resolves a header row to canonical column positions. The two
// required columns must both be present.
type columnIndex map[string]int

func mapHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex)
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		if canonical, ok := columns[name]; ok {
			if _, dup := idx[canonical]; !dup {
				idx[canonical] = i
			}
		}
	}

	var missing []string
	for _, required := range []string{"staff_id", "timestamp"} {
		if _, ok := idx[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &worklog.DataIntegrityError{Missing: missing}
	}
	return idx, nil
}

// parseRow converts one data row into an assignment record. Rows shorter
// than the referenced columns or with unparseable required values are
// rejected with an error naming the row number.
func (idx columnIndex) parseRow(row []string, rowNum int) (model.AssignmentRecord, error) {
	var rec model.AssignmentRecord

	cell := func(canonical string) string {
		i, ok := idx[canonical]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts := cell("timestamp")
	if ts == "" {
		return rec, eris.Errorf("loader: row %d: empty timestamp", rowNum)
	}
	parsed, err := parseTimestamp(ts)
	if err != nil {
		return rec, eris.Wrapf(err, "loader: row %d", rowNum)
	}
	rec.Timestamp = parsed

	rec.StaffID = cell("staff_id")
	if rec.StaffID == "" {
		return rec, eris.Errorf("loader: row %d: empty staff_id", rowNum)
	}

	rec.Role = cell("role")
	rec.WorkTypeCode = cell("work_type_code")

	if slots := cell("allocated_slots"); slots != "" {
		v, err := strconv.ParseFloat(slots, 64)
		if err != nil {
			return rec, eris.Wrapf(err, "loader: row %d: allocated_slots %q", rowNum, slots)
		}
		if v < 0 {
			return rec, eris.Errorf("loader: row %d: negative allocated_slots %v", rowNum, v)
		}
		rec.AllocatedSlots = v
	}

	return rec, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, eris.Errorf("loader: unparseable timestamp %q", value)
}
