// Package worklog derives the working log from raw assignment records:
// the filtered view of rows with actual time worked, extended with the
// calendar attributes the miners group by.
package worklog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/rostermine/internal/model"
)

// MonthPeriod tags the position of a date inside its month.
type MonthPeriod string

const (
	PeriodEarly MonthPeriod = "early" // day 1-10
	PeriodMid   MonthPeriod = "mid"   // day 11-20
	PeriodLate  MonthPeriod = "late"  // day 21+
)

// DataIntegrityError reports structurally invalid input: required columns
// missing from the assignment records. It is fatal to the run.
type DataIntegrityError struct {
	Missing []string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("worklog: required columns missing: %s", strings.Join(e.Missing, ", "))
}

// Entry is one working observation with its derived calendar attributes.
type Entry struct {
	model.AssignmentRecord

	Date        string      // YYYY-MM-DD
	ISOYear     int
	ISOWeek     int
	Weekday     int // Monday = 0 .. Sunday = 6
	MonthPeriod MonthPeriod
}

// WeekKey identifies an ISO week across year boundaries, e.g. "2026-W09".
func (e Entry) WeekKey() string {
	return fmt.Sprintf("%04d-W%02d", e.ISOYear, e.ISOWeek)
}

// Log is the derived working log. It is read-only after construction;
// restricted views produced by By* methods share the underlying entries.
type Log struct {
	entries []Entry
}

// New filters the raw records to working rows and derives calendar columns.
// Records are never dropped for any reason other than a zero allocation; a
// record with a zero timestamp or empty staff id indicates the required
// columns were absent and fails the whole run.
func New(records []model.AssignmentRecord) (*Log, error) {
	var missing []string
	for _, r := range records {
		if r.Timestamp.IsZero() {
			missing = appendUnique(missing, "timestamp")
		}
		if r.StaffID == "" {
			missing = appendUnique(missing, "staff_id")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &DataIntegrityError{Missing: missing}
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		if !r.Working() {
			continue
		}
		entries = append(entries, derive(r))
	}

	// Stable order keeps every downstream grouping deterministic.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		if entries[i].StaffID != entries[j].StaffID {
			return entries[i].StaffID < entries[j].StaffID
		}
		return entries[i].WorkTypeCode < entries[j].WorkTypeCode
	})

	return &Log{entries: entries}, nil
}

func derive(r model.AssignmentRecord) Entry {
	isoYear, isoWeek := r.Timestamp.ISOWeek()
	return Entry{
		AssignmentRecord: r,
		Date:             r.Timestamp.Format("2006-01-02"),
		ISOYear:          isoYear,
		ISOWeek:          isoWeek,
		Weekday:          mondayIndex(r.Timestamp.Weekday()),
		MonthPeriod:      monthPeriod(r.Timestamp.Day()),
	}
}

func mondayIndex(d time.Weekday) int {
	// time.Sunday is 0; shift to Monday = 0 .. Sunday = 6.
	return (int(d) + 6) % 7
}

func monthPeriod(day int) MonthPeriod {
	switch {
	case day <= 10:
		return PeriodEarly
	case day <= 20:
		return PeriodMid
	default:
		return PeriodLate
	}
}

// Entries returns the working entries in deterministic order. Callers must
// not mutate the returned slice.
func (l *Log) Entries() []Entry { return l.entries }

// Len returns the number of working observations.
func (l *Log) Len() int { return len(l.entries) }

// StaffIDs returns the distinct staff identifiers in sorted order.
func (l *Log) StaffIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range l.entries {
		if _, ok := seen[e.StaffID]; !ok {
			seen[e.StaffID] = struct{}{}
			ids = append(ids, e.StaffID)
		}
	}
	sort.Strings(ids)
	return ids
}

// WorkTypeCodes returns the distinct non-empty work type codes in sorted order.
func (l *Log) WorkTypeCodes() []string {
	return l.distinct(func(e Entry) string { return e.WorkTypeCode })
}

// Roles returns the distinct non-empty roles in sorted order.
func (l *Log) Roles() []string {
	return l.distinct(func(e Entry) string { return e.Role })
}

func (l *Log) distinct(key func(Entry) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range l.entries {
		k := key(e)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ByStaff groups entries per staff id. The returned map shares entries with
// the log; group order within each slice follows the log's ordering.
func (l *Log) ByStaff() map[string][]Entry {
	return groupBy(l.entries, func(e Entry) string { return e.StaffID })
}

// ByRole returns a restricted view containing only entries with the given role.
func (l *Log) ByRole(role string) *Log {
	return l.filter(func(e Entry) bool { return e.Role == role })
}

// ByWorkType returns a restricted view containing only entries with the
// given work type code.
func (l *Log) ByWorkType(code string) *Log {
	return l.filter(func(e Entry) bool { return e.WorkTypeCode == code })
}

func (l *Log) filter(keep func(Entry) bool) *Log {
	var out []Entry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return &Log{entries: out}
}

// DateCount returns the number of distinct dates in the log, the
// total-opportunity denominator for pairwise expectation.
func (l *Log) DateCount() int {
	seen := make(map[string]struct{})
	for _, e := range l.entries {
		seen[e.Date] = struct{}{}
	}
	return len(seen)
}

// DateStaffIndex returns date -> sorted distinct staff working that date
// under each work type code, keyed "date|work_type". Built once and shared
// by the pairwise miner so only pairs that actually co-occur are enumerated.
func (l *Log) DateStaffIndex() map[string][]string {
	sets := make(map[string]map[string]struct{})
	for _, e := range l.entries {
		k := e.Date + "|" + e.WorkTypeCode
		if sets[k] == nil {
			sets[k] = make(map[string]struct{})
		}
		sets[k][e.StaffID] = struct{}{}
	}

	idx := make(map[string][]string, len(sets))
	for k, set := range sets {
		staff := make([]string, 0, len(set))
		for id := range set {
			staff = append(staff, id)
		}
		sort.Strings(staff)
		idx[k] = staff
	}
	return idx
}

func groupBy(entries []Entry, key func(Entry) string) map[string][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		k := key(e)
		groups[k] = append(groups[k], e)
	}
	return groups
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
