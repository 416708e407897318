package worklog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rostermine/internal/model"
)

func rec(day string, staff, role, code string, slots float64) model.AssignmentRecord {
	ts, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return model.AssignmentRecord{
		Timestamp:      ts,
		StaffID:        staff,
		Role:           role,
		WorkTypeCode:   code,
		AllocatedSlots: slots,
	}
}

func TestNew_FiltersNonWorkingRows(t *testing.T) {
	log, err := New([]model.AssignmentRecord{
		rec("2026-03-02", "alice", "nurse", "D", 8),
		rec("2026-03-02", "bob", "nurse", "", 0), // rostered but off
		rec("2026-03-03", "alice", "nurse", "N", 8),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, log.Len())
	assert.Equal(t, []string{"alice"}, log.StaffIDs())
}

func TestNew_DerivesCalendarFields(t *testing.T) {
	// 2026-03-02 is a Monday in ISO week 10.
	log, err := New([]model.AssignmentRecord{
		rec("2026-03-02", "alice", "", "D", 8),
		rec("2026-03-22", "alice", "", "D", 8), // Sunday, late month
	})
	require.NoError(t, err)

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Weekday)
	assert.Equal(t, 10, entries[0].ISOWeek)
	assert.Equal(t, "2026-W10", entries[0].WeekKey())
	assert.Equal(t, PeriodEarly, entries[0].MonthPeriod)

	assert.Equal(t, 6, entries[1].Weekday)
	assert.Equal(t, PeriodLate, entries[1].MonthPeriod)
}

func TestNew_MissingRequiredColumns(t *testing.T) {
	_, err := New([]model.AssignmentRecord{
		{StaffID: "alice", AllocatedSlots: 8}, // zero timestamp
	})
	require.Error(t, err)

	var die *DataIntegrityError
	require.ErrorAs(t, err, &die)
	assert.Equal(t, []string{"timestamp"}, die.Missing)
}

func TestNew_MissingBothColumns(t *testing.T) {
	_, err := New([]model.AssignmentRecord{{AllocatedSlots: 8}})
	var die *DataIntegrityError
	require.ErrorAs(t, err, &die)
	assert.Equal(t, []string{"staff_id", "timestamp"}, die.Missing)
}

func TestLog_RestrictedViews(t *testing.T) {
	log, err := New([]model.AssignmentRecord{
		rec("2026-03-02", "alice", "nurse", "D", 8),
		rec("2026-03-02", "bob", "clerk", "D", 8),
		rec("2026-03-03", "alice", "nurse", "N", 8),
	})
	require.NoError(t, err)

	nurses := log.ByRole("nurse")
	assert.Equal(t, 2, nurses.Len())
	assert.Equal(t, []string{"alice"}, nurses.StaffIDs())

	days := log.ByWorkType("D")
	assert.Equal(t, 2, days.Len())
	assert.Equal(t, []string{"alice", "bob"}, days.StaffIDs())

	// Restricting must not disturb the parent log.
	assert.Equal(t, 3, log.Len())
}

func TestLog_DateStaffIndex(t *testing.T) {
	log, err := New([]model.AssignmentRecord{
		rec("2026-03-02", "bob", "", "D", 8),
		rec("2026-03-02", "alice", "", "D", 8),
		rec("2026-03-02", "carol", "", "N", 8),
	})
	require.NoError(t, err)

	idx := log.DateStaffIndex()
	assert.Equal(t, []string{"alice", "bob"}, idx["2026-03-02|D"])
	assert.Equal(t, []string{"carol"}, idx["2026-03-02|N"])
	assert.Equal(t, 1, log.DateCount())
}

func TestLog_Distincts(t *testing.T) {
	log, err := New([]model.AssignmentRecord{
		rec("2026-03-02", "alice", "nurse", "D", 8),
		rec("2026-03-03", "bob", "", "N", 8),
		rec("2026-03-04", "bob", "clerk", "", 4),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "N"}, log.WorkTypeCodes())
	assert.Equal(t, []string{"clerk", "nurse"}, log.Roles())
}
