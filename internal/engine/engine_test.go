package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rostermine/internal/config"
	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/worklog"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		MinSampleSize:           5,
		SignificanceAlpha:       0.05,
		MinConfidence:           0.5,
		HighConfidenceThreshold: 0.8,
		WeeklyLimitConfidence:   0.7,
		CodeRestrictionRatio:    0.5,
		AffinityRatio:           2.0,
		MaxStaffForPairwise:     200,
		Workers:                 4,
	}
}

var windowStart = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // Monday

// thirtyDayLog is the reference scenario: staff A works every Monday,
// Wednesday and Friday; staff B and C are always co-scheduled on their
// shared Tuesday/Thursday shifts.
func thirtyDayLog() []model.AssignmentRecord {
	var records []model.AssignmentRecord
	day := func(offset int, staff, code string) model.AssignmentRecord {
		return model.AssignmentRecord{
			Timestamp:      windowStart.AddDate(0, 0, offset),
			StaffID:        staff,
			WorkTypeCode:   code,
			AllocatedSlots: 8,
		}
	}
	for offset := 0; offset < 30; offset++ {
		switch offset % 7 {
		case 0, 2, 4: // Mon, Wed, Fri
			records = append(records, day(offset, "A", "D"))
		}
	}
	for w := 0; w < 4; w++ {
		for _, d := range []int{1, 3} { // Tue, Thu
			records = append(records, day(w*7+d, "B", "T"))
			records = append(records, day(w*7+d, "C", "T"))
		}
	}
	return records
}

func TestEngine_EndToEndScenario(t *testing.T) {
	e := New(testEngineConfig())
	bundle, err := e.Run(context.Background(), thirtyDayLog())
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, len(bundle.Rules), bundle.RuleCount)

	var weekdayA, affinityBC *model.Rule
	for i := range bundle.Rules {
		r := &bundle.Rules[i]
		if r.Type == model.RuleWeekdayRestriction && r.Subject == "A" && r.Segment == model.SegmentOverall {
			weekdayA = r
		}
		if r.Type == model.RuleAffinity && r.Subject == "B" && r.PairSubject == "C" && r.Segment == model.SegmentOverall {
			affinityBC = r
		}
	}

	require.NotNil(t, weekdayA, "expected a weekday rule for staff A")
	assert.GreaterOrEqual(t, weekdayA.Confidence, 0.9)
	assert.Equal(t, []string{"Monday", "Wednesday", "Friday"}, weekdayA.Evidence["weekdays"])

	require.NotNil(t, affinityBC, "expected an affinity rule for pair B+C")
	assert.GreaterOrEqual(t, affinityBC.Confidence, 0.8)
}

func TestEngine_Determinism(t *testing.T) {
	e := New(testEngineConfig())

	first, err := e.Run(context.Background(), thirtyDayLog())
	require.NoError(t, err)
	second, err := e.Run(context.Background(), thirtyDayLog())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEngine_ConfidenceBoundsAndEvidence(t *testing.T) {
	e := New(testEngineConfig())
	bundle, err := e.Run(context.Background(), thirtyDayLog())
	require.NoError(t, err)

	for _, r := range bundle.Rules {
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		assert.NotEmpty(t, r.Evidence, "rule %s/%s has no evidence", r.SubjectKey(), r.Type)
	}
}

func TestEngine_EmptyInputYieldsEmptyBundle(t *testing.T) {
	e := New(testEngineConfig())
	bundle, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, bundle.RuleCount)
	assert.Empty(t, bundle.Rules)
}

func TestEngine_StructuralErrorIsFatal(t *testing.T) {
	e := New(testEngineConfig())
	_, err := e.Run(context.Background(), []model.AssignmentRecord{
		{StaffID: "A", AllocatedSlots: 8}, // missing timestamp
	})
	require.Error(t, err)

	var die *worklog.DataIntegrityError
	assert.ErrorAs(t, err, &die)
}

func TestEngine_SmallSubjectsProduceNoRules(t *testing.T) {
	// Every staff member has fewer than min_sample_size observations.
	var records []model.AssignmentRecord
	for i, staff := range []string{"x", "y", "z"} {
		for d := 0; d < 4; d++ {
			records = append(records, model.AssignmentRecord{
				Timestamp:      windowStart.AddDate(0, 0, i+d*7),
				StaffID:        staff,
				AllocatedSlots: 8,
			})
		}
	}
	e := New(testEngineConfig())
	bundle, err := e.Run(context.Background(), records)
	require.NoError(t, err)
	for _, r := range bundle.Rules {
		assert.NotContains(t, []model.RuleType{
			model.RuleWeeklyLimit, model.RuleWeekdayRestriction, model.RuleWorkTypeRestriction,
		}, r.Type)
	}
}

func TestEngine_BasicClassifierConfig(t *testing.T) {
	cfg := testEngineConfig()
	cfg.BasicClassifier = true

	bundle, err := New(cfg).Run(context.Background(), thirtyDayLog())
	require.NoError(t, err)
	require.NotNil(t, bundle)
}

func TestEngine_HighConfidenceSummary(t *testing.T) {
	e := New(testEngineConfig())
	bundle, err := e.Run(context.Background(), thirtyDayLog())
	require.NoError(t, err)

	for _, r := range bundle.HighConfidenceRules {
		assert.GreaterOrEqual(t, r.Confidence, 0.8)
	}
	assert.Len(t, bundle.HumanReadable.HighConfidence, len(bundle.HighConfidenceRules))
}
