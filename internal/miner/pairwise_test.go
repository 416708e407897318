package miner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rostermine/internal/model"
)

func TestPairwiseMiner_Affinity(t *testing.T) {
	// bob and carol work the same 12 days; dave fills the remaining dates so
	// the pair's expectation stays well below its observation.
	records := weekdayShifts("bob", "", "D", []int{0, 2, 4}, 4)
	records = append(records, weekdayShifts("carol", "", "D", []int{0, 2, 4}, 4)...)
	records = append(records, weekdayShifts("dave", "", "D", []int{0, 1, 2, 3, 4, 5, 6}, 4)...)

	m := NewPairwiseMiner(testEngineConfig())
	rules, diags := m.Mine(mustLog(t, records), model.SegmentOverall)
	assert.Empty(t, diags)

	affinities := rulesOfType(rules, model.RuleAffinity)
	require.Len(t, affinities, 1)

	r := affinities[0]
	assert.Equal(t, "bob", r.Subject)
	assert.Equal(t, "carol", r.PairSubject)
	assert.Greater(t, r.Confidence, 0.9)
	assert.Equal(t, 12, r.Evidence["observed"])
	assert.InDelta(t, 12.0*12.0/28.0, r.Evidence["expected"].(float64), 1e-9)
}

func TestPairwiseMiner_Avoidance(t *testing.T) {
	// eve and frank each work half the dates but never the same one.
	records := weekdayShifts("eve", "", "D", []int{0, 2, 4}, 10)
	records = append(records, weekdayShifts("frank", "", "D", []int{1, 3, 5}, 10)...)

	m := NewPairwiseMiner(testEngineConfig())
	rules, _ := m.Mine(mustLog(t, records), model.SegmentOverall)

	avoidances := rulesOfType(rules, model.RuleAvoidance)
	require.Len(t, avoidances, 1)

	r := avoidances[0]
	assert.Equal(t, "eve", r.Subject)
	assert.Equal(t, "frank", r.PairSubject)
	// expected = 30*30/60 = 15 -> confidence capped at 0.9.
	assert.InDelta(t, 0.9, r.Confidence, 1e-9)
	assert.Equal(t, 0, r.Evidence["observed"])
	assert.InDelta(t, 15.0, r.Evidence["expected"].(float64), 1e-9)
}

func TestPairwiseMiner_NoRuleForIndependentPair(t *testing.T) {
	// gina and hank overlap roughly as often as chance predicts.
	records := weekdayShifts("gina", "", "D", []int{0, 1, 2, 3}, 6)
	records = append(records, weekdayShifts("hank", "", "D", []int{2, 3, 4, 5}, 6)...)

	m := NewPairwiseMiner(testEngineConfig())
	rules, _ := m.Mine(mustLog(t, records), model.SegmentOverall)
	assert.Empty(t, rules)
}

func TestPairwiseMiner_DifferentWorkTypeIsNotCoOccurrence(t *testing.T) {
	// Same dates, different work types: no shared-shift observation, and
	// with each working every date the expectation forces an avoidance rule.
	records := weekdayShifts("ivy", "", "D", []int{0, 2, 4}, 8)
	records = append(records, weekdayShifts("jack", "", "N", []int{0, 2, 4}, 8)...)

	m := NewPairwiseMiner(testEngineConfig())
	rules, _ := m.Mine(mustLog(t, records), model.SegmentOverall)

	assert.Empty(t, rulesOfType(rules, model.RuleAffinity))
	avoidances := rulesOfType(rules, model.RuleAvoidance)
	require.Len(t, avoidances, 1)
	// expected = 24*24/24 = 24 >= 1.
	assert.InDelta(t, 24.0, avoidances[0].Evidence["expected"].(float64), 1e-9)
}

func TestPairwiseMiner_StaffCapSkipsStage(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MaxStaffForPairwise = 1

	records := weekdayShifts("bob", "", "D", []int{0}, 6)
	records = append(records, weekdayShifts("carol", "", "D", []int{0}, 6)...)

	m := NewPairwiseMiner(cfg)
	rules, diags := m.Mine(mustLog(t, records), model.SegmentOverall)
	assert.Empty(t, rules)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "exceeds cap")
}
