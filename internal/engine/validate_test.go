package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rostermine/internal/model"
)

func mkRule(subject string, rt model.RuleType, segment string, conf float64) model.Rule {
	return model.Rule{
		Subject:     subject,
		Type:        rt,
		Segment:     segment,
		Confidence:  conf,
		Description: subject + " rule",
		Evidence:    map[string]any{"n": 10},
	}
}

func TestValidate_FiltersLowConfidence(t *testing.T) {
	rules := []model.Rule{
		mkRule("a", model.RuleWeeklyLimit, "overall", 0.9),
		mkRule("b", model.RuleWeeklyLimit, "overall", 0.4),
	}
	out := Validate(rules, 0.5)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Subject)
}

func TestValidate_RequiresEvidence(t *testing.T) {
	noEvidence := mkRule("a", model.RuleWeeklyLimit, "overall", 0.9)
	noEvidence.Evidence = nil
	out := Validate([]model.Rule{noEvidence}, 0.5)
	assert.Empty(t, out)
}

func TestValidate_DeduplicatesKeepingHighest(t *testing.T) {
	rules := []model.Rule{
		mkRule("a", model.RuleWeeklyLimit, "overall", 0.7),
		mkRule("a", model.RuleWeeklyLimit, "overall", 0.9),
		mkRule("a", model.RuleWeeklyLimit, "role:nurse", 0.6), // different segment survives
	}
	out := Validate(rules, 0.5)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.9, out[0].Confidence, 1e-9)
	assert.Equal(t, "role:nurse", out[1].Segment)
}

func TestValidate_SortsByConfidenceThenSubject(t *testing.T) {
	rules := []model.Rule{
		mkRule("zed", model.RuleWeeklyLimit, "overall", 0.8),
		mkRule("amy", model.RuleWeeklyLimit, "overall", 0.8),
		mkRule("mia", model.RuleWeeklyLimit, "overall", 0.95),
	}
	out := Validate(rules, 0.5)
	require.Len(t, out, 3)
	assert.Equal(t, "mia", out[0].Subject)
	assert.Equal(t, "amy", out[1].Subject)
	assert.Equal(t, "zed", out[2].Subject)
}

func TestValidate_Idempotent(t *testing.T) {
	rules := []model.Rule{
		mkRule("zed", model.RuleWeeklyLimit, "overall", 0.8),
		mkRule("amy", model.RuleWeekdayRestriction, "overall", 0.95),
		mkRule("amy", model.RuleWeeklyLimit, "role:nurse", 0.7),
	}
	once := Validate(rules, 0.5)
	twice := Validate(once, 0.5)
	assert.Equal(t, once, twice)
}

func TestBuildBundle_StrengthBuckets(t *testing.T) {
	hard := mkRule("a", model.RuleWeeklyLimit, "overall", 0.75)
	hard.Nature = &model.NatureVerdict{Nature: model.NatureUpperBound, ThresholdValue: 4, Confidence: 0.9}
	soft := mkRule("b", model.RuleWeekdayRestriction, "overall", 0.85)
	pref := mkRule("c", model.RuleAvoidance, "overall", 0.6)

	bundle := buildBundle(Validate([]model.Rule{hard, soft, pref}, 0.5), nil, 0.8)

	require.Len(t, bundle.MachineReadable.HardConstraints, 1)
	assert.Equal(t, "weekly_limits", bundle.MachineReadable.HardConstraints[0].Category)
	assert.Equal(t, 1, bundle.MachineReadable.HardConstraints[0].Priority)
	require.Len(t, bundle.MachineReadable.SoftConstraints, 1)
	require.Len(t, bundle.MachineReadable.Preferences, 1)
	assert.Equal(t, 3, bundle.RuleCount)
}

func TestBuildBundle_ConfidenceBands(t *testing.T) {
	rules := Validate([]model.Rule{
		mkRule("a", model.RuleWeeklyLimit, "overall", 0.92),
		mkRule("b", model.RuleWeeklyLimit, "overall", 0.7),
		mkRule("c", model.RuleWeeklyLimit, "overall", 0.55),
	}, 0.5)

	bundle := buildBundle(rules, []string{"note"}, 0.8)
	assert.Len(t, bundle.HumanReadable.HighConfidence, 1)
	assert.Len(t, bundle.HumanReadable.MediumConfidence, 1)
	assert.Len(t, bundle.HumanReadable.NeedsReview, 1)
	assert.Equal(t, []string{"note"}, bundle.Diagnostics)
	require.Len(t, bundle.HighConfidenceRules, 1)
	assert.Equal(t, "a", bundle.HighConfidenceRules[0].Subject)
}
