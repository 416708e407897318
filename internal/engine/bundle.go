package engine

import (
	"fmt"

	"github.com/sells-group/rostermine/internal/model"
)

// categoryNames maps rule types to human-readable analysis categories.
var categoryNames = map[model.RuleType]string{
	model.RuleWeeklyLimit:         "weekly_limits",
	model.RuleWeekdayRestriction:  "weekday_restrictions",
	model.RuleWorkTypeRestriction: "work_type_restrictions",
	model.RuleAffinity:            "pair_affinities",
	model.RuleAvoidance:           "pair_avoidances",
}

// mediumConfidenceFloor separates the medium band from requires-verification.
const mediumConfidenceFloor = 0.65

// buildBundle assembles the result bundle from validated, ranked rules.
// Rule order is preserved, so entries inside every list stay in confidence
// order.
func buildBundle(rules []model.Rule, diags []string, highThreshold float64) *model.ResultBundle {
	bundle := &model.ResultBundle{
		Rules:     rules,
		RuleCount: len(rules),
		HumanReadable: model.HumanReadable{
			Categories: make(map[string][]string),
		},
		Diagnostics: diags,
	}

	for i, r := range rules {
		category := categoryNames[r.Type]
		if category == "" {
			category = string(r.Type)
		}
		line := fmt.Sprintf("%s (confidence %.2f, segment %s)", r.Description, r.Confidence, r.Segment)
		bundle.HumanReadable.Categories[category] = append(bundle.HumanReadable.Categories[category], line)

		switch {
		case r.Confidence >= highThreshold:
			bundle.HumanReadable.HighConfidence = append(bundle.HumanReadable.HighConfidence, line)
			bundle.HighConfidenceRules = append(bundle.HighConfidenceRules, r)
		case r.Confidence >= mediumConfidenceFloor:
			bundle.HumanReadable.MediumConfidence = append(bundle.HumanReadable.MediumConfidence, line)
		default:
			bundle.HumanReadable.NeedsReview = append(bundle.HumanReadable.NeedsReview, line)
		}

		entry := model.ConstraintEntry{
			ID:          fmt.Sprintf("rule-%03d", i+1),
			Type:        string(r.Type),
			Category:    category,
			Description: r.Description,
			Confidence:  r.Confidence,
		}
		switch strength(r, highThreshold) {
		case 1:
			entry.Priority = 1
			bundle.MachineReadable.HardConstraints = append(bundle.MachineReadable.HardConstraints, entry)
		case 2:
			entry.Priority = 2
			bundle.MachineReadable.SoftConstraints = append(bundle.MachineReadable.SoftConstraints, entry)
		default:
			entry.Priority = 3
			bundle.MachineReadable.Preferences = append(bundle.MachineReadable.Preferences, entry)
		}
	}

	return bundle
}

// strength buckets a rule for the machine-readable view: 1 = hard
// (nature-confirmed bound or near-certain statistical evidence), 2 = soft
// (high confidence), 3 = preference.
func strength(r model.Rule, highThreshold float64) int {
	if r.Nature != nil {
		switch r.Nature.Nature {
		case model.NatureUpperBound, model.NatureSoftFloor:
			return 1
		}
	}
	if r.Confidence >= 0.95 {
		return 1
	}
	if r.Confidence >= highThreshold {
		return 2
	}
	return 3
}
