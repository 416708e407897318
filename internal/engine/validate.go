package engine

import (
	"sort"

	"github.com/sells-group/rostermine/internal/model"
)

// Validate applies the final gates to mined rules: minimum confidence,
// non-empty evidence, and (subject, rule type, segment) deduplication
// keeping the highest confidence. Output is sorted descending by confidence
// with ties broken by subject, rule type, then segment, so the result is
// stable and re-validating an already-validated list returns it unchanged.
func Validate(rules []model.Rule, minConfidence float64) []model.Rule {
	best := make(map[string]model.Rule)
	for _, r := range rules {
		if r.Confidence < minConfidence || r.Confidence > 1 {
			continue
		}
		if len(r.Evidence) == 0 {
			continue
		}
		key := r.SubjectKey() + "\x00" + string(r.Type) + "\x00" + r.Segment
		if prev, ok := best[key]; !ok || r.Confidence > prev.Confidence {
			best[key] = r
		}
	}

	out := make([]model.Rule, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].SubjectKey() != out[j].SubjectKey() {
			return out[i].SubjectKey() < out[j].SubjectKey()
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}
