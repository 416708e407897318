package miner

import (
	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/worklog"
)

// Segmenter re-runs the personal and pairwise miners on role- and
// work-type-restricted views of the working log. It introduces no new
// thresholds: segmented runs use exactly the same configuration as the
// overall run so results stay comparable.
type Segmenter struct {
	personal *PersonalMiner
	pairwise *PairwiseMiner
}

// NewSegmenter creates a segmenter over the given miners.
func NewSegmenter(personal *PersonalMiner, pairwise *PairwiseMiner) *Segmenter {
	return &Segmenter{personal: personal, pairwise: pairwise}
}

// Mine runs both miners per role segment and per work-type segment, tagging
// every rule with its segment. The overall log is left untouched.
func (s *Segmenter) Mine(log *worklog.Log) ([]model.Rule, []string) {
	var rules []model.Rule
	var diags []string

	for _, role := range log.Roles() {
		view := log.ByRole(role)
		segment := "role:" + role
		rules = append(rules, s.personal.Mine(view, segment)...)
		pr, d := s.pairwise.Mine(view, segment)
		rules = append(rules, pr...)
		diags = append(diags, d...)
	}

	for _, code := range log.WorkTypeCodes() {
		view := log.ByWorkType(code)
		segment := "work_type:" + code
		rules = append(rules, s.personal.Mine(view, segment)...)
		pr, d := s.pairwise.Mine(view, segment)
		rules = append(rules, pr...)
		diags = append(diags, d...)
	}

	return rules, diags
}
