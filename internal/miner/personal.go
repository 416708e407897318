// Package miner implements rule discovery over the working log: per-staff
// personal rules, pairwise relational rules, and the segment partitioner
// that re-runs both on restricted views.
package miner

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/classify"
	"github.com/sells-group/rostermine/internal/config"
	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/stats"
	"github.com/sells-group/rostermine/internal/worklog"
)

// PersonalMiner discovers per-staff rules: weekly limits, weekday
// restrictions, and work-type restrictions.
type PersonalMiner struct {
	cfg        config.EngineConfig
	classifier classify.Classifier
}

// NewPersonalMiner creates a personal miner. The classifier annotates
// weekly-limit rules with their constraint nature; the miner depends only on
// the interface and degrades to an unannotated rule when classification
// fails.
func NewPersonalMiner(cfg config.EngineConfig, classifier classify.Classifier) *PersonalMiner {
	return &PersonalMiner{cfg: cfg, classifier: classifier}
}

// Mine discovers personal rules for every staff subject with enough working
// observations. A subject whose statistics cannot be computed is skipped;
// the run never aborts on a single subject.
func (m *PersonalMiner) Mine(log *worklog.Log, segment string) []model.Rule {
	var rules []model.Rule
	byStaff := log.ByStaff()
	allCodes := log.WorkTypeCodes()

	for _, staffID := range log.StaffIDs() {
		entries := byStaff[staffID]
		if len(entries) < m.cfg.MinSampleSize {
			continue
		}

		if r := m.mineWeeklyLimit(staffID, entries, segment); r != nil {
			rules = append(rules, *r)
		}
		if r := m.mineWeekdayRestriction(staffID, entries, segment); r != nil {
			rules = append(rules, *r)
		}
		if r := m.mineWorkTypeRestriction(staffID, entries, allCodes, segment); r != nil {
			rules = append(rules, *r)
		}
		rules = append(rules, m.mineTimeOfDay(staffID, entries, segment)...)
	}

	return rules
}

// mineWeeklyLimit buckets working days by ISO week and looks for a
// consistent per-week ceiling: low dispersion with the maximum at or below
// the 95th-percentile consistency limit.
func (m *PersonalMiner) mineWeeklyLimit(staffID string, entries []worklog.Entry, segment string) *model.Rule {
	weeks := weeklyDayCounts(entries)
	if len(weeks) < m.cfg.MinSampleSize {
		return nil
	}

	values := make([]float64, len(weeks))
	obs := make([]classify.Observation, len(weeks))
	for i, w := range weeks {
		values[i] = float64(w.days)
		obs[i] = classify.Observation{Value: float64(w.days), Period: w.period}
	}

	cv, err := stats.DispersionRatio(values)
	if err != nil {
		zap.L().Debug("miner: weekly dispersion skipped",
			zap.String("staff_id", staffID), zap.Error(err))
		return nil
	}
	limit, err := stats.Quantile(values, 0.95)
	if err != nil {
		return nil
	}

	maxWeekly := values[0]
	for _, v := range values[1:] {
		maxWeekly = math.Max(maxWeekly, v)
	}

	if maxWeekly > limit || cv >= 1.0 {
		return nil
	}

	confidence := clamp01(1 - cv)
	if confidence < m.cfg.WeeklyLimitConfidence {
		return nil
	}

	threshold := math.Round(limit)
	rule := &model.Rule{
		Subject: staffID,
		Type:    model.RuleWeeklyLimit,
		Description: fmt.Sprintf("%s works at most %.0f day(s) per week (mean %.1f over %d weeks)",
			staffID, threshold, stats.Mean(values), len(weeks)),
		Confidence: confidence,
		Evidence: map[string]any{
			"weeks_observed":   len(weeks),
			"mean_weekly":      stats.Mean(values),
			"max_weekly":       maxWeekly,
			"dispersion_ratio": cv,
			"p95_limit":        limit,
		},
		Segment: segment,
	}

	verdict, err := m.classifier.Classify(threshold, obs)
	if err != nil {
		// Degraded path: the basic weekly-limit confidence stands on its own.
		zap.L().Debug("miner: nature classification unavailable",
			zap.String("staff_id", staffID), zap.Error(err))
		return rule
	}
	rule.Nature = verdict
	return rule
}

// mineWeekdayRestriction tallies working days into the seven weekday buckets
// and emits a restriction rule when the distribution deviates significantly
// from uniform.
func (m *PersonalMiner) mineWeekdayRestriction(staffID string, entries []worklog.Entry, segment string) *model.Rule {
	var counts [7]int
	seen := make(map[string]struct{})
	for _, e := range entries {
		if _, ok := seen[e.Date]; ok {
			continue
		}
		seen[e.Date] = struct{}{}
		counts[e.Weekday]++
	}

	chi2, p, err := stats.UniformityTest(counts[:])
	if err != nil {
		if !eris.Is(err, stats.ErrInsufficientSample) {
			zap.L().Debug("miner: weekday uniformity test failed",
				zap.String("staff_id", staffID), zap.Error(err))
		}
		return nil
	}
	if p >= m.cfg.SignificanceAlpha {
		return nil
	}

	var days []string
	for i, c := range counts {
		if c > 0 {
			days = append(days, model.WeekdayName(i))
		}
	}

	return &model.Rule{
		Subject: staffID,
		Type:    model.RuleWeekdayRestriction,
		Description: fmt.Sprintf("%s works only on %s", staffID,
			strings.Join(days, ", ")),
		Confidence: clamp01(1 - p),
		Evidence: map[string]any{
			"weekday_counts": counts[:],
			"weekdays":       days,
			"chi_square":     chi2,
			"p_value":        p,
		},
		Segment: segment,
	}
}

// mineWorkTypeRestriction compares the subject's distinct work-type codes
// against the codes observed system-wide.
func (m *PersonalMiner) mineWorkTypeRestriction(staffID string, entries []worklog.Entry, allCodes []string, segment string) *model.Rule {
	if len(allCodes) < 2 {
		return nil
	}

	used := make(map[string]struct{})
	for _, e := range entries {
		if e.WorkTypeCode != "" {
			used[e.WorkTypeCode] = struct{}{}
		}
	}
	if len(used) == 0 {
		return nil
	}

	ratio := float64(len(used)) / float64(len(allCodes))
	if ratio >= m.cfg.CodeRestrictionRatio {
		return nil
	}

	codes := make([]string, 0, len(used))
	for c := range used {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	return &model.Rule{
		Subject: staffID,
		Type:    model.RuleWorkTypeRestriction,
		Description: fmt.Sprintf("%s is assigned only work type(s) %s (%d of %d codes)",
			staffID, strings.Join(codes, ", "), len(used), len(allCodes)),
		Confidence: clamp01(1 - ratio),
		Evidence: map[string]any{
			"codes_used":  codes,
			"codes_total": len(allCodes),
			"usage_ratio": ratio,
		},
		Segment: segment,
	}
}

// mineTimeOfDay is a documented extension point: the assignment records
// carry no intra-day granularity, so no time-of-day rules can be derived
// from the current source data.
func (m *PersonalMiner) mineTimeOfDay(string, []worklog.Entry, string) []model.Rule {
	return nil
}

// week aggregates one ISO week of a subject's working days.
type week struct {
	key    string
	days   int
	period string
}

// weeklyDayCounts counts distinct working days per ISO week, tagged with the
// month period of the week's first observation. Weeks come back in
// chronological key order.
func weeklyDayCounts(entries []worklog.Entry) []week {
	dates := make(map[string]map[string]struct{})
	periods := make(map[string]string)
	for _, e := range entries {
		k := e.WeekKey()
		if dates[k] == nil {
			dates[k] = make(map[string]struct{})
			periods[k] = string(e.MonthPeriod)
		}
		dates[k][e.Date] = struct{}{}
	}

	keys := make([]string, 0, len(dates))
	for k := range dates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	weeks := make([]week, len(keys))
	for i, k := range keys {
		weeks[i] = week{key: k, days: len(dates[k]), period: periods[k]}
	}
	return weeks
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
