package miner

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/config"
	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/stats"
	"github.com/sells-group/rostermine/internal/worklog"
)

// PairwiseMiner discovers affinity and avoidance rules between staff pairs
// from co-occurrence on the same date under the same work-type code.
type PairwiseMiner struct {
	cfg config.EngineConfig
}

// NewPairwiseMiner creates a pairwise miner.
func NewPairwiseMiner(cfg config.EngineConfig) *PairwiseMiner {
	return &PairwiseMiner{cfg: cfg}
}

// avoidanceConfidenceCap bounds avoidance confidence; the expected/10
// scaling is a carried-over heuristic, not an independently justified
// formula. TODO: replace with the Poisson lower-tail once the downstream
// consumers can absorb recalibrated confidences.
const avoidanceConfidenceCap = 0.9

// Mine enumerates candidate pairs via a date index and tests each for
// affinity or avoidance. It returns the discovered rules plus diagnostic
// notes (e.g. when the staff population exceeds the pairwise cap and the
// stage is skipped rather than blowing up quadratically).
func (m *PairwiseMiner) Mine(log *worklog.Log, segment string) ([]model.Rule, []string) {
	staff := log.StaffIDs()
	if m.cfg.MaxStaffForPairwise > 0 && len(staff) > m.cfg.MaxStaffForPairwise {
		note := fmt.Sprintf("pairwise analysis skipped for segment %q: %d staff exceeds cap %d",
			segment, len(staff), m.cfg.MaxStaffForPairwise)
		zap.L().Warn("miner: "+note)
		return nil, []string{note}
	}

	totalDates := log.DateCount()
	if totalDates == 0 {
		return nil, nil
	}

	workdays := staffWorkdayCounts(log)
	coDates := coOccurrenceDates(log)

	var rules []model.Rule
	// Affinity: only pairs that actually co-occur are candidates.
	pairs := make([]string, 0, len(coDates))
	for p := range coDates {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)

	for _, p := range pairs {
		a, b := splitPair(p)
		observed := len(coDates[p])
		if r := m.testAffinity(a, b, observed, workdays[a], workdays[b], totalDates, segment); r != nil {
			rules = append(rules, *r)
		}
	}

	// Avoidance: pairs that never co-occur despite a material expectation.
	// The full cross product here is bounded by the staff cap above.
	for i, a := range staff {
		for _, b := range staff[i+1:] {
			ca, cb := model.PairSubjects(a, b)
			if _, ok := coDates[ca+"|"+cb]; ok {
				continue
			}
			if r := m.testAvoidance(ca, cb, workdays[ca], workdays[cb], totalDates, segment); r != nil {
				rules = append(rules, *r)
			}
		}
	}

	return rules, nil
}

func (m *PairwiseMiner) testAffinity(a, b string, observed, countA, countB, totalDates int, segment string) *model.Rule {
	if observed < m.cfg.MinSampleSize {
		return nil
	}

	expected, err := stats.IndependenceExpectedCount(float64(countA), float64(countB), float64(totalDates))
	if err != nil || expected <= 0 {
		return nil
	}
	if float64(observed) < m.cfg.AffinityRatio*expected {
		return nil
	}

	p, err := stats.RareEventSignificance(observed, expected)
	if err != nil {
		zap.L().Debug("miner: affinity significance skipped",
			zap.String("pair", a+"+"+b), zap.Error(err))
		return nil
	}
	if p >= m.cfg.SignificanceAlpha {
		return nil
	}

	return &model.Rule{
		Subject:     a,
		PairSubject: b,
		Type:        model.RuleAffinity,
		Description: fmt.Sprintf("%s and %s are scheduled together far more often than chance (%d shared days, %.1f expected)",
			a, b, observed, expected),
		Confidence: clamp01(1 - p),
		Evidence: map[string]any{
			"observed":     observed,
			"expected":     expected,
			"ratio":        float64(observed) / expected,
			"p_value":      p,
			"total_dates":  totalDates,
			"workdays_a":   countA,
			"workdays_b":   countB,
		},
		Segment: segment,
	}
}

func (m *PairwiseMiner) testAvoidance(a, b string, countA, countB, totalDates int, segment string) *model.Rule {
	expected, err := stats.IndependenceExpectedCount(float64(countA), float64(countB), float64(totalDates))
	if err != nil || expected < 1 {
		return nil
	}

	// Larger expectation with zero occurrence is stronger evidence.
	confidence := math.Min(avoidanceConfidenceCap, expected/10)
	tail := math.Exp(-expected) // Poisson P(X = 0)

	return &model.Rule{
		Subject:     a,
		PairSubject: b,
		Type:        model.RuleAvoidance,
		Description: fmt.Sprintf("%s and %s never share a shift despite %.1f expected co-occurrences",
			a, b, expected),
		Confidence: clamp01(confidence),
		Evidence: map[string]any{
			"observed":    0,
			"expected":    expected,
			"zero_tail":   tail,
			"total_dates": totalDates,
			"workdays_a":  countA,
			"workdays_b":  countB,
		},
		Segment: segment,
	}
}

// staffWorkdayCounts returns the number of distinct working dates per staff.
func staffWorkdayCounts(log *worklog.Log) map[string]int {
	dates := make(map[string]map[string]struct{})
	for _, e := range log.Entries() {
		if dates[e.StaffID] == nil {
			dates[e.StaffID] = make(map[string]struct{})
		}
		dates[e.StaffID][e.Date] = struct{}{}
	}
	counts := make(map[string]int, len(dates))
	for id, d := range dates {
		counts[id] = len(d)
	}
	return counts
}

// coOccurrenceDates maps a canonical "a|b" pair key to the distinct dates on
// which both worked under the same work-type code.
func coOccurrenceDates(log *worklog.Log) map[string]map[string]struct{} {
	idx := log.DateStaffIndex()
	pairs := make(map[string]map[string]struct{})
	for key, staff := range idx {
		date := key[:strings.IndexByte(key, '|')]
		for i, a := range staff {
			for _, b := range staff[i+1:] {
				pk := a + "|" + b // idx slices are sorted, so a < b
				if pairs[pk] == nil {
					pairs[pk] = make(map[string]struct{})
				}
				pairs[pk][date] = struct{}{}
			}
		}
	}
	return pairs
}

func splitPair(key string) (string, string) {
	i := strings.IndexByte(key, '|')
	return key[:i], key[i+1:]
}
