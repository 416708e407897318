// Package classify labels a discovered numeric threshold with its behavioral
// nature: hard ceiling, guaranteed floor, fixed target, flexible pattern, or
// a period-dependent seasonal pattern.
//
// Classifier is an injected strategy. AdvancedClassifier implements the full
// decision procedure; BasicClassifier is the degraded fallback the miner
// uses when the advanced classification is disabled.
package classify

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/stats"
)

// Observation is one per-period value of the distribution underlying a
// numeric-threshold rule, tagged with its month period for seasonal checks.
type Observation struct {
	Value  float64
	Period string // worklog month-period tag: early / mid / late
}

// Classifier decides the nature of a numeric threshold given its supporting
// per-period distribution.
type Classifier interface {
	Classify(threshold float64, obs []Observation) (*model.NatureVerdict, error)
}

// AdvancedClassifier implements the full five-way decision procedure in
// priority order: upper_bound, soft_floor, fixed_target, flexible_pattern,
// seasonal_pattern.
type AdvancedClassifier struct{}

// NewAdvanced returns the full classifier.
func NewAdvanced() *AdvancedClassifier { return &AdvancedClassifier{} }

// tolerance within which a value counts as "approaching" the threshold.
const nearFraction = 0.15

func (c *AdvancedClassifier) Classify(threshold float64, obs []Observation) (*model.NatureVerdict, error) {
	if len(obs) < stats.MinSample {
		return nil, eris.Wrapf(stats.ErrInsufficientSample, "classify: %d observations", len(obs))
	}
	if threshold <= 0 {
		return nil, eris.Errorf("classify: threshold must be positive, got %v", threshold)
	}

	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}

	mean := stats.Mean(values)
	cv, err := stats.DispersionRatio(values)
	if err != nil {
		return nil, eris.Wrap(err, "classify: dispersion")
	}

	minV, maxV := minMax(values)
	near := threshold * nearFraction
	nearCount := 0
	for _, v := range values {
		if math.Abs(v-threshold) <= near {
			nearCount++
		}
	}
	nearRatio := float64(nearCount) / float64(len(values))

	// 1. Hard ceiling: never exceeded, and regularly approached from below.
	if maxV <= threshold && nearRatio >= 0.3 {
		return &model.NatureVerdict{
			Nature:         model.NatureUpperBound,
			ThresholdValue: threshold,
			Confidence:     clamp(0.6 + 0.4*nearRatio),
			Rationale: fmt.Sprintf(
				"maximum observed %.1f never exceeds %.1f and %.0f%% of periods approach it",
				maxV, threshold, nearRatio*100),
			Recommendations: []string{
				"validate: confirm this is a contractual limit, not a coincidence",
				"check whether the ceiling should bind future schedules",
			},
		}, nil
	}

	// 2. Guaranteed floor: consistently at or above, low dispersion.
	if minV >= threshold && cv < 0.3 {
		return &model.NatureVerdict{
			Nature:         model.NatureSoftFloor,
			ThresholdValue: threshold,
			Confidence:     clamp(1 - cv),
			Rationale: fmt.Sprintf(
				"minimum observed %.1f stays at or above %.1f with low dispersion (%.2f)",
				minV, threshold, cv),
			Recommendations: []string{
				"validate: confirm a minimum workload guarantee exists",
			},
		}, nil
	}

	// 3. Fixed target: tight clustering around the threshold from both sides.
	if nearRatio >= 0.7 && minV < threshold && maxV > threshold {
		return &model.NatureVerdict{
			Nature:         model.NatureFixedTarget,
			ThresholdValue: threshold,
			Confidence:     clamp(nearRatio),
			Rationale: fmt.Sprintf(
				"%.0f%% of periods fall within %.0f%% of %.1f on both sides",
				nearRatio*100, nearFraction*100, threshold),
			Recommendations: []string{
				"treat as a scheduling target rather than a bound",
			},
		}, nil
	}

	// 5 (checked before 4 only when the shift is pronounced): seasonal.
	if verdict := seasonalVerdict(threshold, obs, mean); verdict != nil {
		return verdict, nil
	}

	// 4. Flexible pattern: weak central tendency, report the mean instead of
	// a hard number and scale confidence down.
	return &model.NatureVerdict{
		Nature:         model.NatureFlexiblePattern,
		ThresholdValue: mean,
		Confidence:     clamp(0.5 * (1 - math.Min(cv, 1))),
		Rationale: fmt.Sprintf(
			"dispersion %.2f around mean %.1f shows no firm bound", cv, mean),
		Recommendations: []string{
			"collect more observations before treating this as a rule",
		},
	}, nil
}

// seasonalVerdict detects a period-dependent shift: a month-period whose
// mean deviates from the overall mean by more than 25%.
func seasonalVerdict(threshold float64, obs []Observation, overallMean float64) *model.NatureVerdict {
	if overallMean == 0 {
		return nil
	}

	byPeriod := make(map[string][]float64)
	for _, o := range obs {
		if o.Period != "" {
			byPeriod[o.Period] = append(byPeriod[o.Period], o.Value)
		}
	}

	var maxShift float64
	var shiftedPeriod string
	for period, vals := range byPeriod {
		if len(vals) < 2 {
			continue
		}
		shift := math.Abs(stats.Mean(vals)-overallMean) / overallMean
		if shift > maxShift {
			maxShift = shift
			shiftedPeriod = period
		}
	}

	if maxShift < 0.25 {
		return nil
	}
	return &model.NatureVerdict{
		Nature:         model.NatureSeasonalPattern,
		ThresholdValue: overallMean,
		Confidence:     clamp(0.5 + math.Min(maxShift, 0.8)/2),
		Rationale: fmt.Sprintf(
			"mean in %s periods shifts %.0f%% from the overall mean %.1f",
			shiftedPeriod, maxShift*100, overallMean),
		Recommendations: []string{
			"analyze sub-windows separately before fixing a threshold",
		},
	}
}

// BasicClassifier is the degraded fallback: it only distinguishes a hard
// ceiling from a flexible pattern and attaches no seasonal analysis.
type BasicClassifier struct{}

// NewBasic returns the fallback classifier and logs the degradation once.
func NewBasic() *BasicClassifier {
	zap.L().Warn("classify: advanced nature classification unavailable, using basic classifier")
	return &BasicClassifier{}
}

func (c *BasicClassifier) Classify(threshold float64, obs []Observation) (*model.NatureVerdict, error) {
	if len(obs) < stats.MinSample {
		return nil, eris.Wrapf(stats.ErrInsufficientSample, "classify: %d observations", len(obs))
	}

	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}
	_, maxV := minMax(values)
	mean := stats.Mean(values)

	if maxV <= threshold {
		return &model.NatureVerdict{
			Nature:         model.NatureUpperBound,
			ThresholdValue: threshold,
			Confidence:     0.6,
			Rationale:      fmt.Sprintf("maximum observed %.1f never exceeds %.1f", maxV, threshold),
			Recommendations: []string{
				"validate: confirm this is a contractual limit, not a coincidence",
			},
		}, nil
	}
	return &model.NatureVerdict{
		Nature:          model.NatureFlexiblePattern,
		ThresholdValue:  mean,
		Confidence:      0.4,
		Rationale:       fmt.Sprintf("observations exceed %.1f; mean is %.1f", threshold, mean),
		Recommendations: []string{"collect more observations before treating this as a rule"},
	}, nil
}

func minMax(values []float64) (float64, float64) {
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	return minV, maxV
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
