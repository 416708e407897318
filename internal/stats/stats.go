// Package stats provides the pure statistical primitives the rule miners are
// built on: a chi-square goodness-of-fit test against a uniform expectation,
// independence-based expected counts, Poisson tail probabilities for rare
// co-occurrence events, dispersion ratios, and quantile estimation.
//
// All functions are side-effect free. Inputs below MinSample observations
// return ErrInsufficientSample rather than a numerically meaningless result.
package stats

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// MinSample is the default minimum number of observations required before a
// primitive will produce a result.
const MinSample = 5

// ErrInsufficientSample is returned when an input carries too few
// observations for the requested statistic.
var ErrInsufficientSample = eris.New("stats: insufficient sample")

// UniformityTest runs a chi-square goodness-of-fit test of the observed
// category counts against a uniform expectation. It returns the test
// statistic and its p-value (survival probability with k-1 degrees of
// freedom). A small p-value means the subject behaves non-randomly across
// the categorical axis.
func UniformityTest(counts []int) (statistic, pValue float64, err error) {
	if len(counts) < 2 {
		return 0, 0, eris.New("stats: uniformity test needs at least 2 categories")
	}

	total := 0
	for _, c := range counts {
		if c < 0 {
			return 0, 0, eris.Errorf("stats: negative count %d", c)
		}
		total += c
	}
	if total < MinSample {
		return 0, 0, eris.Wrapf(ErrInsufficientSample, "uniformity test: %d observations", total)
	}

	expected := float64(total) / float64(len(counts))
	var chi2 float64
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}

	p := chiSquareSurvival(chi2, float64(len(counts)-1))
	return chi2, p, nil
}

// IndependenceExpectedCount returns the expected co-occurrence count of two
// binary events under a no-association assumption over the given number of
// opportunities.
func IndependenceExpectedCount(countA, countB, totalOpportunities float64) (float64, error) {
	if totalOpportunities <= 0 {
		return 0, eris.New("stats: total opportunities must be positive")
	}
	if countA < 0 || countB < 0 {
		return 0, eris.New("stats: event counts must be non-negative")
	}
	return countA * countB / totalOpportunities, nil
}

// RareEventSignificance treats observed as a draw from a Poisson process
// with the given expected mean and returns the probability of a count at
// least as extreme: the upper tail P(X >= observed) when the count exceeds
// expectation, the lower tail P(X <= observed) otherwise. Flags both
// unusually frequent and unusually absent co-occurrence.
func RareEventSignificance(observed int, expected float64) (float64, error) {
	if observed < 0 {
		return 0, eris.Errorf("stats: negative observed count %d", observed)
	}
	if expected <= 0 {
		return 0, eris.New("stats: expected count must be positive")
	}

	if float64(observed) >= expected {
		return poissonUpperTail(observed, expected), nil
	}
	return poissonLowerTail(observed, expected), nil
}

// DispersionRatio returns the coefficient of variation (standard deviation
// over mean) of the values; 0 means perfectly consistent. A zero mean has no
// meaningful ratio and is reported as an error so callers can skip the
// subject.
func DispersionRatio(values []float64) (float64, error) {
	if len(values) < MinSample {
		return 0, eris.Wrapf(ErrInsufficientSample, "dispersion: %d values", len(values))
	}

	mean := Mean(values)
	if mean == 0 {
		return 0, eris.New("stats: dispersion undefined for zero mean")
	}

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(values)))
	return sd / mean, nil
}

// Quantile returns the q-th quantile (0 <= q <= 1) of the values using
// linear interpolation between order statistics. Used as a practical ceiling
// that tolerates a small fraction of outliers.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) < MinSample {
		return 0, eris.Wrapf(ErrInsufficientSample, "quantile: %d values", len(values))
	}
	if q < 0 || q > 1 {
		return 0, eris.Errorf("stats: quantile %v out of range", q)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, nil
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// poissonUpperTail returns P(X >= k) for X ~ Poisson(mean).
func poissonUpperTail(k int, mean float64) float64 {
	return 1 - poissonCDF(k-1, mean)
}

// poissonLowerTail returns P(X <= k) for X ~ Poisson(mean).
func poissonLowerTail(k int, mean float64) float64 {
	return poissonCDF(k, mean)
}

// poissonCDF returns P(X <= k) by summing pmf terms in log space to avoid
// overflow for large means.
func poissonCDF(k int, mean float64) float64 {
	if k < 0 {
		return 0
	}
	var cdf float64
	logTerm := -mean // log pmf at 0
	cdf = math.Exp(logTerm)
	for i := 1; i <= k; i++ {
		logTerm += math.Log(mean) - math.Log(float64(i))
		cdf += math.Exp(logTerm)
	}
	return math.Min(cdf, 1)
}
