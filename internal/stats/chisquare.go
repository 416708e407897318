package stats

import "math"

// chiSquareSurvival returns P(X > x) for a chi-square distribution with df
// degrees of freedom, via the regularized upper incomplete gamma function
// Q(df/2, x/2).
func chiSquareSurvival(x, df float64) float64 {
	if x <= 0 {
		return 1
	}
	return regularizedGammaQ(df/2, x/2)
}

// regularizedGammaQ computes Q(a, x) = 1 - P(a, x) using the series
// expansion for x < a+1 and the continued fraction otherwise (Numerical
// Recipes 6.2 split, which converges quickly on both sides).
func regularizedGammaQ(a, x float64) float64 {
	switch {
	case x <= 0:
		return 1
	case x < a+1:
		return 1 - gammaPSeries(a, x)
	default:
		return gammaQContinuedFraction(a, x)
	}
}

const (
	gammaEps     = 1e-12
	gammaMaxIter = 500
)

// gammaPSeries computes P(a, x) by its power series.
func gammaPSeries(a, x float64) float64 {
	lgA, _ := math.Lgamma(a)
	ap := a
	sum := 1.0 / a
	del := sum
	for i := 0; i < gammaMaxIter; i++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*gammaEps {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lgA)
}

// gammaQContinuedFraction computes Q(a, x) by its continued fraction
// (modified Lentz's method).
func gammaQContinuedFraction(a, x float64) float64 {
	lgA, _ := math.Lgamma(a)
	const tiny = 1e-300

	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < gammaEps {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lgA) * h
}
