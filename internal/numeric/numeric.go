// Package numeric provides small numeric helpers shared by the scoring and
// fusion packages: clamping, tolerant comparison, and the monotonic
// transforms that map raw scores and correlations into bounded ranges.
package numeric

import "math"

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// LogLink maps a bounded score s in [0,1] to log-odds space:
//
//	f(s) = log((eps+s) / (eps+1-s))
//
// eps keeps the link finite at the endpoints. Non-positive eps falls back
// to 1e-6.
func LogLink(s, eps float64) float64 {
	if eps <= 0 {
		eps = 1e-6
	}

	s = Clamp(s, 0, 1)
	return math.Log((eps + s) / (eps + 1 - s))
}

// Logistic is the standard logistic squash 1/(1+exp(-x)).
// It maps the real line into (0,1) and is the inverse direction of LogLink.
func Logistic(x float64) float64 {
	// Guard the exp against overflow for very large |x|.
	if x > 500 {
		return 1
	}
	if x < -500 {
		return 0
	}

	return 1 / (1 + math.Exp(-x))
}

// FisherZ maps a correlation coefficient c in (-1,1) to a score in [0,1]
// via the Fisher z-transform atanh(c), rescaled by a logistic squash so the
// output stays bounded for c arbitrarily close to ±1.
func FisherZ(c float64) float64 {
	c = Clamp(c, -1, 1)

	// atanh diverges at ±1; pull the endpoints in slightly.
	const limit = 1 - 1e-12
	if c > limit {
		c = limit
	}
	if c < -limit {
		c = -limit
	}

	return Logistic(math.Atanh(c))
}

// RescaleUnit maps c in [-1,1] linearly onto [0,1].
func RescaleUnit(c float64) float64 {
	return Clamp((c+1)/2, 0, 1)
}
