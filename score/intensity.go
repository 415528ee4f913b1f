package score

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/internal/numeric"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/template"
)

// intensityComponent computes s_int over the matched pairs, honoring the
// rubric's intensity mode. It returns the component value, whether the
// component entered the blend, and a degraded reason when a numerical edge
// case forced the omission.
//
// The component is omitted (not degraded) when the rubric gives it no
// weight, when too few matched pairs carry usable intensities, or when the
// feature metadata marks intensity calibration unreliable.
func intensityComponent(obs []feature.Feature, set *template.ExpectationSet, matchedBy []int, cfg rubric.Modality) (float64, bool, string) {
	if cfg.Weights.Intensity == 0 {
		return 0, false, ""
	}

	var expected, observed, sigmas []float64
	for i, j := range matchedBy {
		if j < 0 {
			continue
		}
		ef := set.Expected[i]
		f := obs[j]
		if !ef.HasIntensity || !f.IntensityReliable {
			continue
		}
		expected = append(expected, ef.RelIntensity)
		observed = append(observed, f.Intensity)
		sigmas = append(sigmas, f.IntensitySigma)
	}

	if len(expected) < minIntensityPairs {
		return 0, false, ""
	}

	switch cfg.Intensity {
	case rubric.IntensityChiSquare:
		return chiSquareIntensity(expected, observed, sigmas)
	default:
		return spearmanIntensity(expected, observed)
	}
}

// spearmanIntensity maps the Spearman rank correlation of expected vs.
// observed intensities onto [0,1] via (rho+1)/2.
func spearmanIntensity(expected, observed []float64) (float64, bool, string) {
	rho, ok := spearman(expected, observed)
	if !ok {
		return 0, false, "intensity ranks are degenerate (constant values)"
	}
	return numeric.RescaleUnit(rho), true, ""
}

// chiSquareIntensity computes a robust chi-square likelihood on relative
// intensities. The observed values are brought onto the library scale by the
// median of per-pair ratios rather than a least-squares factor, and the
// per-pair z-squared terms are summarized by their median, so a single
// outlier line can corrupt neither the scale nor the component.
func chiSquareIntensity(expected, observed, sigmas []float64) (float64, bool, string) {
	ratios := make([]float64, 0, len(expected))
	for i := range expected {
		if observed[i] > 0 {
			ratios = append(ratios, expected[i]/observed[i])
		}
	}
	if len(ratios) == 0 {
		return 0, false, "intensity scale denominator is zero"
	}
	scale := median(ratios)
	if scale <= 0 {
		return 0, false, "intensity scale is degenerate"
	}

	zsq := make([]float64, 0, len(expected))
	for i := range expected {
		if sigmas[i] <= 0 {
			continue
		}
		z := (scale*observed[i] - expected[i]) / (scale * sigmas[i])
		zsq = append(zsq, z*z)
	}
	if len(zsq) < minIntensityPairs {
		return 0, false, "intensity uncertainties missing on matched features"
	}

	return numeric.Clamp(math.Exp(-0.5*median(zsq)), 0, 1), true, ""
}

// spearman returns the Spearman rank correlation of a and b, using average
// ranks for ties. ok is false when either side has zero rank variance.
func spearman(a, b []float64) (rho float64, ok bool) {
	ra := ranks(a)
	rb := ranks(b)

	n := float64(len(ra))
	var meanA, meanB float64
	for i := range ra {
		meanA += ra[i]
		meanB += rb[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range ra {
		da := ra[i] - meanA
		db := rb[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}

	return cov / math.Sqrt(varA*varB), true
}

// ranks assigns 1-based ranks with average ranks for ties.
func ranks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	out := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		// Average rank over the tie group [i, j].
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// median returns the median of x. x is reordered.
func median(x []float64) float64 {
	sort.Float64s(x)
	n := len(x)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return x[n/2]
	}
	return 0.5 * (x[n/2-1] + x[n/2])
}
