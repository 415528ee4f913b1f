package score

import (
	"errors"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/internal/numeric"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/template"
	"github.com/cwbudde/algo-specid/xcorr"
)

// Dense scores one (candidate, modality) pair in dense mode: the observed
// segment is continuum-removed and apodized, the reference template is
// convolved with the instrument line-spread kernel, and a grid of trial
// (shift, broadening) parameters is searched for the maximum normalized
// cross-correlation. The peak correlation is mapped to [0,1] by the
// rubric-declared monotonic transform.
//
// The line-spread kernel is assumed sampled at the template's axis step, as
// supplied by the calibration subsystem.
func Dense(seg *template.Segment, tpl *template.Dense, qc feature.QC, r *rubric.Rubric) Result {
	res := Result{Modality: tpl.Modality}

	data := continuumRemove(seg.Samples, r.Continuum)
	taper := cosineTaper(len(data))
	vecmath.MulBlockInPlace(data, taper)

	if xcorr.L2Norm(data) == 0 {
		res.Degraded = true
		res.Reason = "observed segment has zero norm after continuum removal"
		return res
	}

	base := tpl.Samples
	if len(qc.LineSpread) > 0 {
		convolved, err := xcorr.ConvolveSame(base, qc.LineSpread)
		if err != nil {
			res.Degraded = true
			res.Reason = "line-spread convolution failed: " + err.Error()
			return res
		}
		base = convolved
	}

	best := math.Inf(-1)
	degenerate := true

	shifts := gridValues(r.Grid.ShiftMin, r.Grid.ShiftMax, r.Grid.ShiftStep)
	broadenings := gridValues(r.Grid.BroadenMin, r.Grid.BroadenMax, r.Grid.BroadenStep)

	for _, gamma := range broadenings {
		broadened := base
		if gamma > 0 {
			kernel := gaussianKernel(gamma / tpl.Step)
			out, err := xcorr.ConvolveSame(base, kernel)
			if err != nil {
				continue
			}
			broadened = out
		}

		for _, shift := range shifts {
			trial := resampleShifted(broadened, tpl.Start+shift, tpl.Step, seg.Start, seg.Step, len(data))
			vecmath.MulBlockInPlace(trial, taper)

			c, err := xcorr.NormalizedDot(trial, data)
			if err != nil {
				if errors.Is(err, xcorr.ErrZeroNorm) {
					continue
				}
				res.Degraded = true
				res.Reason = "cross-correlation failed: " + err.Error()
				return res
			}

			degenerate = false
			if c > best {
				best = c
			}
		}
	}

	if degenerate {
		res.Degraded = true
		res.Reason = "all trial templates had zero overlap with the observed segment"
		return res
	}

	res.Value = denseTransform(best, r.Transform)
	res.Components.Position = res.Value
	return res
}

// denseTransform maps a correlation peak in [-1,1] to a score in [0,1] per
// the rubric-declared transform.
func denseTransform(c float64, t rubric.DenseTransform) float64 {
	switch t {
	case rubric.TransformLinear:
		return numeric.RescaleUnit(c)
	default:
		return numeric.FisherZ(c)
	}
}

// gridValues expands an inclusive [min, max] range with the given step into
// an explicit slice. Index-based stepping avoids accumulation drift, so the
// grid is identical on every run.
func gridValues(min, max, step float64) []float64 {
	if step <= 0 || max < min {
		return []float64{min}
	}
	n := int((max-min)/step+1e-9) + 1
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = min + float64(i)*step
	}
	return out
}

// gaussianKernel builds a unit-area Gaussian kernel with the given sigma in
// samples, truncated at four sigma.
func gaussianKernel(sigmaSamples float64) []float64 {
	if sigmaSamples <= 0 {
		return []float64{1}
	}

	radius := int(math.Ceil(4 * sigmaSamples))
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * x * x / (sigmaSamples * sigmaSamples))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// resampleShifted samples a template (origin tplStart, spacing tplStep) onto
// the observed axis (origin segStart, spacing segStep, n samples) by linear
// interpolation. Positions outside the template are zero.
func resampleShifted(tpl []float64, tplStart, tplStep, segStart, segStep float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		x := segStart + float64(i)*segStep
		pos := (x - tplStart) / tplStep
		idx := int(math.Floor(pos))
		if idx < 0 || idx >= len(tpl)-1 {
			continue
		}
		frac := pos - float64(idx)
		out[i] = tpl[idx]*(1-frac) + tpl[idx+1]*frac
	}
	return out
}

// cosineTaper builds a Tukey-style taper that leaves the central half of the
// window untouched and rolls the outer quarters off with a raised cosine.
func cosineTaper(n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	edge := n / 4
	for i := range out {
		switch {
		case i < edge:
			out[i] = 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(edge)))
		case i >= n-edge:
			out[i] = 0.5 * (1 - math.Cos(math.Pi*float64(n-1-i)/float64(edge)))
		default:
			out[i] = 1
		}
	}
	return out
}

// continuumRemove subtracts a least-squares polynomial baseline of the
// configured degree. When window > 1 the fit uses every window-th sample,
// which tracks the broad continuum while ignoring narrow features.
func continuumRemove(samples []float64, cfg rubric.Continuum) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	if len(samples) == 0 {
		return out
	}

	stride := cfg.Window
	if stride < 1 {
		stride = 1
	}

	var xs, ys []float64
	for i := 0; i < len(samples); i += stride {
		xs = append(xs, normalizedX(i, len(samples)))
		ys = append(ys, samples[i])
	}

	degree := cfg.Degree
	if degree >= len(xs) {
		degree = len(xs) - 1
	}
	coeffs, ok := polyfit(xs, ys, degree)
	if !ok {
		return out
	}

	for i := range out {
		out[i] -= polyeval(coeffs, normalizedX(i, len(samples)))
	}
	return out
}

// normalizedX maps a sample index onto [-1,1] for a well-conditioned fit.
func normalizedX(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return 2*float64(i)/float64(n-1) - 1
}

// polyfit solves the least-squares polynomial of the given degree via the
// normal equations with Gaussian elimination. ok is false when the system
// is singular.
func polyfit(xs, ys []float64, degree int) ([]float64, bool) {
	if degree < 0 {
		return nil, false
	}
	m := degree + 1

	// Normal equations A·c = b with A[i][j] = sum x^(i+j).
	a := make([][]float64, m)
	b := make([]float64, m)
	pow := make([]float64, 2*m-1)
	for _, x := range xs {
		p := 1.0
		for k := range pow {
			pow[k] += p
			p *= x
		}
	}
	for i := 0; i < m; i++ {
		a[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			a[i][j] = pow[i+j]
		}
	}
	for k, x := range xs {
		p := 1.0
		for i := 0; i < m; i++ {
			b[i] += p * ys[k]
			p *= x
		}
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < m; col++ {
		pivot := col
		for row := col + 1; row < m; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < m; row++ {
			factor := a[row][col] / a[col][col]
			for j := col; j < m; j++ {
				a[row][j] -= factor * a[col][j]
			}
			b[row] -= factor * b[col]
		}
	}

	coeffs := make([]float64, m)
	for i := m - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < m; j++ {
			sum -= a[i][j] * coeffs[j]
		}
		coeffs[i] = sum / a[i][i]
	}
	return coeffs, true
}

func polyeval(coeffs []float64, x float64) float64 {
	var y float64
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = y*x + coeffs[i]
	}
	return y
}
