package score

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/internal/testutil"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/template"
)

func denseRubric() *rubric.Rubric {
	return &rubric.Rubric{
		Version:   "dense-test",
		Epsilon:   1e-6,
		Transform: rubric.TransformFisherZ,
		Grid: rubric.Grid{
			ShiftMin: -4, ShiftMax: 4, ShiftStep: 1,
			BroadenMin: 0, BroadenMax: 2, BroadenStep: 1,
		},
		Continuum: rubric.Continuum{Window: 1, Degree: 1},
	}
}

// gaussianPeaks synthesizes a spectrum of unit-height Gaussian peaks.
func gaussianPeaks(n int, centers []float64, width float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		for _, c := range centers {
			d := (float64(i) - c) / width
			out[i] += math.Exp(-0.5 * d * d)
		}
	}
	return out
}

func denseTemplate(centers []float64) *template.Dense {
	return &template.Dense{
		Modality: feature.ModalityInfrared,
		Source:   "lib@1.0",
		Start:    0,
		Step:     1,
		Samples:  gaussianPeaks(256, centers, 3),
	}
}

func TestDenseMatchingTemplate(t *testing.T) {
	tpl := denseTemplate([]float64{80, 170})

	// Observed: same peaks shifted by +2 samples on a sloped continuum.
	seg := &template.Segment{
		Modality: feature.ModalityInfrared,
		Start:    0,
		Step:     1,
		Samples:  gaussianPeaks(256, []float64{82, 172}, 3),
	}
	for i := range seg.Samples {
		seg.Samples[i] += 0.5 + 0.001*float64(i)
	}

	res := Dense(seg, tpl, feature.QC{}, denseRubric())

	if res.Degraded {
		t.Fatalf("unexpected degraded result: %s", res.Reason)
	}
	if res.Value <= 0.8 {
		t.Fatalf("matching template scored %v, want > 0.8", res.Value)
	}
	testutil.RequireInUnitRange(t, "dense score", res.Value)
}

func TestDenseMismatchedTemplateScoresLower(t *testing.T) {
	seg := &template.Segment{
		Modality: feature.ModalityInfrared,
		Start:    0, Step: 1,
		Samples: gaussianPeaks(256, []float64{82, 172}, 3),
	}

	match := Dense(seg, denseTemplate([]float64{80, 170}), feature.QC{}, denseRubric())
	mismatch := Dense(seg, denseTemplate([]float64{40, 220}), feature.QC{}, denseRubric())

	if mismatch.Value >= match.Value {
		t.Fatalf("mismatch %v not below match %v", mismatch.Value, match.Value)
	}
	testutil.RequireInUnitRange(t, "mismatch score", mismatch.Value)
}

func TestDenseZeroNormSegmentDegrades(t *testing.T) {
	seg := &template.Segment{
		Modality: feature.ModalityInfrared,
		Start:    0, Step: 1,
		Samples: make([]float64, 128),
	}

	res := Dense(seg, denseTemplate([]float64{60}), feature.QC{}, denseRubric())

	if !res.Degraded {
		t.Fatal("zero-norm segment must be flagged degraded")
	}
	if res.Value != 0 {
		t.Fatalf("degraded score = %v, want 0", res.Value)
	}
	if res.Reason == "" {
		t.Fatal("degraded result must carry a reason")
	}
	testutil.RequireFinite(t, []float64{res.Value})
}

func TestDenseWithLineSpreadKernel(t *testing.T) {
	tpl := denseTemplate([]float64{80, 170})
	seg := &template.Segment{
		Modality: feature.ModalityInfrared,
		Start:    0, Step: 1,
		// Observed through an instrument that broadens lines.
		Samples: gaussianPeaks(256, []float64{80, 170}, 4.5),
	}
	qc := feature.QC{LineSpread: gaussianKernel(3)}

	withKernel := Dense(seg, tpl, qc, denseRubric())
	withoutKernel := Dense(seg, tpl, feature.QC{}, denseRubric())

	if withKernel.Degraded {
		t.Fatalf("unexpected degraded result: %s", withKernel.Reason)
	}
	testutil.RequireInUnitRange(t, "dense score", withKernel.Value)
	// Modelling the instrument response must not hurt the match.
	if withKernel.Value < withoutKernel.Value-1e-9 {
		t.Fatalf("kernel-aware score %v below naive score %v", withKernel.Value, withoutKernel.Value)
	}
}

func TestDenseLinearTransform(t *testing.T) {
	r := denseRubric()
	r.Transform = rubric.TransformLinear

	tpl := denseTemplate([]float64{80, 170})
	seg := &template.Segment{
		Modality: feature.ModalityInfrared,
		Start:    0, Step: 1,
		Samples: gaussianPeaks(256, []float64{80, 170}, 3),
	}

	res := Dense(seg, tpl, feature.QC{}, r)
	if res.Degraded {
		t.Fatalf("unexpected degraded result: %s", res.Reason)
	}
	// Identical spectra: correlation near 1, linear map near 1.
	if res.Value < 0.95 {
		t.Fatalf("score = %v, want near 1 for identical spectra", res.Value)
	}
}

func TestGridValues(t *testing.T) {
	got := gridValues(-2, 2, 1)
	testutil.RequireSliceNearlyEqual(t, got, []float64{-2, -1, 0, 1, 2}, 1e-12)

	single := gridValues(0, 0, 0.5)
	testutil.RequireSliceNearlyEqual(t, single, []float64{0}, 1e-12)
}

func TestContinuumRemoveFlattensSlope(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = 3 + 0.1*float64(i)
	}

	got := continuumRemove(samples, rubric.Continuum{Window: 1, Degree: 1})
	for i, v := range got {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("index %d: residual %v after removing linear continuum", i, v)
		}
	}
}

func TestGaussianKernelNormalized(t *testing.T) {
	k := gaussianKernel(2.5)
	var sum float64
	for _, v := range k {
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("kernel sum = %v, want 1", sum)
	}
	if len(k)%2 != 1 {
		t.Fatalf("kernel length %d must be odd", len(k))
	}
}
