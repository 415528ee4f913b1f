// Package score converts observed features and reference templates into
// bounded per-modality scores.
//
// Two scoring modes exist. Sparse mode greedily matches discrete expected
// line/band centers against observed peaks and blends position, coverage,
// penalty, and intensity components. Dense mode cross-correlates a sampled
// reference template against an observed spectrum segment over a configured
// shift/broadening grid. Both modes emit values in [0,1]; numerical edge
// cases are clamped and flagged as degraded rather than propagated as NaN.
//
// Every constant used here comes from the active rubric; the package itself
// carries no tunable numbers.
package score

import (
	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/internal/numeric"
	"github.com/cwbudde/algo-specid/rubric"
)

// Components are the blended parts of a sparse-mode score.
type Components struct {
	Position  float64 `json:"position"`
	Coverage  float64 `json:"coverage"`
	Penalty   float64 `json:"penalty"`
	Intensity float64 `json:"intensity"`
}

// Match records one accepted expected-observed pairing, including the
// quantities that feed the evidence graph.
type Match struct {
	FeatureID string  `json:"feature_id"`
	Expected  float64 `json:"expected"`
	Observed  float64 `json:"observed"`
	Sigma     float64 `json:"sigma"`

	// Likelihood is the position likelihood exp(-0.5*((x-mu)/sigma)^2),
	// which is also this feature's supports-edge weight.
	Likelihood float64 `json:"likelihood"`
}

// Unmatched records an expected feature that found no observed partner
// within its acceptance window, with the best likelihood any observed
// feature achieved against it. Follow-up recommendation picks the global
// minimum of these.
type Unmatched struct {
	Modality       feature.Modality `json:"modality"`
	Expected       float64          `json:"expected"`
	Sigma          float64          `json:"sigma"`
	BestLikelihood float64          `json:"best_likelihood"`
}

// Result is the outcome of scoring one (candidate, modality) pair.
type Result struct {
	Modality feature.Modality `json:"modality"`

	// Value is the blended modality score S_k in [0,1].
	Value      float64    `json:"value"`
	Components Components `json:"components"`

	// Quality is the instrument-quality multiplier q_k in [0.3, 1.0].
	Quality float64 `json:"quality"`

	Matches   []Match     `json:"matches,omitempty"`
	Unmatched []Unmatched `json:"unmatched,omitempty"`

	FalseNegatives int `json:"false_negatives"`
	FalsePositives int `json:"false_positives"`
	Expected       int `json:"expected"`
	Observed       int `json:"observed"`

	// IntensityUsed reports whether the intensity component entered the
	// blend; when false its weight was redistributed over the others.
	IntensityUsed bool `json:"intensity_used"`

	// Degraded marks scores whose computation hit a numerical edge case
	// (zero-norm segment, missing uncertainties). The value is still
	// bounded and usable; Reason says what happened.
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"degraded_reason,omitempty"`
}

// Quality computes the instrument-quality multiplier
//
//	q = clip(1 − a·RMS/τ_RMS − b·ΔFWHM/τ_FWHM − c·(τ_SNR/SNR), 0.3, 1.0)
//
// from the QC metrics the calibration subsystem attached to the spectrum.
// A missing or non-positive SNR drives the SNR term to its worst case, so
// the multiplier lands on the floor instead of dividing by zero.
func Quality(qc feature.QC, coeffs rubric.QualityCoeffs) float64 {
	q := 1.0
	q -= coeffs.A * qc.CalibrationRMS / coeffs.TauRMS
	q -= coeffs.B * qc.FWHMDeviation / coeffs.TauFWHM

	if qc.SNR > 0 {
		q -= coeffs.C * coeffs.TauSNR / qc.SNR
	} else if coeffs.C > 0 {
		// No usable SNR: the term is unbounded, clip below.
		q = 0
	}

	return numeric.Clamp(q, 0.3, 1.0)
}
