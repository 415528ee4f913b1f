// Package rubric defines the versioned scoring configuration: component
// weights, quality coefficients, fusion weights, penalty constants, and tier
// thresholds. The rubric is the only sanctioned source of scoring constants;
// the scoring code itself carries no implicit numbers.
//
// A rubric is immutable during a run. Swapping weights or thresholds means
// loading a new rubric and starting a new run.
package rubric

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-specid/feature"
)

// ErrInvalid wraps all rubric validation failures.
var ErrInvalid = errors.New("rubric: invalid configuration")

// weightSumTolerance bounds the allowed drift of component weight sums from 1.
const weightSumTolerance = 1e-9

// ScoreMode selects the per-modality scoring algorithm.
type ScoreMode string

const (
	// ModeSparse scores discrete expected lines/bands by greedy peak matching.
	ModeSparse ScoreMode = "sparse"

	// ModeDense scores a continuous template by normalized cross-correlation.
	ModeDense ScoreMode = "dense"
)

// IntensityMode selects how the intensity component s_int is computed.
type IntensityMode string

const (
	// IntensitySpearman uses rank correlation rescaled to [0,1].
	IntensitySpearman IntensityMode = "spearman"

	// IntensityChiSquare uses a robust chi-square likelihood on relative
	// intensities.
	IntensityChiSquare IntensityMode = "chi2"
)

// DenseTransform names the monotonic map from a cross-correlation peak to a
// [0,1] score.
type DenseTransform string

const (
	// TransformFisherZ squashes atanh(c) through a logistic. Default.
	TransformFisherZ DenseTransform = "fisher-z"

	// TransformLinear maps [-1,1] linearly onto [0,1].
	TransformLinear DenseTransform = "linear"
)

// ComponentWeights are the per-modality score component weights. They must
// sum to 1.
type ComponentWeights struct {
	Position  float64 `yaml:"position" json:"position"`
	Coverage  float64 `yaml:"coverage" json:"coverage"`
	Penalty   float64 `yaml:"penalty" json:"penalty"`
	Intensity float64 `yaml:"intensity" json:"intensity"`
}

// Sum returns the total of all component weights.
func (w ComponentWeights) Sum() float64 {
	return w.Position + w.Coverage + w.Penalty + w.Intensity
}

// QualityCoeffs parameterize the quality multiplier
// q = clip(1 − a·RMS/τ_RMS − b·ΔFWHM/τ_FWHM − c·(τ_SNR/SNR), 0.3, 1.0).
type QualityCoeffs struct {
	A       float64 `yaml:"a" json:"a"`
	B       float64 `yaml:"b" json:"b"`
	C       float64 `yaml:"c" json:"c"`
	TauRMS  float64 `yaml:"tau_rms" json:"tau_rms"`
	TauFWHM float64 `yaml:"tau_fwhm" json:"tau_fwhm"`
	TauSNR  float64 `yaml:"tau_snr" json:"tau_snr"`
}

// Grid bounds and resolution for the dense-mode (shift, broadening) search.
// All values are rubric constants, never inferred at runtime.
type Grid struct {
	ShiftMin    float64 `yaml:"shift_min" json:"shift_min"`
	ShiftMax    float64 `yaml:"shift_max" json:"shift_max"`
	ShiftStep   float64 `yaml:"shift_step" json:"shift_step"`
	BroadenMin  float64 `yaml:"broaden_min" json:"broaden_min"`
	BroadenMax  float64 `yaml:"broaden_max" json:"broaden_max"`
	BroadenStep float64 `yaml:"broaden_step" json:"broaden_step"`
}

// Continuum configures dense-mode continuum removal: a least-squares
// polynomial of the given degree fitted over sliding windows of the given
// width (in samples).
type Continuum struct {
	Window int `yaml:"window" json:"window"`
	Degree int `yaml:"degree" json:"degree"`
}

// Tiers holds the confidence-tier thresholds.
type Tiers struct {
	ThetaA float64 `yaml:"theta_a" json:"theta_a"`
	DeltaA float64 `yaml:"delta_a" json:"delta_a"`
	SMin   float64 `yaml:"s_min" json:"s_min"`

	ThetaB  float64 `yaml:"theta_b" json:"theta_b"`
	DeltaB  float64 `yaml:"delta_b" json:"delta_b"`
	SStrong float64 `yaml:"s_strong" json:"s_strong"`

	// SingleModalityMinMatches is the stricter diagnostic matched-feature
	// count required for Tier A when only one modality was scored.
	SingleModalityMinMatches int `yaml:"single_modality_min_matches" json:"single_modality_min_matches"`
}

// Modality is the per-modality scoring configuration.
type Modality struct {
	Mode      ScoreMode        `yaml:"mode" json:"mode"`
	Weights   ComponentWeights `yaml:"weights" json:"weights"`
	Quality   QualityCoeffs    `yaml:"quality" json:"quality"`
	Lambda    float64          `yaml:"lambda" json:"lambda"`
	Intensity IntensityMode    `yaml:"intensity_mode" json:"intensity_mode"`

	// Alpha and Beta weight the false-negative and false-positive terms of
	// the penalty component s_pen.
	Alpha float64 `yaml:"alpha" json:"alpha"`
	Beta  float64 `yaml:"beta" json:"beta"`
}

// Rubric is the full versioned configuration document.
type Rubric struct {
	Version string `yaml:"version" json:"version"`

	Epsilon   float64 `yaml:"epsilon" json:"epsilon"`
	Parsimony float64 `yaml:"parsimony" json:"parsimony"`

	Transform DenseTransform `yaml:"dense_transform" json:"dense_transform"`
	Grid      Grid           `yaml:"grid" json:"grid"`
	Continuum Continuum      `yaml:"continuum" json:"continuum"`

	Modalities map[feature.Modality]Modality `yaml:"modalities" json:"modalities"`
	Tiers      Tiers                         `yaml:"tiers" json:"tiers"`
}

// fieldError builds a precise, field-addressed validation error.
func fieldError(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, field, fmt.Sprintf(format, args...))
}

// Validate checks the whole document and returns the first field-level
// problem found. Validation failures are fatal: no scoring may start against
// an invalid rubric.
func (r *Rubric) Validate() error {
	if r.Version == "" {
		return fieldError("version", "missing rubric version")
	}
	if r.Epsilon <= 0 {
		return fieldError("epsilon", "must be positive, got %v", r.Epsilon)
	}
	if r.Parsimony < 0 {
		return fieldError("parsimony", "must be non-negative, got %v", r.Parsimony)
	}

	switch r.Transform {
	case TransformFisherZ, TransformLinear:
	case "":
		return fieldError("dense_transform", "missing transform name")
	default:
		return fieldError("dense_transform", "unknown transform %q", r.Transform)
	}

	if len(r.Modalities) == 0 {
		return fieldError("modalities", "at least one modality must be configured")
	}

	// Deterministic validation order for stable error messages.
	names := make([]feature.Modality, 0, len(r.Modalities))
	for m := range r.Modalities {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	denseConfigured := false
	for _, name := range names {
		mc := r.Modalities[name]
		prefix := fmt.Sprintf("modalities.%s", name)

		switch mc.Mode {
		case ModeSparse:
		case ModeDense:
			denseConfigured = true
		default:
			return fieldError(prefix+".mode", "unknown score mode %q", mc.Mode)
		}

		if sum := mc.Weights.Sum(); math.Abs(sum-1) > weightSumTolerance {
			return fieldError(prefix+".weights", "components sum to %v, want 1", sum)
		}
		for _, c := range []struct {
			name  string
			value float64
		}{
			{"position", mc.Weights.Position},
			{"coverage", mc.Weights.Coverage},
			{"penalty", mc.Weights.Penalty},
			{"intensity", mc.Weights.Intensity},
		} {
			if c.value < 0 {
				return fieldError(prefix+".weights."+c.name, "must be non-negative, got %v", c.value)
			}
		}

		if mc.Lambda < 0 {
			return fieldError(prefix+".lambda", "must be non-negative, got %v", mc.Lambda)
		}
		if mc.Alpha < 0 || mc.Beta < 0 {
			return fieldError(prefix, "alpha and beta must be non-negative, got %v, %v", mc.Alpha, mc.Beta)
		}

		if mc.Mode == ModeSparse && mc.Weights.Intensity > 0 {
			switch mc.Intensity {
			case IntensitySpearman, IntensityChiSquare:
			default:
				return fieldError(prefix+".intensity_mode",
					"intensity weight is %v but intensity mode %q is unknown",
					mc.Weights.Intensity, mc.Intensity)
			}
		}

		q := mc.Quality
		if q.TauRMS <= 0 || q.TauFWHM <= 0 || q.TauSNR <= 0 {
			return fieldError(prefix+".quality",
				"thresholds tau_rms, tau_fwhm, tau_snr must be positive, got %v, %v, %v",
				q.TauRMS, q.TauFWHM, q.TauSNR)
		}
		if q.A < 0 || q.B < 0 || q.C < 0 {
			return fieldError(prefix+".quality",
				"coefficients a, b, c must be non-negative, got %v, %v, %v", q.A, q.B, q.C)
		}
	}

	if denseConfigured {
		g := r.Grid
		if g.ShiftStep <= 0 || g.BroadenStep <= 0 {
			return fieldError("grid", "steps must be positive, got shift %v, broaden %v",
				g.ShiftStep, g.BroadenStep)
		}
		if g.ShiftMax < g.ShiftMin {
			return fieldError("grid", "shift_max %v below shift_min %v", g.ShiftMax, g.ShiftMin)
		}
		if g.BroadenMax < g.BroadenMin {
			return fieldError("grid", "broaden_max %v below broaden_min %v", g.BroadenMax, g.BroadenMin)
		}
		if g.BroadenMin < 0 {
			return fieldError("grid.broaden_min", "must be non-negative, got %v", g.BroadenMin)
		}
		if r.Continuum.Degree < 0 {
			return fieldError("continuum.degree", "must be non-negative, got %v", r.Continuum.Degree)
		}
		if r.Continuum.Window < 0 {
			return fieldError("continuum.window", "must be non-negative, got %v", r.Continuum.Window)
		}
	}

	return r.validateTiers()
}

func (r *Rubric) validateTiers() error {
	t := r.Tiers
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"theta_a", t.ThetaA},
		{"delta_a", t.DeltaA},
		{"s_min", t.SMin},
		{"theta_b", t.ThetaB},
		{"delta_b", t.DeltaB},
		{"s_strong", t.SStrong},
	} {
		if c.value < 0 || c.value > 1 {
			return fieldError("tiers."+c.name, "must lie in [0,1], got %v", c.value)
		}
	}
	if t.ThetaB > t.ThetaA {
		return fieldError("tiers.theta_b", "exceeds theta_a (%v > %v)", t.ThetaB, t.ThetaA)
	}
	if t.SingleModalityMinMatches < 0 {
		return fieldError("tiers.single_modality_min_matches", "must be non-negative, got %d",
			t.SingleModalityMinMatches)
	}
	return nil
}

// ModalityConfig returns the configuration for one modality.
func (r *Rubric) ModalityConfig(m feature.Modality) (Modality, bool) {
	mc, ok := r.Modalities[m]
	return mc, ok
}
