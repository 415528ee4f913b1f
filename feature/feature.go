// Package feature defines the canonical representation of observed spectral
// features and the read-only store the scoring pipeline consumes.
//
// A Feature is one detected spectral event (peak, band, or edge) on the
// canonical axis of its modality, carrying position, width, and intensity
// together with their uncertainties. Features are immutable once accepted
// into a Set; a Set is built once per run and shared read-only across
// concurrent scorers.
package feature

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by feature validation.
var (
	ErrDuplicateID = errors.New("feature: duplicate feature id")
	ErrNoFeatures  = errors.New("feature: empty feature list")
)

// Modality identifies the measurement technique that produced a feature.
// Each modality has its own canonical axis; values are compared as opaque
// strings and serialized verbatim.
type Modality string

// Known modalities. The pipeline does not restrict the set: any non-empty
// modality string round-trips through scoring unchanged.
const (
	ModalityAtomicEmission   Modality = "atomic-emission"
	ModalityAtomicAbsorption Modality = "atomic-absorption"
	ModalityInfrared         Modality = "infrared"
	ModalityRaman            Modality = "raman"
	ModalityUVVis            Modality = "uv-vis"
	ModalityFluorescence     Modality = "fluorescence"
)

// ShapeFamily classifies the fitted line shape of a feature.
type ShapeFamily string

const (
	ShapeGaussian   ShapeFamily = "gaussian"
	ShapeLorentzian ShapeFamily = "lorentzian"
	ShapeVoigt      ShapeFamily = "voigt"
	ShapeUnknown    ShapeFamily = "unknown"
)

// Feature is one observed spectral event. All positional quantities are in
// the canonical units of the feature's modality. Features are plain values;
// the store never mutates them after acceptance.
type Feature struct {
	ID       string      `json:"id" yaml:"id"`
	Modality Modality    `json:"modality" yaml:"modality"`
	Shape    ShapeFamily `json:"shape,omitempty" yaml:"shape,omitempty"`

	Center      float64 `json:"center" yaml:"center"`
	CenterSigma float64 `json:"center_sigma" yaml:"center_sigma"`
	FWHM        float64 `json:"fwhm,omitempty" yaml:"fwhm,omitempty"`
	FWHMSigma   float64 `json:"fwhm_sigma,omitempty" yaml:"fwhm_sigma,omitempty"`

	Intensity      float64 `json:"intensity,omitempty" yaml:"intensity,omitempty"`
	IntensitySigma float64 `json:"intensity_sigma,omitempty" yaml:"intensity_sigma,omitempty"`
	IntensityUnit  string  `json:"intensity_unit,omitempty" yaml:"intensity_unit,omitempty"`

	// IntensityReliable marks whether relative intensity calibration is
	// trustworthy for this feature. When false the intensity component is
	// excluded from scoring.
	IntensityReliable bool `json:"intensity_reliable,omitempty" yaml:"intensity_reliable,omitempty"`

	Annotations []string `json:"annotations,omitempty" yaml:"annotations,omitempty"`

	// Provenance back-references: the originating spectrum and the
	// extraction algorithm/parameters that produced this feature.
	SpectrumID string            `json:"spectrum_id,omitempty" yaml:"spectrum_id,omitempty"`
	Extractor  string            `json:"extractor,omitempty" yaml:"extractor,omitempty"`
	Params     map[string]string `json:"extractor_params,omitempty" yaml:"extractor_params,omitempty"`
}

// QC carries the per-spectrum quality metrics supplied by the calibration
// subsystem for one modality, plus the instrument line-spread kernel used by
// dense-mode scoring. The store treats these as opaque metadata; it never
// re-derives them.
type QC struct {
	Modality       Modality  `json:"modality" yaml:"modality"`
	CalibrationRMS float64   `json:"calibration_rms" yaml:"calibration_rms"`
	FWHMDeviation  float64   `json:"fwhm_deviation" yaml:"fwhm_deviation"`
	SNR            float64   `json:"snr" yaml:"snr"`
	Resolution     float64   `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	LineSpread     []float64 `json:"line_spread,omitempty" yaml:"line_spread,omitempty"`
}

// Warning records a feature that was rejected from scoring and why. Warnings
// degrade gracefully: the run continues and the warning is attached to every
// affected hypothesis.
type Warning struct {
	FeatureID string   `json:"feature_id"`
	Modality  Modality `json:"modality"`
	Field     string   `json:"field"`
	Reason    string   `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("feature %q (%s): %s: %s", w.FeatureID, w.Modality, w.Field, w.Reason)
}

// Set is the immutable feature store for one identification run. Features
// are grouped per modality and held in ascending feature-id order so every
// downstream reduction iterates in an input-order-independent sequence.
type Set struct {
	byModality map[Modality][]Feature
	qc         map[Modality]QC
	warnings   []Warning
}

// NewSet validates and accepts features into a store. Features missing
// required metadata (empty id, empty modality, non-positive center
// uncertainty) are rejected with a Warning rather than failing the run.
// Duplicate feature ids are an input error and fail construction.
func NewSet(features []Feature, qc []QC) (*Set, error) {
	s := &Set{
		byModality: make(map[Modality][]Feature),
		qc:         make(map[Modality]QC, len(qc)),
	}

	for _, m := range qc {
		s.qc[m.Modality] = m
	}

	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if w, ok := validate(f); !ok {
			s.warnings = append(s.warnings, w)
			continue
		}
		if _, dup := seen[f.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, f.ID)
		}
		seen[f.ID] = struct{}{}
		s.byModality[f.Modality] = append(s.byModality[f.Modality], f)
	}

	for m := range s.byModality {
		fs := s.byModality[m]
		sort.Slice(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })
	}

	return s, nil
}

func validate(f Feature) (Warning, bool) {
	switch {
	case f.ID == "":
		return Warning{FeatureID: f.ID, Modality: f.Modality, Field: "id", Reason: "missing feature id"}, false
	case f.Modality == "":
		return Warning{FeatureID: f.ID, Field: "modality", Reason: "missing modality"}, false
	case f.CenterSigma <= 0:
		return Warning{FeatureID: f.ID, Modality: f.Modality, Field: "center_sigma",
			Reason: "center uncertainty must be positive"}, false
	case f.Intensity != 0 && f.IntensityUnit == "":
		return Warning{FeatureID: f.ID, Modality: f.Modality, Field: "intensity_unit",
			Reason: "intensity supplied without a unit tag"}, false
	}

	return Warning{}, true
}

// Modalities returns the modalities present in the store, sorted.
func (s *Set) Modalities() []Modality {
	out := make([]Modality, 0, len(s.byModality))
	for m := range s.byModality {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ByModality returns the accepted features for one modality in ascending
// feature-id order. The returned slice is shared; callers must not mutate it.
func (s *Set) ByModality(m Modality) []Feature {
	return s.byModality[m]
}

// QC returns the quality metrics supplied for a modality.
func (s *Set) QC(m Modality) (QC, bool) {
	q, ok := s.qc[m]
	return q, ok
}

// Warnings returns the rejection warnings accumulated during construction.
func (s *Set) Warnings() []Warning {
	return s.warnings
}

// Len returns the total number of accepted features.
func (s *Set) Len() int {
	n := 0
	for _, fs := range s.byModality {
		n += len(fs)
	}
	return n
}
