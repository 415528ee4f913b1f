// Package template defines the read-only reference inputs a candidate is
// scored against: sparse expectation sets (discrete lines/bands with library
// uncertainties) and dense sampled templates for cross-correlation.
//
// Templates are supplied per run by an external reference registry and are
// pinned to a versioned source identifier so results can be replayed against
// the exact library state that produced them.
package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-specid/feature"
)

// Errors returned by template validation.
var (
	ErrEmptySet        = errors.New("template: expectation set has no expected features")
	ErrEmptyTemplate   = errors.New("template: dense template has no samples")
	ErrAxisMismatch    = errors.New("template: axis and sample lengths differ")
	ErrInvalidSourceID = errors.New("template: source id must have the form name@version")
)

// SourceID pins a template to an external reference source and version,
// formatted as "name@version".
type SourceID string

// Validate checks the name@version form.
func (s SourceID) Validate() error {
	name, version, ok := strings.Cut(string(s), "@")
	if !ok || name == "" || version == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSourceID, string(s))
	}
	return nil
}

// Version returns the version part of the identifier, or "" if malformed.
func (s SourceID) Version() string {
	_, version, _ := strings.Cut(string(s), "@")
	return version
}

// ExpectedFeature is one expected line/band center with its library
// uncertainty and an optional expected relative intensity.
type ExpectedFeature struct {
	Center       float64 `json:"center" yaml:"center"`
	LibrarySigma float64 `json:"library_sigma" yaml:"library_sigma"`

	// RelIntensity is the expected relative intensity, or 0 when the
	// library supplies none. HasIntensity distinguishes "unknown" from a
	// genuinely zero expectation.
	RelIntensity float64 `json:"rel_intensity,omitempty" yaml:"rel_intensity,omitempty"`
	HasIntensity bool    `json:"has_intensity,omitempty" yaml:"has_intensity,omitempty"`
}

// ExpectationSet is the sparse expectation list for one (candidate,
// modality) pair: ordered expected feature centers with uncertainties.
type ExpectationSet struct {
	Modality feature.Modality  `json:"modality" yaml:"modality"`
	Source   SourceID          `json:"source" yaml:"source"`
	Expected []ExpectedFeature `json:"expected" yaml:"expected"`
}

// Validate reports the first structural problem in the set.
func (e *ExpectationSet) Validate() error {
	if err := e.Source.Validate(); err != nil {
		return err
	}
	if len(e.Expected) == 0 {
		return fmt.Errorf("%w (source %s)", ErrEmptySet, e.Source)
	}
	for i, ef := range e.Expected {
		if ef.LibrarySigma < 0 {
			return fmt.Errorf("template: expected feature %d of %s: negative library sigma %v",
				i, e.Source, ef.LibrarySigma)
		}
	}
	return nil
}

// Dense is a sampled reference template for dense-mode scoring: intensity
// samples on a uniform canonical axis. Step is the axis spacing; Start is
// the axis value of sample 0.
type Dense struct {
	Modality feature.Modality `json:"modality" yaml:"modality"`
	Source   SourceID         `json:"source" yaml:"source"`
	Start    float64          `json:"start" yaml:"start"`
	Step     float64          `json:"step" yaml:"step"`
	Samples  []float64        `json:"samples" yaml:"samples"`
}

// Validate reports the first structural problem in the template.
func (d *Dense) Validate() error {
	if err := d.Source.Validate(); err != nil {
		return err
	}
	if len(d.Samples) == 0 {
		return fmt.Errorf("%w (source %s)", ErrEmptyTemplate, d.Source)
	}
	if d.Step <= 0 {
		return fmt.Errorf("template: %s: axis step must be positive, got %v", d.Source, d.Step)
	}
	return nil
}

// Segment is an observed dense spectrum segment on the same uniform axis
// convention as Dense, supplied by the caller for dense-mode modalities.
type Segment struct {
	Modality feature.Modality `json:"modality" yaml:"modality"`
	Start    float64          `json:"start" yaml:"start"`
	Step     float64          `json:"step" yaml:"step"`
	Samples  []float64        `json:"samples" yaml:"samples"`
}

// Validate reports the first structural problem in the segment.
func (s *Segment) Validate() error {
	if len(s.Samples) == 0 {
		return errors.New("template: observed segment has no samples")
	}
	if s.Step <= 0 {
		return fmt.Errorf("template: observed segment: axis step must be positive, got %v", s.Step)
	}
	return nil
}
