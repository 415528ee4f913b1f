// Package candidate generates the shortlist of hypotheses to score.
//
// Generation is pure rule evaluation over a data-driven catalog: each
// candidate record declares required and forbidden elements plus optional
// environmental constraints, and the generator intersects those against the
// detected gates. No probabilistic reasoning happens here; any candidate
// violating a hard constraint is dropped before scoring begins.
package candidate

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by catalog validation.
var (
	ErrEmptyLabel     = errors.New("candidate: empty candidate label")
	ErrDuplicateLabel = errors.New("candidate: duplicate candidate label")
)

// Phase is a coarse physical phase tag used by environmental constraints.
type Phase string

const (
	PhaseAny      Phase = ""
	PhaseSolid    Phase = "solid"
	PhaseLiquid   Phase = "liquid"
	PhaseGas      Phase = "gas"
	PhaseSolution Phase = "solution"
)

// Entry is one catalog record: a candidate composition with its gating
// rules, represented as data so new candidates require no code changes.
type Entry struct {
	Label      string   `yaml:"label" json:"label"`
	Components []string `yaml:"components,omitempty" json:"components,omitempty"`

	// RequiredElements must all be present among the detected gates.
	RequiredElements []string `yaml:"required_elements,omitempty" json:"required_elements,omitempty"`

	// ForbiddenElements drop the candidate when any is detected.
	ForbiddenElements []string `yaml:"forbidden_elements,omitempty" json:"forbidden_elements,omitempty"`

	// Environmental constraints. Zero values mean unconstrained.
	Phase   Phase   `yaml:"phase,omitempty" json:"phase,omitempty"`
	TempMin float64 `yaml:"temp_min,omitempty" json:"temp_min,omitempty"`
	TempMax float64 `yaml:"temp_max,omitempty" json:"temp_max,omitempty"`
	Solvent string  `yaml:"solvent,omitempty" json:"solvent,omitempty"`

	// LogPrior is the candidate's prior in log-probability space.
	LogPrior float64 `yaml:"log_prior,omitempty" json:"log_prior,omitempty"`
}

// Catalog is the full candidate table for a run.
type Catalog struct {
	Entries []Entry `yaml:"entries" json:"entries"`
}

// Validate checks labels are present and unique.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Entries))
	for i, e := range c.Entries {
		if e.Label == "" {
			return fmt.Errorf("%w (entry %d)", ErrEmptyLabel, i)
		}
		if _, dup := seen[e.Label]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, e.Label)
		}
		seen[e.Label] = struct{}{}
	}
	return nil
}

// Gates holds the detected elemental and environmental context that drives
// candidate filtering: which elements an atomic modality confirmed, plus the
// known sample environment.
type Gates struct {
	Elements []string `yaml:"elements,omitempty" json:"elements,omitempty"`

	Phase       Phase   `yaml:"phase,omitempty" json:"phase,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	HasTemp     bool    `yaml:"has_temp,omitempty" json:"has_temp,omitempty"`
	Solvent     string  `yaml:"solvent,omitempty" json:"solvent,omitempty"`

	// Whitelist and Blacklist are user-supplied overrides, applied after
	// all rule evaluation. They always win.
	Whitelist []string `yaml:"whitelist,omitempty" json:"whitelist,omitempty"`
	Blacklist []string `yaml:"blacklist,omitempty" json:"blacklist,omitempty"`
}

// Generate evaluates the catalog against the gates and returns the candidate
// set to score, ordered by label for deterministic downstream iteration.
// An empty result is a valid outcome, not an error.
func Generate(catalog *Catalog, gates Gates) ([]Entry, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	detected := make(map[string]struct{}, len(gates.Elements))
	for _, el := range gates.Elements {
		detected[el] = struct{}{}
	}
	white := make(map[string]struct{}, len(gates.Whitelist))
	for _, l := range gates.Whitelist {
		white[l] = struct{}{}
	}
	black := make(map[string]struct{}, len(gates.Blacklist))
	for _, l := range gates.Blacklist {
		black[l] = struct{}{}
	}

	var out []Entry
	for _, e := range catalog.Entries {
		pass := passesRules(e, gates, detected)

		// User overrides are applied last and always win.
		if _, ok := white[e.Label]; ok {
			pass = true
		}
		if _, ok := black[e.Label]; ok {
			pass = false
		}

		if pass {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func passesRules(e Entry, gates Gates, detected map[string]struct{}) bool {
	for _, req := range e.RequiredElements {
		if _, ok := detected[req]; !ok {
			return false
		}
	}
	for _, forb := range e.ForbiddenElements {
		if _, ok := detected[forb]; ok {
			return false
		}
	}

	if e.Phase != PhaseAny && gates.Phase != PhaseAny && e.Phase != gates.Phase {
		return false
	}
	if gates.HasTemp && (e.TempMin != 0 || e.TempMax != 0) {
		if gates.Temperature < e.TempMin {
			return false
		}
		if e.TempMax != 0 && gates.Temperature > e.TempMax {
			return false
		}
	}
	if e.Solvent != "" && gates.Solvent != "" && e.Solvent != gates.Solvent {
		return false
	}

	return true
}
