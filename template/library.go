package template

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-specid/feature"
)

type libraryKey struct {
	label    string
	modality feature.Modality
}

// Library is a map-backed template registry: it holds the expectation sets
// and dense templates supplied for one run, keyed by (candidate label,
// modality). Entries are validated on insertion, so lookups always return
// well-formed templates.
type Library struct {
	sparse map[libraryKey]*ExpectationSet
	dense  map[libraryKey]*Dense
}

// NewLibrary returns an empty template library.
func NewLibrary() *Library {
	return &Library{
		sparse: make(map[libraryKey]*ExpectationSet),
		dense:  make(map[libraryKey]*Dense),
	}
}

// AddExpectations registers a sparse expectation set for a candidate.
func (l *Library) AddExpectations(label string, set *ExpectationSet) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("template: candidate %q: %w", label, err)
	}
	l.sparse[libraryKey{label, set.Modality}] = set
	return nil
}

// AddDense registers a dense template for a candidate.
func (l *Library) AddDense(label string, d *Dense) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("template: candidate %q: %w", label, err)
	}
	l.dense[libraryKey{label, d.Modality}] = d
	return nil
}

// Expectations returns the sparse expectation set for (label, modality).
func (l *Library) Expectations(label string, m feature.Modality) (*ExpectationSet, bool) {
	set, ok := l.sparse[libraryKey{label, m}]
	return set, ok
}

// DenseTemplate returns the dense template for (label, modality).
func (l *Library) DenseTemplate(label string, m feature.Modality) (*Dense, bool) {
	d, ok := l.dense[libraryKey{label, m}]
	return d, ok
}

// Versions returns the distinct source identifiers registered in the
// library, sorted, for inclusion in run documents.
func (l *Library) Versions() []SourceID {
	seen := make(map[SourceID]struct{})
	for _, s := range l.sparse {
		seen[s.Source] = struct{}{}
	}
	for _, d := range l.dense {
		seen[d.Source] = struct{}{}
	}

	out := make([]SourceID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
