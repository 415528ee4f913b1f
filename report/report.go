// Package report exports identification runs as reproducible documents.
//
// A Document carries everything needed to audit or replay a run: rubric and
// template versions, the seed, the ranked hypotheses, and their evidence
// graphs. Two encodings are supported: JSON for human-facing archives and a
// msgpack snapshot for compact storage. Both carry an explicit schema
// version and refuse to load documents written by an incompatible schema.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/fuse"
	"github.com/cwbudde/algo-specid/identify"
	"github.com/cwbudde/algo-specid/template"
)

// SchemaVersion is incremented whenever the Document layout changes in a
// way old readers cannot handle.
const SchemaVersion uint16 = 1

// ErrSchema is returned when a loaded document was written under a
// different schema version.
var ErrSchema = errors.New("report: unsupported document schema")

// Document is the complete, versioned record of one identification run.
type Document struct {
	Schema uint16 `json:"schema" msgpack:"schema"`

	Session     string    `json:"session" msgpack:"session"`
	Dataset     string    `json:"dataset" msgpack:"dataset"`
	GeneratedAt time.Time `json:"generated_at" msgpack:"generated_at"`

	RubricVersion    string              `json:"rubric_version" msgpack:"rubric_version"`
	TemplateVersions []template.SourceID `json:"template_versions,omitempty" msgpack:"template_versions"`
	Seed             int64               `json:"seed" msgpack:"seed"`

	Reason     identify.ReasonCode `json:"reason" msgpack:"reason"`
	Hypotheses []*fuse.Hypothesis  `json:"hypotheses,omitempty" msgpack:"hypotheses"`
	Warnings   []feature.Warning   `json:"warnings,omitempty" msgpack:"warnings"`
}

// NewDocument wraps a run result as a schema-versioned document. Template
// versions come from the library the run scored against.
func NewDocument(res *identify.Result, versions []template.SourceID) *Document {
	return &Document{
		Schema:           SchemaVersion,
		Session:          res.Session,
		Dataset:          res.Dataset,
		GeneratedAt:      time.Now().UTC(),
		RubricVersion:    res.RubricVersion,
		TemplateVersions: versions,
		Seed:             res.Seed,
		Reason:           res.Reason,
		Hypotheses:       res.Hypotheses,
		Warnings:         res.Warnings,
	}
}

// WriteJSON writes the document as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// ReadJSON loads a JSON document and restores the evidence graph indexes.
func ReadJSON(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("report: decode json: %w", err)
	}
	if err := d.rebuild(); err != nil {
		return nil, err
	}
	return &d, nil
}

// rebuild validates the schema and reindexes every hypothesis graph, which
// deserialization leaves without its lookup structures.
func (d *Document) rebuild() error {
	if d.Schema != SchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSchema, d.Schema, SchemaVersion)
	}
	for _, h := range d.Hypotheses {
		if h.Graph == nil {
			continue
		}
		if err := h.Graph.Rebuild(); err != nil {
			return fmt.Errorf("report: hypothesis %q: %w", h.Label, err)
		}
	}
	return nil
}
