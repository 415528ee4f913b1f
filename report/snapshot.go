package report

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteSnapshot writes the document in its compact binary encoding. The
// schema version travels inside the payload and is checked on load.
func (d *Document) WriteSnapshot(w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(d); err != nil {
		return fmt.Errorf("report: encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a binary snapshot and restores the evidence graph
// indexes. A snapshot written under a different schema version fails with
// ErrSchema rather than being reinterpreted.
func ReadSnapshot(r io.Reader) (*Document, error) {
	var d Document
	if err := msgpack.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("report: decode snapshot: %w", err)
	}
	if err := d.rebuild(); err != nil {
		return nil, err
	}
	return &d, nil
}
