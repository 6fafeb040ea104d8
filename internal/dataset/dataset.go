// Package dataset holds the in-memory form of a source snapshot and the
// batching of its rows.
package dataset

import (
	"fmt"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// Dataset is an immutable table materialized from a source file. Every row
// has exactly one value per column; nil is SQL NULL.
type Dataset struct {
	columns  []ffmm.Column
	rows     [][]any
	checksum string
}

// New builds a Dataset, checking that every row matches the column count.
func New(columns []ffmm.Column, rows [][]any) (*Dataset, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i+1, len(row), len(columns))
		}
	}
	return &Dataset{columns: columns, rows: rows}, nil
}

// Columns returns a copy of the column definitions.
func (d *Dataset) Columns() []ffmm.Column {
	out := make([]ffmm.Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// ColumnNames returns the current column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// SourceNames returns the raw labels as read from the file.
func (d *Dataset) SourceNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Source
	}
	return names
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns the rows of b. The slice aliases the dataset and must not be modified.
func (d *Dataset) Rows(b Batch) [][]any {
	return d.rows[b.Offset : b.Offset+b.Rows]
}

// Renamed returns a Dataset sharing the rows of d with the columns renamed.
// Source labels are kept.
func (d *Dataset) Renamed(names []string) (*Dataset, error) {
	if len(names) != len(d.columns) {
		return nil, fmt.Errorf("got %d names for %d columns", len(names), len(d.columns))
	}
	cols := d.Columns()
	for i := range cols {
		cols[i].Name = names[i]
	}
	return &Dataset{columns: cols, rows: d.rows, checksum: d.checksum}, nil
}

// WithChecksum returns a Dataset sharing d's data and labelled with the
// fingerprint of the file it was read from.
func (d *Dataset) WithChecksum(sum string) *Dataset {
	return &Dataset{columns: d.columns, rows: d.rows, checksum: sum}
}

// Checksum returns the source fingerprint, or "" if none was recorded.
func (d *Dataset) Checksum() string {
	return d.checksum
}
