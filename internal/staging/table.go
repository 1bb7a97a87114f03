// Package staging uploads locally produced tables to a signed destination so
// the control plane can ingest them.
package staging

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is an immutable in-memory columnar table. Producers build one with
// NewTable; the orchestrator only reads it.
type Table struct {
	columns []string
	rows    [][]any
}

// NewTable creates a table from column names and rows. Every row must have
// one value per column.
func NewTable(columns []string, rows [][]any) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table requires at least one column")
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}
	return &Table{columns: columns, rows: rows}, nil
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// Encode serializes the table as newline-delimited JSON records, one object
// per row keyed by column name. This is the wire format the signed upload
// destination accepts.
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, row := range t.rows {
		record := make(map[string]any, len(t.columns))
		for j, col := range t.columns {
			record[col] = row[j]
		}
		if err := enc.Encode(record); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
