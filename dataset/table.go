package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ============================================================================
// TABLE — Ordered rows of typed cells
// ============================================================================
// The engine never mutates a caller's table: Apply copies matching rows, and
// WithColumn rebuilds rows before appending a column. Sorts are stable so
// ties keep first-appearance order.
// ============================================================================

// ColType classifies a column.
type ColType int

const (
	ColText ColType = iota
	ColNumber
	ColDate
)

// String returns the column type label used in quality reports.
func (c ColType) String() string {
	switch c {
	case ColNumber:
		return "number"
	case ColDate:
		return "date"
	}
	return "text"
}

// Table is an ordered collection of rows with named, typed columns.
type Table struct {
	cols  []string
	types []ColType
	rows  [][]Value
}

// New creates an empty table with the given column names and types.
func New(cols []string, types []ColType) *Table {
	if len(types) != len(cols) {
		padded := make([]ColType, len(cols))
		copy(padded, types)
		types = padded
	}
	return &Table{cols: append([]string(nil), cols...), types: append([]ColType(nil), types...)}
}

// AppendRow adds a row. Short rows are padded with nulls.
func (t *Table) AppendRow(vals ...Value) {
	row := make([]Value, len(t.cols))
	for i := range row {
		if i < len(vals) {
			row[i] = vals[i]
		} else {
			row[i] = Null()
		}
	}
	t.rows = append(t.rows, row)
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the ordered column names.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// ColType returns the type of a named column (ColText if absent).
func (t *Table) ColType(name string) ColType {
	if i := t.colIndex(name); i >= 0 {
		return t.types[i]
	}
	return ColText
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool { return t.colIndex(name) >= 0 }

func (t *Table) colIndex(name string) int {
	for i, c := range t.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// At returns the cell at (row, column index).
func (t *Table) At(row, col int) Value {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.cols) {
		return Null()
	}
	return t.rows[row][col]
}

// Value returns the cell at (row, named column).
func (t *Table) Value(row int, col string) Value {
	return t.At(row, t.colIndex(col))
}

// Column returns all cells of a named column, nil if absent.
func (t *Table) Column(name string) []Value {
	i := t.colIndex(name)
	if i < 0 {
		return nil
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	out := New(t.cols, t.types)
	out.rows = make([][]Value, n)
	for i := 0; i < n; i++ {
		out.rows[i] = append([]Value(nil), t.rows[i]...)
	}
	return out
}

// SortBy stably sorts rows by a named column. Missing columns are a no-op.
func (t *Table) SortBy(col string, descending bool) {
	i := t.colIndex(col)
	if i < 0 {
		return
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		c := t.rows[a][i].Compare(t.rows[b][i])
		if descending {
			return c > 0
		}
		return c < 0
	})
}

// WithColumn returns a new table with an extra column appended.
// len(vals) must equal NumRows; extra slots are null-padded.
func (t *Table) WithColumn(name string, typ ColType, vals []Value) *Table {
	out := New(append(t.Columns(), name), append(append([]ColType(nil), t.types...), typ))
	out.rows = make([][]Value, len(t.rows))
	for r, row := range t.rows {
		nr := make([]Value, len(row)+1)
		copy(nr, row)
		if r < len(vals) {
			nr[len(row)] = vals[r]
		} else {
			nr[len(row)] = Null()
		}
		out.rows[r] = nr
	}
	return out
}

// Select returns a copy containing only the named columns, in order.
// Unknown names are skipped.
func (t *Table) Select(names ...string) *Table {
	var idx []int
	var cols []string
	var types []ColType
	for _, n := range names {
		if i := t.colIndex(n); i >= 0 {
			idx = append(idx, i)
			cols = append(cols, n)
			types = append(types, t.types[i])
		}
	}
	out := New(cols, types)
	out.rows = make([][]Value, len(t.rows))
	for r, row := range t.rows {
		nr := make([]Value, len(idx))
		for j, i := range idx {
			nr[j] = row[i]
		}
		out.rows[r] = nr
	}
	return out
}

// DuplicateRows counts rows identical to an earlier row.
func (t *Table) DuplicateRows() int {
	seen := make(map[string]bool, len(t.rows))
	dups := 0
	for _, row := range t.rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprintf("%d:%s", v.Kind, v.String())
		}
		key := strings.Join(parts, "\x1f")
		if seen[key] {
			dups++
		}
		seen[key] = true
	}
	return dups
}

// MarshalJSON emits {"columns": [...], "rows": [{col: val, ...}, ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]Value, len(t.rows))
	for r, row := range t.rows {
		rec := make(map[string]Value, len(t.cols))
		for i, c := range t.cols {
			rec[c] = row[i]
		}
		rows[r] = rec
	}
	cols := t.cols
	if cols == nil {
		cols = []string{}
	}
	return json.Marshal(struct {
		Columns []string          `json:"columns"`
		Rows    []map[string]Value `json:"rows"`
	}{Columns: cols, Rows: rows})
}
