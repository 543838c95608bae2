// Package table holds the in-memory tabular data model shared by the whole
// engine. A Table is an ordered set of named columns and an ordered set of
// rows; cells are text, with "" meaning missing. Tables loaded from a source
// are treated as immutable snapshots: every transformation below returns a
// new Table and never mutates its receiver's rows in place.
package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Table is an ordered sequence of named columns and rows. Rows are padded to
// the column count on append, so indexing row[i] is always safe for a column
// index obtained from the same table.
type Table struct {
	// ID identifies a loaded snapshot; derived tables keep the ID of the
	// snapshot they came from.
	ID      string
	Name    string
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given columns and a fresh snapshot ID.
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{ID: uuid.NewString(), Name: name, Columns: cols}
}

// AppendRow adds a row, padding or truncating to the column count.
func (t *Table) AppendRow(row []string) {
	r := make([]string, len(t.Columns))
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// NumRows returns the row count; nil-safe.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the index of the column with the given name, or -1.
// Matching is exact first, then case-insensitive.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column returns a copy of the named column's values, or nil if absent.
func (t *Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Value returns the cell at (row, column name), or "" when out of range.
func (t *Table) Value(row int, name string) string {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

// Clone returns a deep copy sharing nothing with the receiver.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{ID: t.ID, Name: t.Name, Columns: make([]string, len(t.Columns))}
	copy(out.Columns, t.Columns)
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Filter returns a new table containing the rows for which keep returns true.
// The receiver is not modified.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := &Table{ID: t.ID, Name: t.Name, Columns: t.Columns}
	for _, row := range t.Rows {
		if keep(row) {
			r := make([]string, len(row))
			copy(r, row)
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// WithColumn returns a new table with an extra column appended. values shorter
// than the row count are padded with "".
func (t *Table) WithColumn(name string, values []string) *Table {
	out := t.Clone()
	out.Columns = append(out.Columns, name)
	for i := range out.Rows {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		out.Rows[i] = append(out.Rows[i], v)
	}
	return out
}

// WithoutColumns returns a new table with the named columns removed. Unknown
// names are ignored.
func (t *Table) WithoutColumns(names ...string) *Table {
	drop := map[int]bool{}
	for _, n := range names {
		if idx := t.ColumnIndex(n); idx >= 0 {
			drop[idx] = true
		}
	}
	if len(drop) == 0 {
		return t.Clone()
	}
	out := &Table{ID: t.ID, Name: t.Name}
	for i, c := range t.Columns {
		if !drop[i] {
			out.Columns = append(out.Columns, c)
		}
	}
	for _, row := range t.Rows {
		r := make([]string, 0, len(out.Columns))
		for i, v := range row {
			if !drop[i] {
				r = append(r, v)
			}
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// DistinctValues returns the sorted distinct non-missing values of a column.
func (t *Table) DistinctValues(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[idx])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// String gives a short description for logs and errors.
func (t *Table) String() string {
	if t == nil {
		return "<nil table>"
	}
	return fmt.Sprintf("%s (%d cols, %d rows)", t.Name, len(t.Columns), len(t.Rows))
}
