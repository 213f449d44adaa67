// Package frame provides the small in-memory table used to hold lookup results.
//
// A Table keeps an ordered column list, a slice of rows and an optional index
// (one or more key columns). Index columns are ordinary columns: they always
// appear in Columns() and in every Row, so resetting the index never moves data.
package frame

import (
	"fmt"
	"slices"
)

// Row is a single record. Missing columns read as nil.
type Row map[string]any

// Table is an ordered collection of rows with a column schema.
type Table struct {
	index   []string
	columns []string
	rows    []Row
}

// New returns an empty table indexed by the given columns.
func New(index ...string) *Table {
	t := &Table{}
	t.SetIndex(index...)
	return t
}

// FromRecords builds a table from records, keeping the first-seen column order.
func FromRecords(records []Row, index ...string) *Table {
	t := New(index...)
	for _, r := range records {
		t.Append(r)
	}
	return t
}

// Append adds a copy of r. Columns not yet known are added in sorted order
// after the existing ones; use AppendOrdered to control the order.
func (t *Table) Append(r Row) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	t.AppendOrdered(r, keys...)
}

// AppendOrdered adds a copy of r, registering new columns in the order given
// by cols before any remaining unknown keys.
func (t *Table) AppendOrdered(r Row, cols ...string) {
	for _, c := range cols {
		t.addColumn(c)
	}
	row := make(Row, len(r))
	for k, v := range r {
		t.addColumn(k)
		row[k] = v
	}
	t.rows = append(t.rows, row)
}

func (t *Table) addColumn(name string) {
	if !slices.Contains(t.columns, name) {
		t.columns = append(t.columns, name)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.columns)
}

// Index returns the index column names.
func (t *Table) Index() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.index)
}

// HasColumn reports whether name is a known column.
func (t *Table) HasColumn(name string) bool {
	return t != nil && slices.Contains(t.columns, name)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	out := make(Row, len(t.rows[i]))
	for k, v := range t.rows[i] {
		out[k] = v
	}
	return out
}

// Get returns the value at row i, column col, or nil.
func (t *Table) Get(i int, col string) any {
	return t.rows[i][col]
}

// GetString returns the value at row i, column col formatted as a string.
// Nil values read as "".
func (t *Table) GetString(i int, col string) string {
	v := t.rows[i][col]
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Key returns the index values of row i as strings.
func (t *Table) Key(i int) []string {
	key := make([]string, len(t.index))
	for j, c := range t.index {
		key[j] = t.GetString(i, c)
	}
	return key
}

// Column returns all values of a column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out
}

// SetIndex sets the index columns, registering them as columns if needed.
// Index columns are moved to the front of the column order.
func (t *Table) SetIndex(cols ...string) {
	t.index = slices.Clone(cols)
	rest := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !slices.Contains(cols, c) {
			rest = append(rest, c)
		}
	}
	t.columns = append(slices.Clone(cols), rest...)
}

// ResetIndex clears the index. Index columns stay in the table.
func (t *Table) ResetIndex() {
	t.index = nil
}

// Rename renames columns (and index entries) using the old->new mapping.
func (t *Table) Rename(mapping map[string]string) {
	for i, c := range t.columns {
		if n, ok := mapping[c]; ok {
			t.columns[i] = n
		}
	}
	for i, c := range t.index {
		if n, ok := mapping[c]; ok {
			t.index[i] = n
		}
	}
	for _, r := range t.rows {
		for old, n := range mapping {
			if v, ok := r[old]; ok {
				delete(r, old)
				r[n] = v
			}
		}
	}
}

// Fill sets column col to v on every row.
func (t *Table) Fill(col string, v any) {
	t.addColumn(col)
	for _, r := range t.rows {
		r[col] = v
	}
}

// Records returns copies of all rows.
func (t *Table) Records() []Row {
	if t == nil {
		return []Row{}
	}
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Concat appends the rows of all tables in order. Columns keep first-seen
// order. The result is indexed like the inputs when every non-empty input
// shares the same index, and unindexed otherwise.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	var index []string
	first := true
	for _, t := range tables {
		if t == nil {
			continue
		}
		if t.Len() > 0 {
			if first {
				index = slices.Clone(t.index)
				first = false
			} else if !slices.Equal(index, t.index) {
				index = nil
			}
		}
		for _, c := range t.columns {
			out.addColumn(c)
		}
		for _, r := range t.rows {
			row := make(Row, len(r))
			for k, v := range r {
				row[k] = v
			}
			out.rows = append(out.rows, row)
		}
	}
	if len(index) > 0 {
		out.SetIndex(index...)
	}
	return out
}
