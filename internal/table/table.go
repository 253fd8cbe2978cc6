// Package table holds the columnar in-memory table shared by every stage of
// the pipeline. Tables and columns are never mutated after construction;
// derived tables share the columns they do not touch.
package table

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch  = errors.New("column lengths differ")
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Table is an ordered set of equal-length named columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a table from columns.
func New(cols ...*Column) (*Table, error) {
	t := &Table{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.name, c.Len(), t.rows)
		}
		t.index[c.name] = i
	}
	return t, nil
}

// MustNew is New for callers that build columns themselves.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Len() int   { return t.rows }
func (t *Table) Width() int { return len(t.cols) }

// Names returns column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Columns returns the columns in order. Callers must not modify the slice.
func (t *Table) Columns() []*Column { return t.cols }

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Missing returns the subset of names that are not columns of t.
func (t *Table) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if !t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Drop returns a table without the named columns. Absent names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	kept := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if !skip[c.name] {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(t.cols) {
		return t
	}
	return t.rebuild(kept)
}

// Replace returns a table where the column with col's name is swapped for
// col. If no such column exists, col is appended.
func (t *Table) Replace(col *Column) *Table {
	cols := make([]*Column, len(t.cols), len(t.cols)+1)
	copy(cols, t.cols)
	if i, ok := t.index[col.name]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return t.rebuild(cols)
}

// Take returns the rows at idx, in idx order.
func (t *Table) Take(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Take(idx)
	}
	out := t.rebuild(cols)
	out.rows = len(idx)
	return out
}

// Head returns at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n >= t.rows {
		return t
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.Take(idx)
}

// Row returns row i rendered as strings; missing cells are empty.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j], _ = c.Text(i)
	}
	return out
}

// Records returns rows as name→value maps with nil for missing cells.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, t.rows)
	for i := 0; i < t.rows; i++ {
		rec := make(map[string]any, len(t.cols))
		for _, c := range t.cols {
			rec[c.name] = c.Value(i)
		}
		out[i] = rec
	}
	return out
}

// Equal reports whether two tables have the same columns, kinds and cells.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for j, c := range t.cols {
		d := o.cols[j]
		if c.name != d.name || c.kind != d.kind {
			return false
		}
		for i := 0; i < t.rows; i++ {
			if c.valid[i] != d.valid[i] {
				return false
			}
			if !c.valid[i] {
				continue
			}
			if c.kind == Number && c.nums[i] != d.nums[i] {
				return false
			}
			if c.kind == Text && c.strs[i] != d.strs[i] {
				return false
			}
		}
	}
	return true
}

func (t *Table) rebuild(cols []*Column) *Table {
	out := &Table{cols: cols, index: make(map[string]int, len(cols)), rows: t.rows}
	for i, c := range cols {
		out.index[c.name] = i
	}
	return out
}
