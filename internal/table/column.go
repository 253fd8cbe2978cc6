package table

import (
	"math"
	"strconv"
)

// Kind is the inferred storage type of a column.
type Kind int

const (
	Text Kind = iota
	Number
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "numeric"
	default:
		return "text"
	}
}

// Column is an immutable, named vector with a validity mask.
// Exactly one of nums/strs is populated depending on kind.
type Column struct {
	name  string
	kind  Kind
	nums  []float64
	strs  []string
	valid []bool
}

// NewNumber builds a numeric column. When valid is nil, NaN entries are
// treated as missing and everything else as present.
func NewNumber(name string, vals []float64, valid []bool) *Column {
	if valid == nil {
		valid = make([]bool, len(vals))
		for i, v := range vals {
			valid[i] = !math.IsNaN(v)
		}
	}
	return &Column{name: name, kind: Number, nums: vals, valid: valid}
}

// NewText builds a text column. When valid is nil every entry is present.
func NewText(name string, vals []string, valid []bool) *Column {
	if valid == nil {
		valid = make([]bool, len(vals))
		for i := range valid {
			valid[i] = true
		}
	}
	return &Column{name: name, kind: Text, strs: vals, valid: valid}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.valid) }

// Valid reports whether row i holds a value.
func (c *Column) Valid(i int) bool { return c.valid[i] }

// Float returns the numeric value at row i. It reports false for missing
// cells and for text columns.
func (c *Column) Float(i int) (float64, bool) {
	if c.kind != Number || !c.valid[i] {
		return math.NaN(), false
	}
	return c.nums[i], true
}

// Text returns the cell at row i rendered as a string.
func (c *Column) Text(i int) (string, bool) {
	if !c.valid[i] {
		return "", false
	}
	if c.kind == Number {
		return formatFloat(c.nums[i]), true
	}
	return c.strs[i], true
}

// Value returns the typed cell at row i, or nil when missing.
func (c *Column) Value(i int) any {
	if !c.valid[i] {
		return nil
	}
	if c.kind == Number {
		return c.nums[i]
	}
	return c.strs[i]
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, ok := range c.valid {
		if !ok {
			n++
		}
	}
	return n
}

// Floats returns the present numeric values in row order.
func (c *Column) Floats() []float64 {
	if c.kind != Number {
		return nil
	}
	out := make([]float64, 0, len(c.nums))
	for i, v := range c.nums {
		if c.valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// Take returns a new column holding the given rows, in the given order.
func (c *Column) Take(idx []int) *Column {
	valid := make([]bool, len(idx))
	for j, i := range idx {
		valid[j] = c.valid[i]
	}
	if c.kind == Number {
		nums := make([]float64, len(idx))
		for j, i := range idx {
			nums[j] = c.nums[i]
		}
		return &Column{name: c.name, kind: Number, nums: nums, valid: valid}
	}
	strs := make([]string, len(idx))
	for j, i := range idx {
		strs[j] = c.strs[i]
	}
	return &Column{name: c.name, kind: Text, strs: strs, valid: valid}
}

// FillNull returns a text column where missing cells hold fill. A column
// without missing cells is returned unchanged.
func (c *Column) FillNull(fill string) *Column {
	if c.NullCount() == 0 {
		return c
	}
	strs := make([]string, c.Len())
	for i := range strs {
		if s, ok := c.Text(i); ok {
			strs[i] = s
		} else {
			strs[i] = fill
		}
	}
	return NewText(c.name, strs, nil)
}

// WithValues returns a numeric column with the same name and mask.
func (c *Column) WithValues(vals []float64) *Column {
	valid := make([]bool, len(vals))
	copy(valid, c.valid)
	return &Column{name: c.name, kind: Number, nums: vals, valid: valid}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
