// Package table provides the immutable column-oriented dataset carrier used by
// every stage of the VPC pipeline. Stages never mutate a caller-owned table;
// each transformation returns a new one sharing no writable state.
package table

import (
	"fmt"
	"strconv"

	"vpcstats/domain/core"
)

// Column holds one named column of a table. Exactly one of Numeric or Labels
// is set: Numeric for continuous or coded values, Labels for categoricals.
type Column struct {
	Name    string
	Numeric []float64
	Labels  []string
}

// IsNumeric reports whether the column carries float64 values.
func (c Column) IsNumeric() bool {
	return c.Numeric != nil
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	if c.IsNumeric() {
		return len(c.Numeric)
	}
	return len(c.Labels)
}

// Table is an immutable, rectangular set of named columns.
type Table struct {
	names []string
	cols  map[string]Column
	rows  int
}

// New builds a table from the given columns. All columns must share the same
// length and carry distinct names.
func New(cols ...Column) (*Table, error) {
	t := &Table{cols: make(map[string]Column, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := t.cols[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.names = append(t.names, c.Name)
		t.cols[c.Name] = c
	}
	return t, nil
}

// MustNew is New for fixtures and tests; it panics on malformed input.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the named column. The returned slices are shared with the
// table and must be treated as read-only.
func (t *Table) Column(name string) (Column, error) {
	c, ok := t.cols[name]
	if !ok {
		return Column{}, core.NewColumnNotFoundError("", name)
	}
	return c, nil
}

// Numeric returns the named column as float64 values. Categorical columns
// cannot be read numerically.
func (t *Table) Numeric(name string) ([]float64, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if !c.IsNumeric() {
		return nil, fmt.Errorf("column %q is categorical, not numeric", name)
	}
	return c.Numeric, nil
}

// Strings returns the string form of the named column: labels as-is, numeric
// values formatted without trailing zeros. This is the form stratum labels
// are built from.
func (t *Table) Strings(name string) ([]string, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if !c.IsNumeric() {
		return c.Labels, nil
	}
	out := make([]string, len(c.Numeric))
	for i, v := range c.Numeric {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out, nil
}

// WithNumeric returns a new table where the named column is replaced by (or,
// if absent, appended as) the given numeric values.
func (t *Table) WithNumeric(name string, values []float64) (*Table, error) {
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(values), t.rows)
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return t.with(Column{Name: name, Numeric: vals}), nil
}

// WithLabels returns a new table where the named column is replaced by (or
// appended as) the given categorical values.
func (t *Table) WithLabels(name string, values []string) (*Table, error) {
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(values), t.rows)
	}
	vals := make([]string, len(values))
	copy(vals, values)
	return t.with(Column{Name: name, Labels: vals}), nil
}

func (t *Table) with(c Column) *Table {
	out := &Table{
		names: make([]string, 0, len(t.names)+1),
		cols:  make(map[string]Column, len(t.cols)+1),
		rows:  t.rows,
	}
	replaced := false
	for _, name := range t.names {
		if name == c.Name {
			out.names = append(out.names, name)
			out.cols[name] = c
			replaced = true
			continue
		}
		out.names = append(out.names, name)
		out.cols[name] = t.cols[name]
	}
	if !replaced {
		out.names = append(out.names, c.Name)
		out.cols[c.Name] = c
	}
	return out
}

// Select returns a new table containing the given rows, in the given order.
// Row indices outside the table are rejected.
func (t *Table) Select(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, fmt.Errorf("row %d out of range (table has %d rows)", r, t.rows)
		}
	}
	out := &Table{
		names: make([]string, len(t.names)),
		cols:  make(map[string]Column, len(t.cols)),
		rows:  len(rows),
	}
	copy(out.names, t.names)
	for name, c := range t.cols {
		if c.IsNumeric() {
			vals := make([]float64, len(rows))
			for i, r := range rows {
				vals[i] = c.Numeric[r]
			}
			out.cols[name] = Column{Name: name, Numeric: vals}
		} else {
			vals := make([]string, len(rows))
			for i, r := range rows {
				vals[i] = c.Labels[r]
			}
			out.cols[name] = Column{Name: name, Labels: vals}
		}
	}
	return out, nil
}
