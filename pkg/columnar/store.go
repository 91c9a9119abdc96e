// Package columnar provides the in-memory, column-oriented table the feature
// engine transforms. Rows keep their identity for the lifetime of a table;
// columns can be added and dropped, and keep insertion order so outputs are
// deterministic.
package columnar

import (
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// Table is an ordered set of equal-length named columns
type Table struct {
	names   []string
	columns map[string]Column
	rows    int
}

// NewTable creates an empty table with a fixed row count
func NewTable(rows int) *Table {
	return &Table{
		columns: make(map[string]Column),
		rows:    rows,
	}
}

// Rows returns the row count
func (t *Table) Rows() int { return t.rows }

// Len returns the column count
func (t *Table) Len() int { return len(t.names) }

// Names returns the column names in insertion order
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether a column exists
func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the named column
func (t *Table) Column(name string) (Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Strings returns the named column as a StringColumn
func (t *Table) Strings(name string) (*StringColumn, error) {
	c, ok := t.columns[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "column not found").WithDetail("column", name)
	}
	sc, ok := c.(*StringColumn)
	if !ok {
		return nil, errors.New(errors.ErrorTypeSchema, "column is not a string column").
			WithDetail("column", name).
			WithDetail("type", c.Type().String())
	}
	return sc, nil
}

// Floats returns the named column values as float64. String columns are parsed;
// float columns are returned as their backing slice.
func (t *Table) Floats(name string) ([]float64, error) {
	c, ok := t.columns[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "column not found").WithDetail("column", name)
	}
	switch col := c.(type) {
	case *FloatColumn:
		return col.Values(), nil
	case *StringColumn:
		values, err := col.Floats()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse numeric column").
				WithDetail("column", name)
		}
		return values, nil
	default:
		return nil, errors.New(errors.ErrorTypeSchema, "unsupported column type").WithDetail("column", name)
	}
}

// AddColumn appends a new column. Duplicate names and length mismatches are
// rejected.
func (t *Table) AddColumn(name string, col Column) error {
	if _, exists := t.columns[name]; exists {
		return errors.New(errors.ErrorTypeConflict, "column already exists").WithDetail("column", name)
	}
	if col.Len() != t.rows {
		return errors.New(errors.ErrorTypeSchema, "column length does not match table").
			WithDetail("column", name).
			WithDetail("rows", t.rows).
			WithDetail("length", col.Len())
	}
	t.names = append(t.names, name)
	t.columns[name] = col
	return nil
}

// AddFloats appends a float column backed by values
func (t *Table) AddFloats(name string, values []float64) error {
	return t.AddColumn(name, NewFloatColumn(values))
}

// Drop removes a column
func (t *Table) Drop(name string) error {
	if _, ok := t.columns[name]; !ok {
		return errors.New(errors.ErrorTypeNotFound, "column not found").WithDetail("column", name)
	}
	delete(t.columns, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
	return nil
}

// Concat stacks b under a. Both tables must have the same column names in
// the same order and only string columns, as produced by the CSV reader.
func Concat(a, b *Table) (*Table, error) {
	if len(a.names) != len(b.names) {
		return nil, errors.New(errors.ErrorTypeSchema, "tables have different column counts").
			WithDetail("first", len(a.names)).
			WithDetail("second", len(b.names))
	}
	for i := range a.names {
		if a.names[i] != b.names[i] {
			return nil, errors.New(errors.ErrorTypeSchema, "tables have different columns").
				WithDetail("position", i).
				WithDetail("first", a.names[i]).
				WithDetail("second", b.names[i])
		}
	}

	out := NewTable(a.rows + b.rows)
	for _, name := range a.names {
		first, err := a.Strings(name)
		if err != nil {
			return nil, err
		}
		second, err := b.Strings(name)
		if err != nil {
			return nil, err
		}
		col := NewStringColumn(out.rows)
		col.appendFrom(first)
		col.appendFrom(second)
		if err := out.AddColumn(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}
