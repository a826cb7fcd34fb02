package dataset

import (
	"fmt"
	"strconv"

	"aigovern/domain/core"
)

// Table is the in-memory tabular form consumed by test adapters. Numeric
// feature columns and categorical columns (e.g. sensitive attributes) are
// stored separately; all columns share the same row count.
type Table struct {
	name        string
	order       []string
	numeric     map[string][]float64
	categorical map[string][]string
	rows        int
}

// NewTable creates an empty table
func NewTable(name string) *Table {
	return &Table{
		name:        name,
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
	}
}

// Name returns the table name
func (t *Table) Name() string { return t.name }

// Rows returns the row count
func (t *Table) Rows() int { return t.rows }

// Columns returns column names in insertion order
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// HasColumn reports whether a column exists (numeric or categorical)
func (t *Table) HasColumn(name string) bool {
	_, n := t.numeric[name]
	_, c := t.categorical[name]
	return n || c
}

// AddNumeric adds a numeric column. The first column fixes the row count.
func (t *Table) AddNumeric(name string, values []float64) error {
	if err := t.checkAdd(name, len(values)); err != nil {
		return err
	}
	col := make([]float64, len(values))
	copy(col, values)
	t.numeric[name] = col
	t.order = append(t.order, name)
	t.rows = len(values)
	return nil
}

// AddCategorical adds a categorical (string) column
func (t *Table) AddCategorical(name string, values []string) error {
	if err := t.checkAdd(name, len(values)); err != nil {
		return err
	}
	col := make([]string, len(values))
	copy(col, values)
	t.categorical[name] = col
	t.order = append(t.order, name)
	t.rows = len(values)
	return nil
}

func (t *Table) checkAdd(name string, n int) error {
	if t.HasColumn(name) {
		return fmt.Errorf("%w: duplicate column %q", core.ErrInvalidConfig, name)
	}
	if len(t.order) > 0 && n != t.rows {
		return fmt.Errorf("%w: column %q has %d rows, table has %d",
			core.ErrInvalidConfig, name, n, t.rows)
	}
	return nil
}

// Numeric returns a copy of a numeric column
func (t *Table) Numeric(name string) ([]float64, error) {
	col, ok := t.numeric[name]
	if !ok {
		if _, isCat := t.categorical[name]; isCat {
			return nil, fmt.Errorf("column %q is categorical, not numeric", name)
		}
		return nil, core.NewMissingColumnError(name)
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, nil
}

// Categorical returns a copy of a column as strings. Numeric columns are
// formatted, so a numeric-coded group attribute still works.
func (t *Table) Categorical(name string) ([]string, error) {
	if col, ok := t.categorical[name]; ok {
		out := make([]string, len(col))
		copy(out, col)
		return out, nil
	}
	if col, ok := t.numeric[name]; ok {
		out := make([]string, len(col))
		for i, v := range col {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return out, nil
	}
	return nil, core.NewMissingColumnError(name)
}

// Features builds a row-major feature matrix from the named numeric columns
func (t *Table) Features(columns []string) ([][]float64, error) {
	cols := make([][]float64, len(columns))
	for i, name := range columns {
		col, ok := t.numeric[name]
		if !ok {
			return nil, core.NewMissingColumnError(name)
		}
		cols[i] = col
	}
	matrix := make([][]float64, t.rows)
	for r := 0; r < t.rows; r++ {
		row := make([]float64, len(columns))
		for c := range columns {
			row[c] = cols[c][r]
		}
		matrix[r] = row
	}
	return matrix, nil
}

// NumericColumns returns the names of all numeric columns in order
func (t *Table) NumericColumns() []string {
	var out []string
	for _, name := range t.order {
		if _, ok := t.numeric[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
