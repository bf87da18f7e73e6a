package dataset

import (
	"fmt"

	"github.com/spektr-org/sme/schema"
)

// ============================================================================
// TABLE — Immutable feature table joined with its outcome column
// ============================================================================
// Built once, never mutated. Every accessor returns copies or scalars so the
// table can be shared by any number of oracles and goroutines.
// ============================================================================

// Table is the dataset store: named columns, typed rows, and one designated
// numeric outcome column.
type Table struct {
	columns    []string
	index      map[string]int
	rows       [][]Value
	outcome    string
	outcomeCol int
	schema     *schema.Config
}

// New builds a table from in-memory rows. Every row must carry one value per
// column; the outcome column must exist and hold a number in [0, 1] on every
// row. Rows are copied, so later changes to the caller's slices are not seen.
func New(columns []string, rows [][]Value, outcome string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}

	oc, ok := index[outcome]
	if !ok {
		return nil, fmt.Errorf("outcome column %q not among columns", outcome)
	}

	owned := make([][]Value, len(rows))
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), len(columns))
		}
		if err := checkOutcome(row[oc]); err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		owned[r] = append([]Value(nil), row...)
	}

	t := &Table{
		columns:    append([]string(nil), columns...),
		index:      index,
		rows:       owned,
		outcome:    outcome,
		outcomeCol: oc,
	}
	t.schema = t.describe()
	return t, nil
}

func checkOutcome(v Value) error {
	f, ok := v.Float64()
	if !ok {
		return fmt.Errorf("outcome %s is not numeric", v)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("outcome %s outside [0, 1]", v)
	}
	return nil
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// HasColumn reports whether name is a declared column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// OutcomeColumn returns the name of the outcome column.
func (t *Table) OutcomeColumn() string { return t.outcome }

// ValueAt returns the cell at (row, column).
func (t *Table) ValueAt(row int, column string) (Value, error) {
	if row < 0 || row >= len(t.rows) {
		return Value{}, indexError(row, len(t.rows))
	}
	c, ok := t.index[column]
	if !ok {
		return Value{}, columnError(column)
	}
	return t.rows[row][c], nil
}

// Outcome returns the stored outcome of a row.
func (t *Table) Outcome(row int) (Value, error) {
	return t.ValueAt(row, t.outcome)
}

// Column returns a copy of every value of one column.
func (t *Table) Column(name string) ([]Value, error) {
	c, ok := t.index[name]
	if !ok {
		return nil, columnError(name)
	}
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[c]
	}
	return out, nil
}

// Schema describes every column, outcome included.
func (t *Table) Schema() *schema.Config {
	cp := *t.schema
	cp.Columns = append([]schema.Column(nil), t.schema.Columns...)
	return &cp
}

func (t *Table) describe() *schema.Config {
	config := &schema.Config{
		Name:    "dataset",
		Rows:    len(t.rows),
		Outcome: t.outcome,
		Columns: make([]schema.Column, len(t.columns)),
	}
	for c, name := range t.columns {
		present := make([]string, 0, len(t.rows))
		kind := schema.KindEmpty
		for _, row := range t.rows {
			v := row[c]
			if v.IsAbsent() {
				continue
			}
			present = append(present, v.text())
			kind = widen(kind, v.Kind())
		}
		col := schema.Summarize(name, kind, present, len(t.rows)-len(present), 10)
		col.Outcome = c == t.outcomeCol
		config.Columns[c] = col
	}
	return config
}

// widen merges cell kinds the way discovery types a column.
func widen(a, b schema.Kind) schema.Kind {
	switch {
	case a == schema.KindEmpty:
		return b
	case a == b:
		return a
	case a.Numeric() && b.Numeric():
		return schema.KindFloat
	default:
		return schema.KindString
	}
}
