package dataset

// ============================================================================
// VIEWS — Zero-copy row selection
// ============================================================================
// A View holds indices into its table, never row data. Selecting is a single
// pass over the table; the table itself is never touched.
// ============================================================================

// Row is a read-only handle on one table row, handed to predicates.
type Row struct {
	t *Table
	i int
}

// Index returns the row position in its table.
func (r Row) Index() int { return r.i }

// Get returns the cell of a column; ok is false for undeclared columns.
func (r Row) Get(column string) (v Value, ok bool) {
	c, ok := r.t.index[column]
	if !ok {
		return Value{}, false
	}
	return r.t.rows[r.i][c], true
}

// Predicate decides whether a row belongs to a selection.
type Predicate interface {
	Match(Row) bool
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(Row) bool

func (f PredicateFunc) Match(r Row) bool { return f(r) }

// Select returns the ordered rows satisfying p. The result may be empty.
func (t *Table) Select(p Predicate) *View {
	indices := make([]int, 0, len(t.rows))
	for i := range t.rows {
		if p.Match(Row{t: t, i: i}) {
			indices = append(indices, i)
		}
	}
	return &View{table: t, indices: indices}
}

// All returns a view over every row.
func (t *Table) All() *View {
	indices := make([]int, len(t.rows))
	for i := range indices {
		indices[i] = i
	}
	return &View{table: t, indices: indices}
}

// View is an ordered subset of a table's rows.
type View struct {
	table   *Table
	indices []int
}

func (v *View) Len() int { return len(v.indices) }

// Row returns the i-th row of the view.
func (v *View) Row(i int) Row { return Row{t: v.table, i: v.indices[i]} }

// Indices returns the table positions of the selected rows.
func (v *View) Indices() []int { return append([]int(nil), v.indices...) }

// Value returns the cell of a column in the i-th selected row.
func (v *View) Value(i int, column string) (Value, error) {
	if i < 0 || i >= len(v.indices) {
		return Value{}, indexError(i, len(v.indices))
	}
	return v.table.ValueAt(v.indices[i], column)
}

// Outcomes returns the outcome of every selected row, in view order.
func (v *View) Outcomes() []float64 {
	out := make([]float64, len(v.indices))
	for n, i := range v.indices {
		out[n], _ = v.table.rows[i][v.table.outcomeCol].Float64()
	}
	return out
}
