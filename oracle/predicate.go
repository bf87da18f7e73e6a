package oracle

import (
	"sort"

	"github.com/spektr-org/sme/dataset"
)

// ============================================================================
// PREDICATE — Constraint set → conjunctive equality test
// ============================================================================
// Per entry:
//   - Unset value         → dropped (caller does not know / care)
//   - column not in store → dropped (extra descriptive field)
//   - otherwise           → row[column] must Equal value
// Surviving terms are ANDed. Evaluated directly against each row: no
// expression text is ever built or parsed.
// ============================================================================

// Term is one equality test of a predicate.
type Term struct {
	Column string        `json:"column"`
	Value  dataset.Value `json:"value"`
}

func (t Term) String() string {
	return t.Column + " == " + t.Value.String()
}

// Predicate is a conjunction of equality terms.
type Predicate struct {
	terms []Term
}

// BuildPredicate keeps the applicable constraints against store, sorted by
// column so logs and answers are stable across calls.
func BuildPredicate(store *dataset.Table, c Constraints) Predicate {
	terms := make([]Term, 0, len(c))
	for column, value := range c {
		if value.IsAbsent() {
			continue
		}
		if !store.HasColumn(column) {
			continue
		}
		terms = append(terms, Term{Column: column, Value: value})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Column < terms[j].Column })
	return Predicate{terms: terms}
}

// Empty reports whether no term survived.
func (p Predicate) Empty() bool { return len(p.terms) == 0 }

// Terms returns a copy of the effective terms.
func (p Predicate) Terms() []Term { return append([]Term(nil), p.terms...) }

// Match implements dataset.Predicate. An empty predicate matches nothing;
// the oracle refuses to answer over the unfiltered table.
func (p Predicate) Match(r dataset.Row) bool {
	if len(p.terms) == 0 {
		return false
	}
	for _, t := range p.terms {
		v, ok := r.Get(t.Column)
		if !ok || !v.Equal(t.Value) {
			return false
		}
	}
	return true
}

func (p Predicate) strings() []string {
	out := make([]string, len(p.terms))
	for i, t := range p.terms {
		out[i] = t.String()
	}
	return out
}
