package oracle

import "errors"

var (
	// ErrBudgetExhausted is returned by every Ask beyond the oracle's budget.
	ErrBudgetExhausted = errors.New("sorry, you have asked enough")
	// ErrEmptyQuery is returned when no constraint names a known column with a set value.
	ErrEmptyQuery = errors.New("no valid query parameters provided")
	// ErrNoMatch is the oracle's "I don't know": the predicate selected no rows.
	ErrNoMatch = errors.New("I don't know (no matching records found)")
	// ErrInvalidConstraint is returned by the constraint builders.
	ErrInvalidConstraint = errors.New("invalid constraint")
)
