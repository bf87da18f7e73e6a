package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/spektr-org/sme/dataset"
)

// ============================================================================
// ORACLE — Budgeted point queries over a labeled table
// ============================================================================
// Ask pipeline:
//   1. Charge the budget (atomic add, then compare)
//   2. Build the conjunctive equality predicate from the constraints
//   3. Select matching rows → View (zero-copy)
//   4. Average the outcome column over the view
//
// The table is never mutated, so identical constraint sets give identical
// answers until the budget runs out.
// ============================================================================

// Oracle answers outcome-probability questions about a fixed dataset.
// Each Oracle owns its budget; oracles sharing a table do not share calls.
type Oracle struct {
	id     uuid.UUID
	store  *dataset.Table
	budget int64
	calls  atomic.Int64
	log    *slog.Logger
}

// Answer is the full result of one Ask.
type Answer struct {
	Probability float64 `json:"probability"`
	Matched     int     `json:"matched"`
	StdDev      float64 `json:"stddev"`
	Call        int64   `json:"call"`
	Terms       []Term  `json:"terms"`
}

// New wraps an already loaded table.
func New(store *dataset.Table, opts ...Option) (*Oracle, error) {
	if store == nil {
		return nil, fmt.Errorf("oracle needs a dataset")
	}
	cfg := applyOptions(opts)
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("budget must be positive, got %d", cfg.Budget)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &Oracle{
		id:     id,
		store:  store,
		budget: cfg.Budget,
		log:    cfg.Logger.With("oracle_id", id.String()),
	}, nil
}

// Open loads the two aligned sources and wraps the result. A load failure
// is returned as is (errors.Is(err, dataset.ErrDataUnavailable)); no oracle
// is built from a partial dataset.
func Open(ctx context.Context, features, outcome dataset.Source, outcomeColumn string, opts ...Option) (*Oracle, error) {
	store, err := dataset.Load(ctx, features, outcome, outcomeColumn)
	if err != nil {
		return nil, err
	}
	return New(store, opts...)
}

// Ask returns the mean outcome of the rows matching every applicable
// constraint. Each call, failing or not, is charged to the budget.
func (o *Oracle) Ask(c Constraints) (float64, error) {
	a, err := o.AskDetailed(c)
	if err != nil {
		return 0, err
	}
	return a.Probability, nil
}

// AskDetailed is Ask with the match count, spread, and effective terms.
// It is charged exactly like Ask.
func (o *Oracle) AskDetailed(c Constraints) (Answer, error) {
	call := o.calls.Add(1)
	if call > o.budget {
		o.log.Warn("query refused", "call", call, "budget", o.budget)
		return Answer{}, fmt.Errorf("%w (%d query limit)", ErrBudgetExhausted, o.budget)
	}

	pred := BuildPredicate(o.store, c)
	o.log.Info("query parameters", "call", call, "terms", pred.strings(), "dropped", len(c)-len(pred.terms))

	if pred.Empty() {
		return Answer{}, ErrEmptyQuery
	}

	view := o.store.Select(pred)
	if view.Len() == 0 {
		return Answer{}, ErrNoMatch
	}

	s := aggregate(view)
	o.log.Debug("query answered", "call", call, "matched", s.count, "probability", s.mean)

	return Answer{
		Probability: s.mean,
		Matched:     s.count,
		StdDev:      s.stddev,
		Call:        call,
		Terms:       pred.Terms(),
	}, nil
}

// AskByPosition returns the stored outcome of row index. It is free: no
// budget charge, no aggregation.
func (o *Oracle) AskByPosition(index int) (dataset.Value, error) {
	return o.store.Outcome(index)
}

// Calls returns how many Ask calls have been made, refused ones included.
func (o *Oracle) Calls() int64 { return o.calls.Load() }

// Budget returns the number of Ask calls the oracle answers.
func (o *Oracle) Budget() int64 { return o.budget }

// Remaining returns how many Ask calls are left; never negative.
func (o *Oracle) Remaining() int64 {
	if left := o.budget - o.calls.Load(); left > 0 {
		return left
	}
	return 0
}

// ID identifies the oracle in logs.
func (o *Oracle) ID() uuid.UUID { return o.id }

// Store returns the underlying read-only table.
func (o *Oracle) Store() *dataset.Table { return o.store }
