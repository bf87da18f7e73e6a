package oracle

import "log/slog"

// ============================================================================
// ORACLE OPTIONS — Functional options for New() / Open()
// ============================================================================

// DefaultBudget is the number of Ask calls an oracle answers.
const DefaultBudget = 500

// Option configures oracle behavior via functional options pattern.
type Option func(*config)

type config struct {
	Budget int64
	Logger *slog.Logger
}

// WithBudget overrides the number of Ask calls the oracle answers.
// Non-positive values are rejected by New.
func WithBudget(n int64) Option {
	return func(c *config) {
		c.Budget = n
	}
}

// WithLogger sets the logger that receives per-query diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		Budget: DefaultBudget,
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
