// Package sme provides a budgeted query oracle over a labeled dataset.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/sme/dataset"
//	    "github.com/spektr-org/sme/oracle"
//	    "github.com/spektr-org/sme/source"
//	)
//
//	o, err := oracle.Open(ctx,
//	    source.Resolve("x.csv"), source.Resolve("y.csv"), "will_churn",
//	    oracle.WithBudget(500),
//	)
//	p, err := o.Ask(oracle.Constraints{"subscription_plan": dataset.String("basic")})
//
// Ask returns the mean of the 0/1 outcome column over every row equal to all
// applicable constraints. Each oracle answers a fixed number of questions;
// AskByPosition reads a stored outcome for free.
//
// The dataset is loaded once and never mutated. The source package fetches
// files, dataset types and joins them, and api serves an oracle over HTTP.
package sme
