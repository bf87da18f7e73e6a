package oracle

import (
	"gonum.org/v1/gonum/stat"

	"github.com/spektr-org/sme/dataset"
)

// summary is the aggregate of the outcome column over a selection.
type summary struct {
	mean   float64
	stddev float64
	count  int
}

// aggregate averages the outcome over a non-empty view. Outcomes are 0/1
// labels or probabilities, so the mean stays in [0, 1] without clamping.
func aggregate(view *dataset.View) summary {
	outcomes := view.Outcomes()
	return summary{
		mean:   stat.Mean(outcomes, nil),
		stddev: stat.PopStdDev(outcomes, nil),
		count:  len(outcomes),
	}
}
