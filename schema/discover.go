package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// AUTO-DISCOVERY — Column kind inference
// ============================================================================
// Inspects the raw cells of a decoded source and classifies every column.
//
// Classification pipeline per column:
//   1. Drop null tokens (counted, never typed)
//   2. All remaining cells integral → int
//   3. All remaining cells numeric  → float
//   4. Anything else                → string
//   5. Collect samples + cardinality for describe output
//
// A column is typed as a whole: one stray string keeps every cell a string,
// so numeric constraints never silently match half a column.
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	Name    string // Dataset name (otherwise "dataset")
	Source  string // Where the cells came from, recorded in DiscoveredFrom
	Samples int    // Max sample values per column. Default: 10
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		Name:    "dataset",
		Samples: 10,
	}
}

// Infer classifies every column of a header + rows grid.
// Rows must already be rectangular; the decoder rejects ragged input.
func Infer(headers []string, rows [][]string, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
		if opt.Samples <= 0 {
			opt.Samples = 10
		}
		if opt.Name == "" {
			opt.Name = "dataset"
		}
	}

	if len(headers) == 0 {
		return nil, fmt.Errorf("source has no columns")
	}

	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
	}

	config := &Config{
		Name:           opt.Name,
		Rows:           len(rows),
		Columns:        make([]Column, len(headers)),
		DiscoveredFrom: opt.Source,
		DiscoveredAt:   time.Now().UTC().Format(time.RFC3339),
	}

	for i, h := range headers {
		config.Columns[i] = analyzeColumn(h, i, rows, opt.Samples)
	}

	return config, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

func analyzeColumn(header string, index int, rows [][]string, maxSamples int) Column {
	values := make([]string, 0, len(rows))
	nulls := 0

	for _, row := range rows {
		if index >= len(row) || IsNull(row[index]) {
			nulls++
			continue
		}
		values = append(values, strings.TrimSpace(row[index]))
	}

	return Summarize(header, detectKind(values), values, nulls, maxSamples)
}

// Summarize builds the description of one column from its non-null cells
// rendered as text. Callers that already know the kind (typed in-memory
// tables) use it directly instead of Infer.
func Summarize(name string, kind Kind, present []string, nulls, maxSamples int) Column {
	if maxSamples <= 0 {
		maxSamples = 10
	}

	uniqueSet := make(map[string]bool, len(present))
	for _, v := range present {
		uniqueSet[v] = true
	}

	col := Column{
		Name:         name,
		Kind:         kind,
		Count:        len(present) + nulls,
		Nulls:        nulls,
		Unique:       len(uniqueSet),
		SampleValues: collectSamples(uniqueSet, maxSamples),
	}

	switch {
	case col.Unique <= 10:
		col.CardinalityHint = "low"
	case col.Unique <= 100:
		col.CardinalityHint = "medium"
	default:
		col.CardinalityHint = "high"
	}

	return col
}

// ============================================================================
// KIND DETECTION
// ============================================================================

// detectKind requires every non-null value to agree.
func detectKind(values []string) Kind {
	if len(values) == 0 {
		return KindEmpty
	}

	kind := KindInt
	for _, v := range values {
		if kind == KindInt && IsInt(v) {
			continue
		}
		if IsFloat(v) {
			kind = KindFloat
			continue
		}
		return KindString
	}
	return kind
}

// IsInt reports whether s is a base-10 integer that fits in int64.
func IsInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// IsFloat reports whether s parses as a 64-bit float.
func IsFloat(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// collectSamples returns up to n values in stable (sorted) order.
func collectSamples(set map[string]bool, n int) []string {
	if len(set) == 0 {
		return nil
	}
	all := make([]string, 0, len(set))
	for v := range set {
		all = append(all, v)
	}
	sort.Strings(all)
	if len(all) > n {
		all = all[:n]
	}
	return all
}
