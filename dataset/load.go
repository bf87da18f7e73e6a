package dataset

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// ============================================================================
// LOAD — Two aligned sources → one Table
// ============================================================================
// Row i of the outcome source labels row i of the feature source. Alignment
// is positional, never key-based. Any failure, from a missing file to a
// misaligned pair, surfaces as a single UnavailableError.
// ============================================================================

// Source is where a tabular file comes from. The source package provides
// file and HTTP implementations.
type Source interface {
	// Name identifies the source in errors and selects the decoder by extension.
	Name() string
	// Open returns the raw bytes; the caller closes the reader.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Read opens and decodes one source.
func Read(ctx context.Context, src Source) (*Frame, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Decode(rc, src.Name(), FormatFor(src.Name()))
}

// Load reads both sources concurrently and joins them by position, attaching
// the outcome as a column named outcomeColumn.
func Load(ctx context.Context, features, outcome Source, outcomeColumn string) (*Table, error) {
	hint := fmt.Sprintf("Regenerate or re-fetch %s and %s; run the generator first to create these files", features.Name(), outcome.Name())

	var xf, yf *Frame
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := Read(gctx, features)
		if err != nil {
			return &UnavailableError{Source: features.Name(), Hint: hint, Err: err}
		}
		xf = f
		return nil
	})
	g.Go(func() error {
		f, err := Read(gctx, outcome)
		if err != nil {
			return &UnavailableError{Source: outcome.Name(), Hint: hint, Err: err}
		}
		yf = f
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t, err := Join(xf, yf, outcomeColumn)
	if err != nil {
		return nil, &UnavailableError{Hint: hint, Err: err}
	}
	return t, nil
}

// Join attaches the outcome column of y to the rows of x. A feature column
// sharing the outcome's name is replaced in place; otherwise the outcome is
// appended last. If y has no column named outcomeColumn but exactly one
// column, that column is used.
func Join(x, y *Frame, outcomeColumn string) (*Table, error) {
	if outcomeColumn == "" {
		return nil, fmt.Errorf("outcome column name is empty")
	}

	labels, ok := y.Column(outcomeColumn)
	if !ok {
		if len(y.Columns) != 1 {
			return nil, fmt.Errorf("%s has no column %q", y.Name, outcomeColumn)
		}
		labels, _ = y.Column(y.Columns[0])
	}

	if len(labels) != len(x.Rows) {
		return nil, fmt.Errorf("%s has %d rows but %s has %d", x.Name, len(x.Rows), y.Name, len(labels))
	}

	columns := append([]string(nil), x.Columns...)
	at := -1
	for i, c := range columns {
		if c == outcomeColumn {
			at = i
			break
		}
	}
	if at < 0 {
		columns = append(columns, outcomeColumn)
		at = len(columns) - 1
	}

	rows := make([][]Value, len(x.Rows))
	for i, src := range x.Rows {
		row := make([]Value, len(columns))
		copy(row, src)
		row[at] = labels[i]
		rows[i] = row
	}

	t, err := New(columns, rows, outcomeColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", y.Name, err)
	}
	t.schema.Name = x.Name
	t.schema.DiscoveredFrom = x.Name + " + " + y.Name
	t.schema.DiscoveredAt = x.Schema.DiscoveredAt
	return t, nil
}
