package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/sme/schema"
)

// ============================================================================
// FRAME DECODERS — Delimited text / XLSX → typed cells
// ============================================================================
// The consumer fetches the bytes from wherever they live (file, URL).
// These decoders turn one header + rows grid into a Frame whose columns are
// typed as a whole by schema.Infer.
// ============================================================================

// Frame is one decoded source: a header and typed rows.
type Frame struct {
	Name    string
	Columns []string
	Rows    [][]Value
	Schema  *schema.Config
}

// Column returns one column's values.
func (f *Frame) Column(name string) ([]Value, bool) {
	for c, h := range f.Columns {
		if h != name {
			continue
		}
		out := make([]Value, len(f.Rows))
		for i, row := range f.Rows {
			out[i] = row[c]
		}
		return out, true
	}
	return nil, false
}

// Format selects a decoder.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
)

// FormatFor picks the decoder from a source name's extension; anything that
// is not .tsv or .xlsx is read as comma-separated text.
func FormatFor(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".tsv", ".tab":
		return FormatTSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Decode reads r in the given format.
func Decode(r io.Reader, name string, format Format) (*Frame, error) {
	switch format {
	case FormatXLSX:
		return ReadXLSX(r, name, "")
	case FormatTSV:
		return ReadCSV(r, name, '\t')
	default:
		return ReadCSV(r, name, ',')
	}
}

// ReadCSV decodes delimited text with a header row.
func ReadCSV(r io.Reader, name string, comma rune) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma

	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return decodeGrid(name, grid)
}

// ReadXLSX decodes one sheet of a workbook; an empty sheet name selects the
// first sheet.
func ReadXLSX(r io.Reader, name, sheet string) (*Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", name)
		}
		sheet = sheets[0]
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, name, err)
	}

	// Workbooks drop trailing empty cells; pad back to the header width.
	if len(grid) > 0 {
		width := len(grid[0])
		for i := 1; i < len(grid); i++ {
			for len(grid[i]) < width {
				grid[i] = append(grid[i], "")
			}
		}
	}
	return decodeGrid(name, grid)
}

var errNoHeader = errors.New("missing header row")

func decodeGrid(name string, grid [][]string) (*Frame, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%s: %w", name, errNoHeader)
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = h
	}

	body := grid[1:]
	for i, row := range body {
		if len(row) != len(headers) {
			return nil, fmt.Errorf("%s row %d has %d fields, want %d", name, i+1, len(row), len(headers))
		}
	}

	sch, err := schema.Infer(headers, body, schema.DiscoverOptions{Name: name, Source: name})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	rows := make([][]Value, len(body))
	for i, raw := range body {
		row := make([]Value, len(headers))
		for c, cell := range raw {
			row[c] = typeCell(sch.Columns[c].Kind, cell)
		}
		rows[i] = row
	}

	return &Frame{Name: name, Columns: headers, Rows: rows, Schema: sch}, nil
}

// typeCell converts a raw cell to the kind inferred for its column.
func typeCell(kind schema.Kind, raw string) Value {
	if schema.IsNull(raw) {
		return Absent()
	}
	trimmed := strings.TrimSpace(raw)
	switch kind {
	case schema.KindInt:
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return Int(i)
		}
	case schema.KindFloat:
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Float(f)
		}
	}
	return String(raw)
}
