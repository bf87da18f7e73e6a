package schema

import "strings"

// ============================================================================
// SCHEMA — Describes the shape of a labeled dataset
// ============================================================================
// Inferred once while decoding a delimited source. The dataset package uses
// column kinds to type every cell; the CLI and HTTP surface use the rest of
// the metadata to tell callers which features they can constrain on.
// ============================================================================

// Kind is the value kind shared by every non-null cell of a column.
type Kind int

const (
	// KindEmpty marks a column whose cells are all null tokens.
	KindEmpty Kind = iota
	KindString
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "empty"
	}
}

// MarshalText lets Kind render as its name in JSON documents.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Numeric reports whether cells of this kind compare as numbers.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Config describes the complete shape of a dataset.
type Config struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Outcome string   `json:"outcome,omitempty"`
	Columns []Column `json:"columns"`

	DiscoveredFrom string `json:"discoveredFrom,omitempty"`
	DiscoveredAt   string `json:"discoveredAt,omitempty"`
}

// Column describes one field of the dataset.
type Column struct {
	Name            string   `json:"name"`
	Kind            Kind     `json:"kind"`
	Count           int      `json:"count"`
	Nulls           int      `json:"nulls"`
	Unique          int      `json:"unique"`
	SampleValues    []string `json:"sampleValues,omitempty"`
	CardinalityHint string   `json:"cardinalityHint,omitempty"` // "low", "medium", "high"
	Outcome         bool     `json:"outcome,omitempty"`
}

// Lookup returns the column with the given name.
func (c Config) Lookup(name string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// ColumnNames returns all column names in declaration order.
func (c Config) ColumnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// nullTokens mirrors the tokens common CSV tooling reads back as missing.
var nullTokens = map[string]bool{
	"":        true,
	"NA":      true,
	"N/A":     true,
	"n/a":     true,
	"#N/A":    true,
	"NaN":     true,
	"nan":     true,
	"-NaN":    true,
	"-nan":    true,
	"null":    true,
	"NULL":    true,
	"None":    true,
	"<NA>":    true,
	"#NA":     true,
	"1.#IND":  true,
	"1.#QNAN": true,
}

// IsNull reports whether a raw cell stands for a missing value.
func IsNull(raw string) bool {
	return nullTokens[strings.TrimSpace(raw)]
}
