package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spektr-org/sme/dataset"
)

// ============================================================================
// CONSTRAINTS — Caller-supplied partial feature assignment
// ============================================================================
// Built from Go maps, JSON objects, or CLI key=value pairs. Integral numbers
// stay integers and everything else numeric becomes a float, so a caller's
// 13 and 13.0 both match a stored 13.
// ============================================================================

// Constraints maps a feature name to the exact value rows must hold.
type Constraints map[string]dataset.Value

// Unset is the "no constraint" marker: the entry imposes no restriction.
var Unset = dataset.Absent()

// FromMap converts plain Go scalars. nil means Unset and booleans become 1/0.
func FromMap(m map[string]any) (Constraints, error) {
	c := make(Constraints, len(m))
	for k, raw := range m {
		v, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConstraint, k, err)
		}
		c[k] = v
	}
	return c, nil
}

func scalar(raw any) (dataset.Value, error) {
	switch x := raw.(type) {
	case nil:
		return Unset, nil
	case dataset.Value:
		return x, nil
	case string:
		return dataset.String(x), nil
	case bool:
		if x {
			return dataset.Int(1), nil
		}
		return dataset.Int(0), nil
	case int:
		return dataset.Int(int64(x)), nil
	case int8:
		return dataset.Int(int64(x)), nil
	case int16:
		return dataset.Int(int64(x)), nil
	case int32:
		return dataset.Int(int64(x)), nil
	case int64:
		return dataset.Int(x), nil
	case uint:
		return unsigned(uint64(x))
	case uint64:
		return unsigned(x)
	case uint8:
		return dataset.Int(int64(x)), nil
	case uint16:
		return dataset.Int(int64(x)), nil
	case uint32:
		return dataset.Int(int64(x)), nil
	case uintptr:
		return unsigned(uint64(x))
	case float32:
		return finite(float64(x))
	case float64:
		return finite(x)
	case json.Number:
		return number(x.String())
	default:
		return Unset, fmt.Errorf("unsupported type %T", raw)
	}
}

func finite(f float64) (dataset.Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Unset, fmt.Errorf("%v is not a finite number", f)
	}
	return dataset.Float(f), nil
}

func unsigned(u uint64) (dataset.Value, error) {
	if u > math.MaxInt64 {
		return Unset, fmt.Errorf("%d overflows int64", u)
	}
	return dataset.Int(int64(u)), nil
}

// number parses an integer or a finite float. Inf and NaN spellings are
// rejected so CLI literals such as plan=inf stay strings.
func number(s string) (dataset.Value, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return dataset.Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Unset, fmt.Errorf("bad number %q", s)
	}
	return dataset.Float(f), nil
}

// ParseJSON decodes a JSON object of constraints. null means Unset.
func ParseJSON(data []byte) (Constraints, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse constraints: %v (input: %.200s)", ErrInvalidConstraint, err, data)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: constraints must be a JSON object", ErrInvalidConstraint)
	}
	if err := dec.Decode(&json.RawMessage{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after constraint object (input: %.200s)", ErrInvalidConstraint, data)
	}
	return FromMap(m)
}

// ParseAssignments reads CLI pairs such as plan=basic, price=9.99, notes=
// (empty → Unset) or code="13" (quoted → string).
func ParseAssignments(args []string) (Constraints, error) {
	c := make(Constraints, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalidConstraint, arg)
		}
		c[key] = parseLiteral(raw)
	}
	return c, nil
}

func parseLiteral(raw string) dataset.Value {
	if raw == "" {
		return Unset
	}
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
		return dataset.String(raw[1 : len(raw)-1])
	}
	if v, err := number(raw); err == nil {
		return v
	}
	return dataset.String(raw)
}
