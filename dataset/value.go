package dataset

import (
	"encoding/json"
	"strconv"

	"github.com/spektr-org/sme/schema"
)

// Value is one typed cell: a string, an integer, a float, or absent.
// The zero Value is absent.
type Value struct {
	kind schema.Kind
	s    string
	i    int64
	f    float64
}

// Absent returns the unknown-value sentinel.
func Absent() Value { return Value{} }

// String returns a string cell.
func String(s string) Value { return Value{kind: schema.KindString, s: s} }

// Int returns an integer cell.
func Int(i int64) Value { return Value{kind: schema.KindInt, i: i} }

// Float returns a floating-point cell.
func Float(f float64) Value { return Value{kind: schema.KindFloat, f: f} }

// Kind reports the value kind; absent values report schema.KindEmpty.
func (v Value) Kind() schema.Kind { return v.kind }

// IsAbsent reports whether v is the unknown-value sentinel.
func (v Value) IsAbsent() bool { return v.kind == schema.KindEmpty }

// Str returns the string payload of a string cell.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == schema.KindString
}

// Int returns the payload of an integer cell.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == schema.KindInt
}

// Float64 returns any numeric cell as a float64.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case schema.KindInt:
		return float64(v.i), true
	case schema.KindFloat:
		return v.f, true
	}
	return 0, false
}

// Equal is the exact-match rule used by query predicates.
// Absent never matches anything, absent included. Strings match strings
// byte for byte; numbers match numbers by value; the two never cross.
func (v Value) Equal(o Value) bool {
	switch {
	case v.IsAbsent() || o.IsAbsent():
		return false
	case v.kind == schema.KindString || o.kind == schema.KindString:
		return v.kind == o.kind && v.s == o.s
	case v.kind == schema.KindInt && o.kind == schema.KindInt:
		return v.i == o.i
	default:
		a, _ := v.Float64()
		b, _ := o.Float64()
		return a == b
	}
}

// Interface returns the payload as a plain Go value (nil when absent).
func (v Value) Interface() any {
	switch v.kind {
	case schema.KindString:
		return v.s
	case schema.KindInt:
		return v.i
	case schema.KindFloat:
		return v.f
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case schema.KindString:
		return strconv.Quote(v.s)
	case schema.KindInt:
		return strconv.FormatInt(v.i, 10)
	case schema.KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return "<absent>"
}

// text renders the payload without quoting, for schema samples.
func (v Value) text() string {
	if v.kind == schema.KindString {
		return v.s
	}
	return v.String()
}

// MarshalJSON renders absent as null and every other kind natively.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
