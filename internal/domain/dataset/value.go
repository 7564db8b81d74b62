// Package dataset defines the tabular abstraction consumed and produced by
// the analyses: comparable cell values, named columns and immutable datasets.
package dataset

import (
	"cmp"
	"math"
	"strconv"
	"time"
)

// Kind is the semantic type of a value or a column.
type Kind int

// Value and column kinds. The declaration order is the cross-kind sort order.
const (
	KindNull Kind = iota
	KindNumber
	KindTime
	KindText
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "numeric"
	case KindTime:
		return "time"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is a single cell. It is comparable and can be used as a map key;
// NaN is never stored, it collapses to a null value.
type Value struct {
	kind Kind
	num  float64
	ts   int64 // unix nanoseconds, UTC
	str  string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number wraps f. NaN becomes null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Int wraps an integer as a number.
func Int(i int) Value { return Number(float64(i)) }

// Text wraps s.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Time wraps t. The zero time is treated as null.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: KindTime, ts: t.UTC().UnixNano()}
}

// Kind reports the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload. ok is false for non-numbers.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return math.NaN(), false
	}
	return v.num, true
}

// Time returns the time payload. ok is false for non-times.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return time.Unix(0, v.ts).UTC(), true
}

// Compare orders values: null first, then numbers, times and text.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		return cmp.Compare(v.kind, o.kind)
	}
	switch v.kind {
	case KindNumber:
		return cmp.Compare(v.num, o.num)
	case KindTime:
		return cmp.Compare(v.ts, o.ts)
	case KindText:
		return cmp.Compare(v.str, o.str)
	default:
		return 0
	}
}

// String renders v for tables and plot labels. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindTime:
		t := time.Unix(0, v.ts).UTC()
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339Nano)
	case KindText:
		return v.str
	default:
		return ""
	}
}

// Interface returns v as a plain Go value for encoders: nil, float64,
// time.Time or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindTime:
		t, _ := v.Time()
		return t
	case KindText:
		return v.str
	default:
		return nil
	}
}

// MarshalJSON encodes numbers as JSON numbers, times as RFC 3339 strings,
// text as strings and null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return strconv.AppendFloat(nil, v.num, 'g', -1, 64), nil
	case KindTime:
		t, _ := v.Time()
		return strconv.AppendQuote(nil, t.Format(time.RFC3339Nano)), nil
	case KindText:
		return strconv.AppendQuote(nil, v.str), nil
	default:
		return []byte("null"), nil
	}
}
