package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ============================================================================
// VALUE — Typed table cell
// ============================================================================
// A cell is text, a number, a date, or null. NaN numbers and null cells both
// serialize as JSON null so growth columns round-trip cleanly.
// ============================================================================

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindDate
)

// Value is a single typed cell.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Time time.Time
}

// Num creates a numeric cell.
func Num(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Str creates a text cell.
func Str(s string) Value { return Value{Kind: KindText, Str: s} }

// Date creates a date cell.
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// Null creates an empty cell.
func Null() Value { return Value{Kind: KindNull} }

// IsNull reports whether the cell is null or a NaN number.
func (v Value) IsNull() bool {
	return v.Kind == KindNull || (v.Kind == KindNumber && math.IsNaN(v.Num))
}

// Float returns the numeric content (0 for non-numbers).
func (v Value) Float() float64 {
	if v.Kind == KindNumber {
		return v.Num
	}
	return 0
}

// String renders the cell for labels and explanations.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) {
			return ""
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	case KindDate:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	}
	return ""
}

// MarshalJSON serializes numbers as floats (NaN as null), dates as ISO-like
// strings, and nulls as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Num)
	case KindText:
		return json.Marshal(v.Str)
	case KindDate:
		return json.Marshal(v.String())
	}
	return []byte("null"), nil
}

// Compare orders two cells: numbers by value, dates chronologically, text
// lexically. Nulls sort last. Mixed kinds fall back to string rendering.
func (v Value) Compare(o Value) int {
	if v.IsNull() || o.IsNull() {
		switch {
		case v.IsNull() && o.IsNull():
			return 0
		case v.IsNull():
			return 1
		default:
			return -1
		}
	}
	if v.Kind == o.Kind {
		switch v.Kind {
		case KindNumber:
			switch {
			case v.Num < o.Num:
				return -1
			case v.Num > o.Num:
				return 1
			}
			return 0
		case KindDate:
			switch {
			case v.Time.Before(o.Time):
				return -1
			case v.Time.After(o.Time):
				return 1
			}
			return 0
		}
	}
	a, b := v.String(), o.String()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
