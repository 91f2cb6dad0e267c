package dataset

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// FILTERS — Predicate application with defensive-copy semantics
// ============================================================================
// Filters AND-combine. A filter whose column is missing from the table, or
// whose operator is unknown, is a no-op: Apply reports it as skipped instead
// of failing, and the executor surfaces that in the explanation.
// ============================================================================

// Filter is a single column predicate.
type Filter struct {
	Column string      `json:"column"`
	Op     string      `json:"op"` // ==, !=, >, <, >=, <=, in
	Value  interface{} `json:"value"`
}

// Describe renders the filter for explanations, e.g. "state == Delhi".
func (f Filter) Describe() string {
	return fmt.Sprintf("%s %s %v", f.Column, f.Op, f.Value)
}

var knownOps = map[string]bool{
	"==": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true, "in": true,
}

// Apply returns a defensive copy of t containing only rows matching every
// filter, plus the filters that were skipped (missing column or unknown op).
func Apply(t *Table, filters []Filter) (*Table, []Filter) {
	out := New(t.cols, t.types)
	var active []Filter
	var activeIdx []int
	var skipped []Filter
	for _, f := range filters {
		i := t.colIndex(f.Column)
		if i < 0 || !knownOps[f.Op] {
			skipped = append(skipped, f)
			continue
		}
		active = append(active, f)
		activeIdx = append(activeIdx, i)
	}

	out.rows = make([][]Value, 0, len(t.rows))
	for _, row := range t.rows {
		pass := true
		for j, f := range active {
			if !matches(row[activeIdx[j]], f.Op, f.Value) {
				pass = false
				break
			}
		}
		if pass {
			out.rows = append(out.rows, append([]Value(nil), row...))
		}
	}
	return out, skipped
}

// matches evaluates one predicate against a cell.
func matches(cell Value, op string, want interface{}) bool {
	if op == "in" {
		for _, w := range toSlice(want) {
			if matches(cell, "==", w) {
				return true
			}
		}
		return false
	}

	c := compare(cell, want)
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case ">":
		return c > 0 && c != sentinelIncomparable
	case "<":
		return c < 0
	case ">=":
		return c >= 0 && c != sentinelIncomparable
	case "<=":
		return c <= 0
	}
	return false
}

// sentinelIncomparable marks pairs with no defined order (e.g. null cells).
const sentinelIncomparable = 2

func compare(cell Value, want interface{}) int {
	if cell.IsNull() {
		return sentinelIncomparable
	}
	switch w := want.(type) {
	case float64:
		return cell.Compare(Num(w))
	case float32:
		return cell.Compare(Num(float64(w)))
	case int:
		return cell.Compare(Num(float64(w)))
	case int64:
		return cell.Compare(Num(float64(w)))
	case time.Time:
		return cell.Compare(Date(w))
	case string:
		if cell.Kind == KindText {
			// Equality on text is case-insensitive to match value extraction.
			a, b := strings.ToLower(cell.Str), strings.ToLower(w)
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}
		return cell.Compare(Str(w))
	case nil:
		return sentinelIncomparable
	default:
		return cell.Compare(Str(fmt.Sprintf("%v", w)))
	}
}

func toSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case []string:
		out := make([]interface{}, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []float64:
		out := make([]interface{}, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	}
	return []interface{}{v}
}
