package executor

import (
	"math"
	"sort"

	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// GROUPING & AGGREGATION — Shared tabular primitives
// ============================================================================
// Groups keep first-appearance order; combined with stable sorts this gives
// the documented tie-break (ties resolve by original appearance).
// ============================================================================

type group struct {
	key  dataset.Value
	rows []int
}

// groupRows buckets row indices by a column's value, first-appearance order.
func groupRows(t *dataset.Table, col string) []group {
	order := make([]string, 0)
	buckets := make(map[string]*group)
	vals := t.Column(col)
	for i, v := range vals {
		k := v.String()
		g, ok := buckets[k]
		if !ok {
			g = &group{key: v}
			buckets[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, i)
	}
	out := make([]group, len(order))
	for i, k := range order {
		out[i] = *buckets[k]
	}
	return out
}

// collect pulls the non-null metric values for a set of row indices.
func collect(t *dataset.Table, col string, rows []int) []float64 {
	idx := -1
	for i, c := range t.Columns() {
		if c == col {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		v := t.At(r, idx)
		if !v.IsNull() {
			out = append(out, v.Float())
		}
	}
	return out
}

// aggregate reduces values with the named aggregation. Unknown names sum.
func aggregate(vals []float64, agg string) float64 {
	if len(vals) == 0 {
		return 0
	}
	switch agg {
	case "mean":
		return round2(sum(vals) / float64(len(vals)))
	case "count":
		return float64(len(vals))
	case "max":
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case "min":
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case "std":
		return round2(stddev(vals))
	case "median":
		return median(vals)
	default: // sum
		return sum(vals)
	}
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	mean := sum(vals) / float64(n)
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// groupedTable groups the filtered table and aggregates the run's metric,
// producing a two-column table [groupCol, valueCol]. valueCol is "Count"
// when counting rows, else the metric column name.
func (r *run) groupedTable(t *dataset.Table, groupCol, agg string) (*dataset.Table, string) {
	groups := groupRows(t, groupCol)

	valueCol := "Count"
	if !r.useCount {
		valueCol = r.metric
	}
	out := dataset.New(
		[]string{groupCol, valueCol},
		[]dataset.ColType{t.ColType(groupCol), dataset.ColNumber},
	)
	for _, g := range groups {
		var v float64
		if r.useCount {
			v = float64(len(g.rows))
		} else {
			v = aggregate(collect(t, r.metric, g.rows), agg)
		}
		out.AppendRow(g.key, dataset.Num(v))
	}
	return out, valueCol
}
