package executor

import (
	"fmt"
	"math"
	"strings"

	"github.com/finlens-org/finlens/dataset"
	"github.com/finlens-org/finlens/planner"
)

// ============================================================================
// CORE BRANCHES — totals, trends, ranking, distribution, fallback
// ============================================================================
// Each branch returns (table, explanation, viz override). An empty viz keeps
// the plan's choice. Explanations always embed the computed numbers.
// ============================================================================

// totals handles total_volume / total_value / average_value: a single-row
// metric table, visualization forced to "metric".
func (r *run) totals() (*dataset.Table, string, string) {
	out := dataset.New([]string{"Metric", "Value"}, []dataset.ColType{dataset.ColText, dataset.ColNumber})

	switch r.plan.Intent {
	case planner.IntentTotalVolume:
		val := float64(r.filtered.NumRows())
		out.AppendRow(dataset.Str("Total Transactions"), dataset.Num(val))
		return out, fmt.Sprintf("Total number of transactions: **%s**", FormatNumber(val)), "metric"

	case planner.IntentTotalValue:
		if r.amount == "" {
			out.AppendRow(dataset.Str("Error"), dataset.Str("No amount column"))
			return out, "No amount column detected in dataset.", "metric"
		}
		val := sum(columnFloats(r.filtered, r.amount))
		out.AppendRow(dataset.Str("Total Value (INR)"), dataset.Num(val))
		return out, fmt.Sprintf("Total transaction value: **%s**", FormatCurrency(val)), "metric"

	default: // average_value
		if r.amount == "" {
			out.AppendRow(dataset.Str("Error"), dataset.Str("No amount column"))
			return out, "No amount column detected.", "metric"
		}
		vals := columnFloats(r.filtered, r.amount)
		var val float64
		if len(vals) > 0 {
			val = sum(vals) / float64(len(vals))
		}
		out.AppendRow(dataset.Str("Average Value (INR)"), dataset.Num(round2(val)))
		return out, fmt.Sprintf("Average transaction value: **%s**", FormatCurrency(val)), "metric"
	}
}

// trend handles trend_analysis / month_over_month / peak_analysis:
// group, aggregate, sort by the group key ascending. month_over_month
// appends a growth column whose first cell is undefined; peak_analysis
// names the argmax row; trend_analysis reports the first→last change and
// the largest single-period swing.
func (r *run) trend() (*dataset.Table, string, string) {
	intent := r.plan.Intent
	var result *dataset.Table
	var explanation string

	if r.plan.GroupBy == "" {
		result = r.filtered.Head(20)
		explanation = "No group-by column detected. Showing raw data."
	} else if t2, groupCol, ok := resolveGroup(r.filtered, r.plan.GroupBy, r.roles); ok {
		grouped, valueCol := r.groupedTable(t2, groupCol, r.agg)
		grouped.SortBy(groupCol, false)
		result = grouped

		if r.useCount {
			explanation = fmt.Sprintf("Transaction count by **%s**.", r.plan.GroupBy)
		} else {
			explanation = fmt.Sprintf("%s of **%s** by **%s**.", titleWord(r.agg), r.display, r.plan.GroupBy)
		}

		if intent == planner.IntentMonthOverMonth && result.NumRows() >= 2 {
			result = result.WithColumn("MoM Growth %", dataset.ColNumber, pctChange(result.Column(valueCol)))
			explanation += " Month-over-month growth rates calculated."
		}

		if intent == planner.IntentPeakAnalysis && result.NumRows() > 0 {
			cols := result.Columns()
			valCol := cols[len(cols)-1]
			peak := argmaxRow(result, valCol)
			explanation += fmt.Sprintf(" Peak: **%s** with %s.",
				result.Value(peak, cols[0]).String(),
				FormatNumber(result.Value(peak, valCol).Float()))
		}
	} else {
		result = r.filtered.Head(20)
		explanation = fmt.Sprintf("Could not resolve group column: %s", r.plan.GroupBy)
	}

	if intent == planner.IntentTrendAnalysis && result.NumRows() >= 2 {
		cols := result.Columns()
		vals := result.Column(cols[len(cols)-1])
		first := vals[0].Float()
		last := vals[len(vals)-1].Float()
		if first > 0 {
			overall := (last/first - 1) * 100
			direction := "decreased"
			if overall > 0 {
				direction = "increased"
			}
			explanation += fmt.Sprintf(
				"\n\n**Why this trend?** Over the observed period, values %s by **%+.1f%%** from %s to %s.",
				direction, overall, FormatNumber(first), FormatNumber(last))

			changes := pctChange(vals)
			maxIdx := -1
			maxAbs := 0.0
			for i, c := range changes {
				if c.IsNull() {
					continue
				}
				if maxIdx < 0 || math.Abs(c.Float()) > maxAbs {
					maxAbs = math.Abs(c.Float())
					maxIdx = i
				}
			}
			if maxIdx >= 0 {
				explanation += fmt.Sprintf(" Largest single-period change: **%+.1f%%** at **%s**.",
					changes[maxIdx].Float(), result.Value(maxIdx, cols[0]).String())
			}
		}
	}

	return result, explanation, ""
}

// rank handles top_k / bottom_k. Grouped: aggregate, stable sort by the
// value column, truncate to k (ties keep first-appearance order).
// Ungrouped with an amount column: raw-row nlargest/nsmallest.
func (r *run) rank() (*dataset.Table, string, string) {
	top := r.plan.Intent == planner.IntentTopK
	direction := "Bottom"
	if top {
		direction = "Top"
	}

	if r.plan.GroupBy != "" {
		t2, groupCol, ok := resolveGroup(r.filtered, r.plan.GroupBy, r.roles)
		if !ok {
			return r.filtered.Head(r.k),
				fmt.Sprintf("Could not resolve group column: %s", r.plan.GroupBy), ""
		}
		agg := "sum"
		if !r.useCount && r.agg == "mean" {
			agg = "mean"
		}
		grouped, valueCol := r.groupedTable(t2, groupCol, agg)
		grouped.SortBy(valueCol, top)
		// The explanation echoes the requested aggregation word even when
		// counting collapses the computation to a sum.
		return grouped.Head(r.k),
			fmt.Sprintf("%s %d **%s** by %s of **%s**.", direction, r.k, groupCol, r.agg, r.display), ""
	}

	if r.amount != "" && !r.useCount {
		sorted := r.filtered.Head(r.filtered.NumRows())
		sorted.SortBy(r.amount, top)
		return sorted.Head(r.k),
			fmt.Sprintf("%s %d transactions by **%s**.", direction, r.k, r.amount), ""
	}

	return r.filtered.Head(r.k), fmt.Sprintf("Showing first %d records.", r.k), ""
}

// distribution groups, aggregates, and adds a share column sorted
// descending so the pie chart reads largest-first.
func (r *run) distribution() (*dataset.Table, string, string) {
	if r.plan.GroupBy == "" {
		return r.filtered.Head(20), "No grouping column detected for distribution.", ""
	}
	t2, groupCol, ok := resolveGroup(r.filtered, r.plan.GroupBy, r.roles)
	if !ok {
		return r.filtered.Head(20),
			fmt.Sprintf("Could not resolve group column: %s", r.plan.GroupBy), ""
	}

	grouped, valueCol := r.groupedTable(t2, groupCol, "sum")
	vals := grouped.Column(valueCol)
	total := 0.0
	for _, v := range vals {
		total += v.Float()
	}
	shares := make([]dataset.Value, len(vals))
	for i, v := range vals {
		if total > 0 {
			shares[i] = dataset.Num(round2(v.Float() / total * 100))
		} else {
			shares[i] = dataset.Num(0)
		}
	}
	result := grouped.WithColumn("Share %", dataset.ColNumber, shares)
	result.SortBy("Share %", true)

	return result, fmt.Sprintf("Distribution of **%s** by **%s**.", r.display, groupCol), ""
}

// general is the fallback branch: grouped overview when a group-by
// resolves, first 20 filtered rows otherwise.
func (r *run) general() (*dataset.Table, string, string) {
	if r.plan.GroupBy == "" {
		return r.filtered.Head(20),
			fmt.Sprintf("Showing first 20 rows of filtered data (%d total rows).", r.filtered.NumRows()),
			"table"
	}
	t2, groupCol, ok := resolveGroup(r.filtered, r.plan.GroupBy, r.roles)
	if !ok {
		return r.filtered.Head(20), "Showing first 20 rows.", ""
	}
	grouped, valueCol := r.groupedTable(t2, groupCol, r.agg)
	grouped.SortBy(valueCol, true)
	return grouped.Head(20),
		fmt.Sprintf("Results grouped by **%s** (%s).", groupCol, r.agg), ""
}

// ── shared helpers ──────────────────────────────────────────────────────────

// pctChange computes period-over-period percentage change; the first cell
// (and any cell after a zero) is undefined and stays null.
func pctChange(vals []dataset.Value) []dataset.Value {
	out := make([]dataset.Value, len(vals))
	for i := range vals {
		if i == 0 || vals[i-1].IsNull() || vals[i].IsNull() || vals[i-1].Float() == 0 {
			out[i] = dataset.Null()
			continue
		}
		out[i] = dataset.Num(round2((vals[i].Float()/vals[i-1].Float() - 1) * 100))
	}
	return out
}

// argmaxRow returns the row index with the largest value in col.
func argmaxRow(t *dataset.Table, col string) int {
	best, bestVal := 0, math.Inf(-1)
	for i, v := range t.Column(col) {
		if !v.IsNull() && v.Float() > bestVal {
			bestVal = v.Float()
			best = i
		}
	}
	return best
}

// columnFloats returns a column's non-null numeric values.
func columnFloats(t *dataset.Table, col string) []float64 {
	var out []float64
	for _, v := range t.Column(col) {
		if !v.IsNull() {
			out = append(out, v.Float())
		}
	}
	return out
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
