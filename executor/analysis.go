package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// ANALYSIS BRANCHES — fraud, failure, comparison, quality, concentration,
// histogram, forecast, scenario, self-explanation
// ============================================================================

// fraud reports the overall fraud rate, broken down per group when a
// group-by resolves. A dataset without a fraud role answers with an
// explanation, never an error.
func (r *run) fraud() (*dataset.Table, string, string) {
	fraudCol := r.roles.Col(dataset.RoleFraud)
	if fraudCol == "" || !r.filtered.HasColumn(fraudCol) {
		return nil, "No fraud column detected in dataset.", ""
	}

	total := r.filtered.NumRows()
	flagged := countFlagged(r.filtered.Column(fraudCol))
	rate := 0.0
	if total > 0 {
		rate = round3(float64(flagged) / float64(total) * 100)
	}

	if r.plan.GroupBy != "" {
		if t2, groupCol, ok := resolveGroup(r.filtered, r.plan.GroupBy, r.roles); ok {
			out := dataset.New(
				[]string{groupCol, "Total", "Fraud Count", "Fraud Rate %"},
				[]dataset.ColType{t2.ColType(groupCol), dataset.ColNumber, dataset.ColNumber, dataset.ColNumber},
			)
			for _, g := range groupRows(t2, groupCol) {
				gFlagged := countFlaggedRows(t2, fraudCol, g.rows)
				gRate := 0.0
				if len(g.rows) > 0 {
					gRate = round3(float64(gFlagged) / float64(len(g.rows)) * 100)
				}
				out.AppendRow(g.key, dataset.Num(float64(len(g.rows))),
					dataset.Num(float64(gFlagged)), dataset.Num(gRate))
			}
			out.SortBy("Fraud Rate %", true)
			return out, fmt.Sprintf("Fraud analysis by **%s**. Overall fraud rate: **%g%%**.", groupCol, rate), ""
		}
	}

	out := dataset.New(
		[]string{"Total", "Fraud Count", "Fraud Rate %"},
		[]dataset.ColType{dataset.ColNumber, dataset.ColNumber, dataset.ColNumber},
	)
	out.AppendRow(dataset.Num(float64(total)), dataset.Num(float64(flagged)), dataset.Num(rate))
	return out, fmt.Sprintf("Overall fraud rate: **%g%%** (%d flagged out of %s).",
		rate, flagged, FormatNumber(float64(total))), ""
}

// failure pivots transaction status per group and reports success rates.
func (r *run) failure() (*dataset.Table, string, string) {
	statusCol := r.roles.Col(dataset.RoleStatus)
	if statusCol == "" {
		statusCol, _ = dataset.MatchColumn(r.full.Columns(), "status")
	}
	if statusCol == "" || !r.filtered.HasColumn(statusCol) {
		return nil, "No status column detected.", ""
	}

	if r.plan.GroupBy != "" {
		if t2, groupCol, ok := resolveGroup(r.filtered, r.plan.GroupBy, r.roles); ok {
			return r.statusPivot(t2, groupCol, statusCol)
		}
		return statusCounts(r.filtered, statusCol), "Transaction status distribution.", ""
	}

	result := statusCounts(r.filtered, statusCol)
	var total, success float64
	for i := 0; i < result.NumRows(); i++ {
		c := result.Value(i, "Count").Float()
		total += c
		if strings.EqualFold(result.Value(i, "Status").Str, "SUCCESS") {
			success += c
		}
	}
	pct := 0.0
	if total > 0 {
		pct = round2(success / total * 100)
	}
	return result, fmt.Sprintf("Transaction status: **%.0f/%.0f** successful (%g%% success rate).",
		success, total, pct), ""
}

// statusPivot builds one row per group with a count column per status value
// (alphabetical) and a success-rate column when both outcomes appear.
func (r *run) statusPivot(t *dataset.Table, groupCol, statusCol string) (*dataset.Table, string, string) {
	statuses := sortedUnique(t.Column(statusCol))
	cols := append([]string{groupCol}, statuses...)
	types := make([]dataset.ColType, len(cols))
	types[0] = t.ColType(groupCol)
	for i := 1; i < len(types); i++ {
		types[i] = dataset.ColNumber
	}

	hasSuccess := contains(statuses, "SUCCESS")
	hasFailed := contains(statuses, "FAILED")
	if hasSuccess && hasFailed {
		cols = append(cols, "Success Rate %")
		types = append(types, dataset.ColNumber)
	}

	out := dataset.New(cols, types)
	for _, g := range groupRows(t, groupCol) {
		counts := make(map[string]float64, len(statuses))
		for _, row := range g.rows {
			counts[t.Value(row, statusCol).Str]++
		}
		vals := make([]dataset.Value, 0, len(cols))
		vals = append(vals, g.key)
		for _, s := range statuses {
			vals = append(vals, dataset.Num(counts[s]))
		}
		if hasSuccess && hasFailed {
			rate := 0.0
			if denom := counts["SUCCESS"] + counts["FAILED"]; denom > 0 {
				rate = round2(counts["SUCCESS"] / denom * 100)
			}
			vals = append(vals, dataset.Num(rate))
		}
		out.AppendRow(vals...)
	}
	if hasSuccess && hasFailed {
		out.SortBy("Success Rate %", false)
	}
	return out, fmt.Sprintf("Success/Failure analysis by **%s**.", groupCol), ""
}

// comparison resolves both entities against the categorical columns (exact
// value match first, then substring) and builds a side-by-side table of
// count/sum/mean with absolute and percentage differences and a "higher"
// label. A failed resolution is reported, not raised.
func (r *run) comparison() (*dataset.Table, string, string) {
	a, b := r.plan.CompareA, r.plan.CompareB
	if a == "" || b == "" {
		return nil, "Could not extract comparison entities from query.", ""
	}

	compareCol, a, b := findComparisonColumn(r.filtered, a, b)
	if compareCol == "" || r.amount == "" {
		return nil, fmt.Sprintf("Could not find matching data for comparison between '%s' and '%s'.", a, b), ""
	}

	aVals := entityValues(r.filtered, compareCol, a, r.amount)
	bVals := entityValues(r.filtered, compareCol, b, r.amount)
	aSum, bSum := sum(aVals), sum(bVals)
	aCount, bCount := float64(len(aVals)), float64(len(bVals))
	aAvg, bAvg := safeDiv(aSum, aCount), safeDiv(bSum, bCount)

	labelA, labelB := titleCase(a), titleCase(b)
	out := dataset.New(
		[]string{"Metric", labelA, labelB, "Difference", "Diff %", "Higher"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColNumber, dataset.ColNumber, dataset.ColNumber, dataset.ColText},
	)
	addCompareRow(out, "Total Value (INR)", round2(aSum), round2(bSum), labelA, labelB)
	addCompareRow(out, "Transaction Count", aCount, bCount, labelA, labelB)
	addCompareRow(out, "Average Value (INR)", round2(aAvg), round2(bAvg), labelA, labelB)

	return out, fmt.Sprintf("Comparison: **%s** vs **%s** on column **%s**.", labelA, labelB, compareCol),
		"grouped_bar"
}

func addCompareRow(t *dataset.Table, metric string, a, b float64, labelA, labelB string) {
	diffPct := 0.0
	if b != 0 {
		diffPct = round2((a - b) / b * 100)
	}
	higher := labelA
	if b > a {
		higher = labelB
	}
	t.AppendRow(dataset.Str(metric), dataset.Num(a), dataset.Num(b),
		dataset.Num(round2(a-b)), dataset.Num(diffPct), dataset.Str(higher))
}

// findComparisonColumn scans text columns in order for one containing both
// entities; exact case-insensitive match wins, substring match second.
func findComparisonColumn(t *dataset.Table, a, b string) (string, string, string) {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, col := range t.Columns() {
		if t.ColType(col) != dataset.ColText {
			continue
		}
		uniq := lowerUnique(t.Column(col))
		if containsVal(uniq, la) && containsVal(uniq, lb) {
			return col, a, b
		}
		var matchA, matchB string
		for _, v := range uniq {
			if matchA == "" && strings.Contains(v, la) {
				matchA = v
			}
			if matchB == "" && strings.Contains(v, lb) {
				matchB = v
			}
		}
		if matchA != "" && matchB != "" {
			return col, matchA, matchB
		}
	}
	return "", a, b
}

func entityValues(t *dataset.Table, col, entity, amountCol string) []float64 {
	le := strings.ToLower(entity)
	var out []float64
	amounts := t.Column(amountCol)
	for i, v := range t.Column(col) {
		if strings.ToLower(v.Str) == le && !amounts[i].IsNull() {
			out = append(out, amounts[i].Float())
		}
	}
	return out
}

// dataQuality reports per-column missing counts, uniqueness, and types.
func (r *run) dataQuality() (*dataset.Table, string, string) {
	out := dataset.New(
		[]string{"Column", "Missing", "Missing %", "Unique Values", "Data Type"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColNumber, dataset.ColNumber, dataset.ColText},
	)
	rows := r.filtered.NumRows()
	for _, col := range r.filtered.Columns() {
		missing, uniq := 0, make(map[string]bool)
		for _, v := range r.filtered.Column(col) {
			if v.IsNull() {
				missing++
			} else {
				uniq[v.String()] = true
			}
		}
		pct := 0.0
		if rows > 0 {
			pct = round2(float64(missing) / float64(rows) * 100)
		}
		out.AppendRow(dataset.Str(col), dataset.Num(float64(missing)), dataset.Num(pct),
			dataset.Num(float64(len(uniq))), dataset.Str(r.filtered.ColType(col).String()))
	}
	dups := r.filtered.DuplicateRows()
	return out, fmt.Sprintf("Data quality report: **%d** rows, **%d** columns, **%d** duplicate rows.",
		rows, r.filtered.NumCols(), dups), "table"
}

// concentration computes per-group share of the amount column and the
// Herfindahl-Hirschman Index over share fractions.
func (r *run) concentration() (*dataset.Table, string, string) {
	if r.plan.GroupBy == "" || r.amount == "" {
		return nil, "Need a group-by column and amount column for concentration analysis.", ""
	}
	t2, groupCol, ok := resolveGroup(r.filtered, r.plan.GroupBy, r.roles)
	if !ok {
		return r.filtered.Head(20),
			fmt.Sprintf("Could not resolve group column: %s", r.plan.GroupBy), ""
	}

	groups := groupRows(t2, groupCol)
	out := dataset.New(
		[]string{groupCol, r.amount, "Share %"},
		[]dataset.ColType{t2.ColType(groupCol), dataset.ColNumber, dataset.ColNumber},
	)
	sums := make([]float64, len(groups))
	total := 0.0
	for i, g := range groups {
		sums[i] = sum(collect(t2, r.amount, g.rows))
		total += sums[i]
	}
	hhi := 0.0
	for i, g := range groups {
		share := 0.0
		if total > 0 {
			share = sums[i] / total
		}
		hhi += share * share
		out.AppendRow(g.key, dataset.Num(sums[i]), dataset.Num(round2(share*100)))
	}
	out.SortBy(r.amount, true)

	topShare := 0.0
	if out.NumRows() > 0 {
		topShare = out.Value(0, "Share %").Float()
	}
	return out, fmt.Sprintf(
		"Concentration analysis by **%s**. HHI Index: **%.4f** (0=perfect competition, 1=monopoly). Top contributor holds **%g%%** share.",
		groupCol, hhi, topShare), ""
}

// explainSelf answers "how does this work" queries with the plan itself.
func (r *run) explainSelf() (*dataset.Table, string, string) {
	out := dataset.New([]string{"Step", "Detail"}, []dataset.ColType{dataset.ColText, dataset.ColText})
	filterJSON, _ := json.Marshal(r.plan.Filters)
	groupBy := r.plan.GroupBy
	if groupBy == "" {
		groupBy = "None"
	}
	out.AppendRow(dataset.Str("Query parsed"), dataset.Str(r.plan.Query))
	out.AppendRow(dataset.Str("Intent detected"), dataset.Str(string(r.plan.Intent)))
	out.AppendRow(dataset.Str("Aggregation"), dataset.Str(r.agg))
	out.AppendRow(dataset.Str("Group by"), dataset.Str(groupBy))
	out.AppendRow(dataset.Str("Filters"), dataset.Str(string(filterJSON)))

	explanation := "This system converts natural language questions into structured execution plans. " +
		"Each plan specifies intent, grouping, metrics, filters, and visualization. " +
		"The execution engine runs deterministic tabular operations on the raw data, " +
		"so every number in an answer is computed from the actual dataset."
	return out, explanation, "table"
}

// histogram bins the amount column into 20 equal-width buckets and reports
// mean, median, and a skew heuristic.
func (r *run) histogram() (*dataset.Table, string, string) {
	if r.amount == "" {
		return nil, "No numeric column detected for histogram.", ""
	}
	values := columnFloats(r.filtered, r.amount)
	if len(values) == 0 {
		return nil, "No numeric column detected for histogram.", ""
	}

	const bins = 20
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	width := (hi - lo) / bins
	counts := make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins { // rightmost edge is inclusive
			idx = bins - 1
		}
		counts[idx]++
	}

	out := dataset.New(
		[]string{"Range", "Count", "Percentage"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColNumber},
	)
	for i, c := range counts {
		label := fmt.Sprintf("%.0f-%.0f", lo+float64(i)*width, lo+float64(i+1)*width)
		out.AppendRow(dataset.Str(label), dataset.Num(float64(c)),
			dataset.Num(round2(float64(c)/float64(len(values))*100)))
	}

	mean := sum(values) / float64(len(values))
	med := median(values)
	skew := "Approximately symmetric distribution."
	if mean > med*1.2 {
		skew = "Right-skewed (mean > median) — many small transactions, few large ones."
	}
	return out, fmt.Sprintf("Histogram of **%s**: Mean = **%s**, Median = **%s**. %s",
		r.amount, FormatCurrency(mean), FormatCurrency(med), skew), "histogram"
}

// forecast delegates to the external forecasting collaborator and reshapes
// its output into one combined Historical/Forecast table.
func (r *run) forecast() (*dataset.Table, string, string) {
	if r.fc == nil {
		return nil, "Forecasting is not configured; prediction queries are unavailable.", ""
	}
	hist, fc, explanation, err := r.fc.ForecastMonthly(r.full, r.roles, 3)
	if err != nil {
		return nil, err.Error(), ""
	}

	out := dataset.New(
		[]string{"Month", "Actual", "Fitted", "Type"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColNumber, dataset.ColText},
	)
	for i := 0; i < hist.NumRows(); i++ {
		out.AppendRow(hist.Value(i, "Month"), hist.Value(i, "Actual"),
			hist.Value(i, "Fitted"), dataset.Str("Historical"))
	}
	for i := 0; i < fc.NumRows(); i++ {
		out.AppendRow(fc.Value(i, "Month"), dataset.Null(),
			fc.Value(i, "Predicted"), dataset.Str("Forecast"))
	}
	return out, explanation, "line"
}

// scenario points at the interactive what-if tooling; simulation itself is
// an external collaborator.
func (r *run) scenario() (*dataset.Table, string, string) {
	out := dataset.New([]string{"Available Scenarios"}, []dataset.ColType{dataset.ColText})
	out.AppendRow(dataset.Str("Value Increase/Decrease, Volume Increase, Fraud Rate Change, Failure Rate Change"))
	return out, "Use the scenario simulator for interactive what-if analysis: adjust transaction value, " +
		"volume, fraud rate, or failure rate and see projected impacts.", "table"
}

// ── helpers ─────────────────────────────────────────────────────────────────

// countFlagged counts truthy fraud-flag cells (numeric > 0, or yes/true/1).
func countFlagged(vals []dataset.Value) int {
	n := 0
	for _, v := range vals {
		if isFlagged(v) {
			n++
		}
	}
	return n
}

func countFlaggedRows(t *dataset.Table, col string, rows []int) int {
	n := 0
	for _, row := range rows {
		if isFlagged(t.Value(row, col)) {
			n++
		}
	}
	return n
}

func isFlagged(v dataset.Value) bool {
	switch v.Kind {
	case dataset.KindNumber:
		return v.Num > 0
	case dataset.KindText:
		s := strings.ToLower(v.Str)
		return s == "1" || s == "true" || s == "yes"
	}
	return false
}

// statusCounts is a value_counts-style table sorted by count descending.
func statusCounts(t *dataset.Table, statusCol string) *dataset.Table {
	out := dataset.New([]string{"Status", "Count"}, []dataset.ColType{dataset.ColText, dataset.ColNumber})
	for _, g := range groupRows(t, statusCol) {
		out.AppendRow(g.key, dataset.Num(float64(len(g.rows))))
	}
	out.SortBy("Count", true)
	return out
}

func sortedUnique(vals []dataset.Value) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v.IsNull() || seen[v.Str] {
			continue
		}
		seen[v.Str] = true
		out = append(out, v.Str)
	}
	// alphabetical pivot columns
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func lowerUnique(vals []dataset.Value) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v.Kind != dataset.KindText {
			continue
		}
		s := strings.ToLower(v.Str)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func containsVal(list []string, s string) bool { return contains(list, s) }

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
