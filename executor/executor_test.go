package executor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlens-org/finlens/dataset"
	"github.com/finlens-org/finlens/planner"
)

// ============================================================================
// EXECUTION DISPATCHER TESTS
// ============================================================================

func date(y int, m time.Month, d int) dataset.Value {
	return dataset.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// statesTable: Delhi=500, Maharashtra=400, Karnataka=300, Goa=50 by amount.
func statesTable() (*dataset.Table, dataset.RoleMap) {
	t := dataset.New(
		[]string{"state", "amount", "txn_date", "status"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColDate, dataset.ColText},
	)
	t.AppendRow(dataset.Str("Delhi"), dataset.Num(300), date(2024, 1, 5), dataset.Str("SUCCESS"))
	t.AppendRow(dataset.Str("Delhi"), dataset.Num(200), date(2024, 2, 10), dataset.Str("SUCCESS"))
	t.AppendRow(dataset.Str("Maharashtra"), dataset.Num(400), date(2024, 2, 15), dataset.Str("FAILED"))
	t.AppendRow(dataset.Str("Karnataka"), dataset.Num(300), date(2024, 3, 1), dataset.Str("SUCCESS"))
	t.AppendRow(dataset.Str("Goa"), dataset.Num(50), date(2024, 3, 20), dataset.Str("SUCCESS"))
	roles := dataset.RoleMap{
		dataset.RoleAmount: "amount",
		dataset.RoleDate:   "txn_date",
		dataset.RoleRegion: "state",
		dataset.RoleStatus: "status",
	}
	return t, roles
}

func buildPlan(query string, t *dataset.Table, roles dataset.RoleMap) planner.Plan {
	return planner.BuildPlan(query, roles, t.Columns())
}

func TestTotalValue(t *testing.T) {
	tbl, roles := statesTable()
	res := Execute(buildPlan("What is the total transaction value?", tbl, roles), tbl, roles)

	require.Equal(t, 1, res.Table.NumRows())
	assert.Equal(t, "Total Value (INR)", res.Table.Value(0, "Metric").Str)
	assert.Equal(t, 1250.0, res.Table.Value(0, "Value").Num)
	assert.Equal(t, "metric", res.Chart.Type)
	assert.Equal(t, tbl.NumRows(), res.RowsScanned, "empty filter list scans every row")
}

func TestTotalValueNoAmountColumn(t *testing.T) {
	tbl := dataset.New([]string{"note"}, []dataset.ColType{dataset.ColText})
	tbl.AppendRow(dataset.Str("x"))
	res := Execute(buildPlan("total transaction value", tbl, dataset.RoleMap{}), tbl, dataset.RoleMap{})
	assert.Contains(t, res.Explanation, "No amount column detected")
}

func TestTopKStates(t *testing.T) {
	tbl, roles := statesTable()
	plan := buildPlan("Top 3 states by transaction value", tbl, roles)
	require.Equal(t, planner.IntentTopK, plan.Intent)
	require.Equal(t, 3, plan.K)

	res := Execute(plan, tbl, roles)
	require.Equal(t, 3, res.Table.NumRows())
	want := []string{"Delhi", "Maharashtra", "Karnataka"}
	for i, state := range want {
		assert.Equal(t, state, res.Table.Value(i, "state").Str, "row %d", i)
	}
	assert.Equal(t, 500.0, res.Table.Value(0, "amount").Num)
}

func TestTopKTieKeepsFirstAppearance(t *testing.T) {
	tbl := dataset.New(
		[]string{"bank", "amount"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber},
	)
	tbl.AppendRow(dataset.Str("HDFC"), dataset.Num(100))
	tbl.AppendRow(dataset.Str("SBI"), dataset.Num(100))
	tbl.AppendRow(dataset.Str("ICICI"), dataset.Num(50))
	roles := dataset.RoleMap{dataset.RoleAmount: "amount"}

	plan := planner.Plan{
		Intent: planner.IntentTopK, Query: "top banks", Aggregation: "sum",
		MetricColumn: "amount", GroupBy: "bank", K: 2,
	}
	res := Execute(plan, tbl, roles)
	require.Equal(t, 2, res.Table.NumRows())
	assert.Equal(t, "HDFC", res.Table.Value(0, "bank").Str, "tie resolves by first appearance")
	assert.Equal(t, "SBI", res.Table.Value(1, "bank").Str)
}

func TestRankExplanationEchoesAggregation(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{
		Intent: planner.IntentTopK, Query: "top 3 states by number of transactions",
		Aggregation: "count", MetricColumn: planner.CountColumn, GroupBy: "state", K: 3,
	}
	res := Execute(plan, tbl, roles)

	// The computation counts rows, but the explanation echoes the plan's
	// aggregation word, not the effective one.
	assert.Contains(t, res.Explanation, "by count of")
	assert.Equal(t, 2.0, res.Table.Value(0, "Count").Num, "Delhi has two rows")
}

func TestMonthOverMonthGrowth(t *testing.T) {
	tbl := dataset.New(
		[]string{"amount", "txn_date"},
		[]dataset.ColType{dataset.ColNumber, dataset.ColDate},
	)
	tbl.AppendRow(dataset.Num(100), date(2024, 1, 1))
	tbl.AppendRow(dataset.Num(110), date(2024, 2, 1))
	tbl.AppendRow(dataset.Num(99), date(2024, 3, 1))
	roles := dataset.RoleMap{dataset.RoleAmount: "amount", dataset.RoleDate: "txn_date"}

	res := Execute(buildPlan("month over month growth", tbl, roles), tbl, roles)
	require.Equal(t, 3, res.Table.NumRows())

	growth := res.Table.Column("MoM Growth %")
	assert.True(t, growth[0].IsNull(), "first growth cell is undefined")
	assert.Equal(t, 10.0, growth[1].Num)  // (110/100 - 1) * 100
	assert.Equal(t, -10.0, growth[2].Num) // (99/110 - 1) * 100

	months := res.Table.Column("month")
	assert.Equal(t, "2024-01", months[0].Str)
	assert.Equal(t, "2024-03", months[2].Str)
}

func TestComparison(t *testing.T) {
	tbl := dataset.New(
		[]string{"zone", "amount"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber},
	)
	tbl.AppendRow(dataset.Str("Delhi"), dataset.Num(600))
	tbl.AppendRow(dataset.Str("Delhi"), dataset.Num(400))
	tbl.AppendRow(dataset.Str("Maharashtra"), dataset.Num(400))
	roles := dataset.RoleMap{dataset.RoleAmount: "amount"}

	plan := buildPlan("Compare Delhi vs Maharashtra", tbl, roles)
	require.Equal(t, "delhi", plan.CompareA)
	require.Equal(t, "maharashtra", plan.CompareB)

	res := Execute(plan, tbl, roles)
	require.Equal(t, 3, res.Table.NumRows())
	assert.Equal(t, "Total Value (INR)", res.Table.Value(0, "Metric").Str)
	assert.Equal(t, 1000.0, res.Table.Value(0, "Delhi").Num)
	assert.Equal(t, 400.0, res.Table.Value(0, "Maharashtra").Num)
	assert.Equal(t, 600.0, res.Table.Value(0, "Difference").Num)
	assert.Equal(t, 150.0, res.Table.Value(0, "Diff %").Num)
	assert.Equal(t, "Delhi", res.Table.Value(0, "Higher").Str)
	assert.Equal(t, "grouped_bar", res.Chart.Type)
}

func TestComparisonNoMatch(t *testing.T) {
	tbl := dataset.New([]string{"zone", "amount"}, []dataset.ColType{dataset.ColText, dataset.ColNumber})
	tbl.AppendRow(dataset.Str("North"), dataset.Num(10))
	roles := dataset.RoleMap{dataset.RoleAmount: "amount"}

	plan := planner.Plan{
		Intent: planner.IntentComparison, Query: "compare x vs y",
		Aggregation: "sum", CompareA: "x", CompareB: "y",
	}
	res := Execute(plan, tbl, roles)
	assert.Contains(t, res.Explanation, "Could not find matching data")
}

func TestFraudNoRole(t *testing.T) {
	tbl, roles := statesTable() // no fraud role
	res := Execute(buildPlan("fraud rate", tbl, roles), tbl, roles)
	assert.Contains(t, res.Explanation, "No fraud column detected in dataset.")
}

func TestFraudOverallRate(t *testing.T) {
	tbl := dataset.New(
		[]string{"amount", "fraud_flag"},
		[]dataset.ColType{dataset.ColNumber, dataset.ColNumber},
	)
	tbl.AppendRow(dataset.Num(100), dataset.Num(0))
	tbl.AppendRow(dataset.Num(200), dataset.Num(1))
	tbl.AppendRow(dataset.Num(300), dataset.Num(0))
	tbl.AppendRow(dataset.Num(400), dataset.Num(0))
	roles := dataset.RoleMap{dataset.RoleAmount: "amount", dataset.RoleFraud: "fraud_flag"}

	plan := planner.Plan{Intent: planner.IntentFraud, Query: "overall fraud rate", Aggregation: "sum"}
	res := Execute(plan, tbl, roles)
	require.Equal(t, 1, res.Table.NumRows())
	assert.Equal(t, 4.0, res.Table.Value(0, "Total").Num)
	assert.Equal(t, 1.0, res.Table.Value(0, "Fraud Count").Num)
	assert.Equal(t, 25.0, res.Table.Value(0, "Fraud Rate %").Num)
	assert.Contains(t, res.Explanation, "25%")
}

func TestFailureAnalysisUngrouped(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{Intent: planner.IntentFailureAnalysis, Query: "transaction status", Aggregation: "count"}
	res := Execute(plan, tbl, roles)

	assert.Contains(t, res.Explanation, "4/5")
	assert.Contains(t, res.Explanation, "80%")
	// value_counts order: SUCCESS (4) before FAILED (1)
	assert.Equal(t, "SUCCESS", res.Table.Value(0, "Status").Str)
}

func TestDistributionShares(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{
		Intent: planner.IntentDistribution, Query: "share by state",
		Aggregation: "sum", MetricColumn: "amount", GroupBy: "state",
	}
	res := Execute(plan, tbl, roles)
	require.Equal(t, 4, res.Table.NumRows())
	assert.Equal(t, "Delhi", res.Table.Value(0, "state").Str)
	assert.Equal(t, 40.0, res.Table.Value(0, "Share %").Num) // 500/1250
	assert.Equal(t, 4.0, res.Table.Value(3, "Share %").Num)  // Goa 50/1250
}

func TestConcentrationHHI(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{
		Intent: planner.IntentConcentration, Query: "concentration by state",
		Aggregation: "sum", MetricColumn: "amount", GroupBy: "state",
	}
	res := Execute(plan, tbl, roles)
	// shares 0.40, 0.32, 0.24, 0.04 → HHI = 0.3216
	assert.Contains(t, res.Explanation, "0.3216")
	assert.Contains(t, res.Explanation, "40%")
}

func TestHistogramBins(t *testing.T) {
	tbl := dataset.New([]string{"amount"}, []dataset.ColType{dataset.ColNumber})
	for i := 0; i < 100; i++ {
		tbl.AppendRow(dataset.Num(float64(i * 10)))
	}
	roles := dataset.RoleMap{dataset.RoleAmount: "amount"}

	plan := planner.Plan{Intent: planner.IntentHistogram, Query: "histogram of amount", Aggregation: "sum"}
	res := Execute(plan, tbl, roles)
	require.Equal(t, 20, res.Table.NumRows())

	total := 0.0
	for _, v := range res.Table.Column("Count") {
		total += v.Num
	}
	assert.Equal(t, 100.0, total, "every value lands in exactly one bin")
	assert.Contains(t, res.Explanation, "Mean")
}

func TestFilteredExecutionAndSkipDiagnostic(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{
		Intent: planner.IntentTotalValue, Query: "successful value",
		Aggregation: "sum", MetricColumn: "amount",
		Filters: []dataset.Filter{
			{Column: "status", Op: "==", Value: "SUCCESS"},
			{Column: "ghost", Op: "==", Value: "x"},
		},
	}
	res := Execute(plan, tbl, roles)
	assert.Equal(t, 850.0, res.Table.Value(0, "Value").Num) // 1250 - 400 failed
	assert.Equal(t, 4, res.RowsScanned)
	assert.Contains(t, res.Explanation, "Filters applied:")
	assert.Contains(t, res.Explanation, "1 skipped")
}

func TestExecuteIdempotent(t *testing.T) {
	tbl, roles := statesTable()
	plan := buildPlan("Top 3 states by transaction value", tbl, roles)

	a := Execute(plan, tbl, roles)
	b := Execute(plan, tbl, roles)

	aj, err := json.Marshal(a.Table)
	require.NoError(t, err)
	bj, err := json.Marshal(b.Table)
	require.NoError(t, err)
	assert.Equal(t, aj, bj)
	assert.Equal(t, a.RowsScanned, b.RowsScanned)
}

func TestGeneralFallback(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{Intent: planner.IntentGeneral, Query: "hello", Aggregation: "sum"}
	res := Execute(plan, tbl, roles)
	assert.Contains(t, res.Explanation, "first 20 rows")
	assert.Equal(t, "table", res.Chart.Type)
}

func TestForecastNotConfigured(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{Intent: planner.IntentForecast, Query: "forecast", Aggregation: "sum"}
	res := Execute(plan, tbl, roles)
	assert.Contains(t, res.Explanation, "not configured")
}

type stubForecaster struct{}

func (stubForecaster) ForecastMonthly(t *dataset.Table, roles dataset.RoleMap, months int) (*dataset.Table, *dataset.Table, string, error) {
	hist := dataset.New(
		[]string{"Month", "Actual", "Fitted"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber, dataset.ColNumber},
	)
	hist.AppendRow(dataset.Str("2024-01"), dataset.Num(100), dataset.Num(98))
	fc := dataset.New(
		[]string{"Month", "Predicted"},
		[]dataset.ColType{dataset.ColText, dataset.ColNumber},
	)
	fc.AppendRow(dataset.Str("2024-02"), dataset.Num(105))
	return hist, fc, "stub forecast", nil
}

func TestForecastCombinedTable(t *testing.T) {
	tbl, roles := statesTable()
	plan := planner.Plan{Intent: planner.IntentForecast, Query: "forecast", Aggregation: "sum"}
	res := Execute(plan, tbl, roles, WithForecaster(stubForecaster{}))

	require.Equal(t, 2, res.Table.NumRows())
	assert.Equal(t, "Historical", res.Table.Value(0, "Type").Str)
	assert.Equal(t, "Forecast", res.Table.Value(1, "Type").Str)
	assert.True(t, res.Table.Value(1, "Actual").IsNull())
	assert.Equal(t, 105.0, res.Table.Value(1, "Fitted").Num)
	assert.Equal(t, "stub forecast", res.Explanation)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "₹2.50 Cr", FormatCurrency(2.5e7))
	assert.Equal(t, "₹1.20 L", FormatCurrency(1.2e5))
	assert.Equal(t, "₹5.5K", FormatCurrency(5500))
	assert.Equal(t, "₹500", FormatCurrency(500))
	assert.Equal(t, "2.5K", FormatNumber(2500.0))
	assert.Equal(t, "950", FormatNumber(950.0))
}
