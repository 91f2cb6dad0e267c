package planner

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// PLANNER TESTS
// ============================================================================

var testRoles = dataset.RoleMap{
	dataset.RoleAmount:          "amount (INR)",
	dataset.RoleDate:            "transaction_date",
	dataset.RoleRegion:          "sender_state",
	dataset.RoleCategory:        "merchant_category",
	dataset.RoleStatus:          "transaction_status",
	dataset.RoleFraud:           "fraud_flag",
	dataset.RoleTransactionType: "transaction type",
	dataset.RoleSenderBank:      "sender_bank",
}

var testColumns = []string{
	"transaction_id", "transaction_date", "amount (INR)", "sender_state",
	"merchant_category", "transaction type", "sender_bank", "transaction_status", "fraud_flag",
}

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		query string
		want  Intent
	}{
		{"What is the total transaction value?", IntentTotalValue},
		{"How many transactions happened?", IntentTotalVolume},
		{"Average transaction size", IntentAverageValue},
		{"Show monthly trend of transaction volume", IntentTrendAnalysis},
		{"month over month growth", IntentMonthOverMonth},
		{"Top 3 states by transaction value", IntentTopK},
		{"bottom 5 categories", IntentBottomK},
		{"Compare Delhi vs Maharashtra", IntentComparison},
		{"distribution by category", IntentDistribution},
		{"any unusual spikes?", IntentAnomalyDetection},
		{"missing values and duplicates", IntentDataQuality},
		{"market share concentration", IntentConcentration},
		{"fraud rate", IntentFraud},
		{"why do transactions fail", IntentFailureAnalysis},
		{"peak hour of activity", IntentPeakAnalysis},
		{"histogram of amounts", IntentHistogram},
		{"forecast next 3 months", IntentForecast},
		{"forecast the trend", IntentForecast},
		{"what if volume doubles", IntentScenario},
		{"hello there", IntentGeneral},
		{"", IntentGeneral},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyIntent(c.query), "query: %q", c.query)
	}
}

func TestClassifyIntentTieBreak(t *testing.T) {
	// "total transaction value" scores one pattern for both total_value and
	// total_volume; the earlier table entry must win.
	assert.Equal(t, IntentTotalValue, ClassifyIntent("total transaction value"))

	// A bare "forecast" carries double weight, so it beats the earlier
	// trend_analysis entry instead of losing the tie to it.
	assert.Equal(t, IntentForecast, ClassifyIntent("forecast the trend"))
}

func TestExtractAggregation(t *testing.T) {
	assert.Equal(t, "sum", ExtractAggregation("total value"))
	assert.Equal(t, "mean", ExtractAggregation("average amount per state"))
	assert.Equal(t, "count", ExtractAggregation("count of transactions"))
	assert.Equal(t, "median", ExtractAggregation("median ticket"))
	assert.Equal(t, "sum", ExtractAggregation("value by state")) // default
	// Ordered table: "total" (sum) beats "highest" (max) when both appear.
	assert.Equal(t, "sum", ExtractAggregation("total for the highest state"))
}

func TestExtractTopK(t *testing.T) {
	assert.Equal(t, 3, ExtractTopK("top 3 states"))
	assert.Equal(t, 7, ExtractTopK("bottom 7 banks"))
	assert.Equal(t, 5, ExtractTopK("5 largest transactions"))
	assert.Equal(t, DefaultK, ExtractTopK("top states"))
}

func TestExtractGroupBy(t *testing.T) {
	assert.Equal(t, "month", ExtractGroupBy("monthly trend", testRoles))
	assert.Equal(t, "quarter", ExtractGroupBy("quarterly totals", testRoles))
	assert.Equal(t, "sender_state", ExtractGroupBy("value by state", testRoles))
	assert.Equal(t, "merchant_category", ExtractGroupBy("spend by category", testRoles))
	assert.Equal(t, "sender_bank", ExtractGroupBy("by bank", testRoles))
	assert.Equal(t, "", ExtractGroupBy("total value", testRoles))

	// The derived week bucket only claims the bare word: "weekend" and
	// "weekday" resolve to their physical columns.
	assert.Equal(t, "week", ExtractGroupBy("spending by week", testRoles))
	assert.Equal(t, "week", ExtractGroupBy("weekly volume", testRoles))
	assert.Equal(t, "is_weekend", ExtractGroupBy("weekend spending breakdown", testRoles))
	assert.Equal(t, "day_of_week", ExtractGroupBy("transactions by weekday", testRoles))

	// Temporal buckets need the date role; without it the extractor keeps
	// scanning instead of failing.
	noDate := dataset.RoleMap{dataset.RoleRegion: "sender_state"}
	assert.Equal(t, "sender_state", ExtractGroupBy("monthly totals by state", noDate))
}

func TestExtractFilters(t *testing.T) {
	t.Run("status xor", func(t *testing.T) {
		f := ExtractFilters("failed transactions", testRoles, testColumns)
		require.Len(t, f, 1)
		assert.Equal(t, dataset.Filter{Column: "transaction_status", Op: "==", Value: "FAILED"}, f[0])

		// success and fail together cancel out
		f = ExtractFilters("success vs failed split", testRoles, testColumns)
		assert.Empty(t, f)
	})

	t.Run("threshold with currency and commas", func(t *testing.T) {
		f := ExtractFilters("transactions above ₹10,000", testRoles, testColumns)
		require.Len(t, f, 1)
		assert.Equal(t, dataset.Filter{Column: "amount (INR)", Op: ">", Value: 10000}, f[0])
	})

	t.Run("state and category", func(t *testing.T) {
		f := ExtractFilters("grocery spend in delhi", testRoles, testColumns)
		require.Len(t, f, 2)
		assert.Contains(t, f, dataset.Filter{Column: "sender_state", Op: "==", Value: "Delhi"})
		assert.Contains(t, f, dataset.Filter{Column: "merchant_category", Op: "==", Value: "Grocery"})
	})

	t.Run("month range default year", func(t *testing.T) {
		f := ExtractFilters("value between january and march", testRoles, testColumns)
		require.Len(t, f, 2)
		assert.Equal(t, ">=", f[0].Op)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f[0].Value)
		assert.Equal(t, "<=", f[1].Op)
		assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), f[1].Value)
	})

	t.Run("missing role drops the filter", func(t *testing.T) {
		f := ExtractFilters("fraud in delhi", dataset.RoleMap{}, []string{"note"})
		assert.Empty(t, f)
	})
}

func TestExtractMetricColumn(t *testing.T) {
	assert.Equal(t, "amount (INR)", ExtractMetricColumn("total value", testRoles))
	assert.Equal(t, CountColumn, ExtractMetricColumn("transaction volume", testRoles))
	assert.Equal(t, "amount (INR)", ExtractMetricColumn("by state", testRoles)) // default amount
	assert.Equal(t, CountColumn, ExtractMetricColumn("by state", dataset.RoleMap{}))
}

func TestExtractCompareEntities(t *testing.T) {
	a, b := ExtractCompareEntities("Compare Delhi vs Maharashtra")
	assert.Equal(t, "delhi", a)
	assert.Equal(t, "maharashtra", b)

	a, b = ExtractCompareEntities("difference between p2p and p2m")
	assert.Equal(t, "p2p", a)
	assert.Equal(t, "p2m", b)

	a, b = ExtractCompareEntities("HDFC vs SBI")
	assert.Equal(t, "hdfc", a)
	assert.Equal(t, "sbi", b)

	a, b = ExtractCompareEntities("no comparison here at all")
	assert.Empty(t, a)
	assert.Empty(t, b)
}

func TestBuildPlanScenarios(t *testing.T) {
	t.Run("top 3 states", func(t *testing.T) {
		plan := BuildPlan("Top 3 states by transaction value", testRoles, testColumns)
		assert.Equal(t, IntentTopK, plan.Intent)
		assert.Equal(t, 3, plan.K)
		assert.Equal(t, "sender_state", plan.GroupBy)
		assert.Equal(t, "bar", plan.Visualization)
	})

	t.Run("comparison entities", func(t *testing.T) {
		plan := BuildPlan("Compare Delhi vs Maharashtra", testRoles, testColumns)
		assert.Equal(t, IntentComparison, plan.Intent)
		assert.Equal(t, "delhi", plan.CompareA)
		assert.Equal(t, "maharashtra", plan.CompareB)
		assert.Equal(t, "grouped_bar", plan.Visualization)
	})

	t.Run("monthly trend", func(t *testing.T) {
		plan := BuildPlan("Show monthly trend of transaction volume", testRoles, testColumns)
		assert.Equal(t, IntentTrendAnalysis, plan.Intent)
		assert.Equal(t, "month", plan.GroupBy)
		assert.Equal(t, "line", plan.Visualization)
	})

	t.Run("mom forces month bucket", func(t *testing.T) {
		plan := BuildPlan("month over month growth", testRoles, testColumns)
		assert.Equal(t, IntentMonthOverMonth, plan.Intent)
		assert.Equal(t, "month", plan.GroupBy)
		assert.Equal(t, "bar", plan.Visualization)
	})

	t.Run("distribution defaults to category", func(t *testing.T) {
		plan := BuildPlan("show the breakdown", testRoles, testColumns)
		assert.Equal(t, IntentDistribution, plan.Intent)
		assert.Equal(t, "merchant_category", plan.GroupBy)
		assert.Equal(t, "pie", plan.Visualization)
	})
}

func TestBuildPlanDeterministic(t *testing.T) {
	const query = "Top 5 states by average transaction value above ₹500 between jan and march"
	a := BuildPlan(query, testRoles, testColumns)
	b := BuildPlan(query, testRoles, testColumns)

	aj, err := json.Marshal(a)
	require.NoError(t, err)
	bj, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, aj, bj, "identical query must produce byte-identical plans")
}
