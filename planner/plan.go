package planner

import (
	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// PLAN BUILDER — Extracted entities → canonical execution plan
// ============================================================================
// The Plan is the sole contract between planning and execution. It is plain
// data (JSON-serializable, no live references) so it can be logged,
// deferred, or re-run, and two identical queries against the same role map
// always produce byte-identical plans.
// ============================================================================

// Plan is the structured, deterministic execution plan for one query.
type Plan struct {
	Intent       Intent           `json:"intent"`
	Query        string           `json:"query"`
	Aggregation  string           `json:"aggregation"`
	MetricColumn string           `json:"metric_column"`
	GroupBy      string           `json:"group_by,omitempty"`
	Filters      []dataset.Filter `json:"filters"`
	K            int              `json:"k"`
	Visualization string          `json:"visualization"`
	CompareA     string           `json:"compare_a,omitempty"`
	CompareB     string           `json:"compare_b,omitempty"`
}

// vizByIntent is the static intent → chart-type table.
var vizByIntent = map[Intent]string{
	IntentTrendAnalysis:    "line",
	IntentMonthOverMonth:   "bar",
	IntentTopK:             "bar",
	IntentBottomK:          "bar",
	IntentDistribution:     "pie",
	IntentComparison:       "grouped_bar",
	IntentAnomalyDetection: "scatter",
	IntentTotalVolume:      "metric",
	IntentTotalValue:       "metric",
	IntentAverageValue:     "metric",
	IntentConcentration:    "bar",
	IntentFraud:            "bar",
	IntentFailureAnalysis:  "bar",
	IntentPeakAnalysis:     "bar",
	IntentDataQuality:      "table",
	IntentExplanation:      "table",
	IntentHistogram:        "histogram",
	IntentForecast:         "line",
	IntentScenario:         "table",
}

// BuildPlan converts a natural-language query into a Plan.
// roles is the profiler's role map; columns is the dataset's column-name
// list, used only for fuzzy filter-column fallback.
func BuildPlan(query string, roles dataset.RoleMap, columns []string) Plan {
	intent := ClassifyIntent(query)

	plan := Plan{
		Intent:       intent,
		Query:        query,
		Aggregation:  ExtractAggregation(query),
		MetricColumn: ExtractMetricColumn(query, roles),
		GroupBy:      ExtractGroupBy(query, roles),
		Filters:      ExtractFilters(query, roles, columns),
		K:            ExtractTopK(query),
		Visualization: vizFor(intent),
	}
	if plan.Filters == nil {
		plan.Filters = []dataset.Filter{}
	}

	// Intent-specific refinement.
	switch intent {
	case IntentTrendAnalysis:
		if plan.GroupBy == "" {
			plan.GroupBy = dataset.BucketMonth
		}
		plan.Visualization = "line"

	case IntentMonthOverMonth:
		plan.GroupBy = dataset.BucketMonth
		plan.Visualization = "bar"

	case IntentComparison:
		plan.CompareA, plan.CompareB = ExtractCompareEntities(query)

	case IntentDistribution:
		if plan.GroupBy == "" {
			if c := roles.Col(dataset.RoleCategory); c != "" {
				plan.GroupBy = c
			} else {
				plan.GroupBy = roles.Col(dataset.RoleRegion)
			}
		}
		plan.Visualization = "pie"

	case IntentTopK, IntentBottomK:
		if plan.GroupBy == "" {
			if c := roles.Col(dataset.RoleRegion); c != "" {
				plan.GroupBy = c
			} else {
				plan.GroupBy = roles.Col(dataset.RoleCategory)
			}
		}
		plan.Visualization = "bar"

	case IntentTotalVolume, IntentTotalValue, IntentAverageValue:
		plan.Visualization = "metric"

	case IntentPeakAnalysis:
		if plan.GroupBy == "" {
			plan.GroupBy = dataset.BucketMonth
		}

	case IntentHistogram:
		plan.Visualization = "histogram"

	case IntentForecast:
		plan.Visualization = "line"

	case IntentScenario:
		plan.Visualization = "table"
	}

	return plan
}

func vizFor(intent Intent) string {
	if v, ok := vizByIntent[intent]; ok {
		return v
	}
	return "table"
}
