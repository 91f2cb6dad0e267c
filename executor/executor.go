package executor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/finlens-org/finlens/dataset"
	"github.com/finlens-org/finlens/planner"
)

// ============================================================================
// EXECUTOR — Flat per-intent dispatch
// ============================================================================
// Execute turns a Plan plus a dataset and role map into a result table, an
// explanation embedding the computed numbers, and a chart spec. Every branch
// works the same way: filter a defensive copy, resolve the group-by, compute,
// explain. No branch shares mutable state with another, and none of them
// raise — missing roles and unresolved columns degrade to explanatory
// results so the dispatcher stays total.
// ============================================================================

// Result is the render-ready output of one plan execution.
type Result struct {
	Table       *dataset.Table `json:"result_table"`
	Chart       ChartSpec      `json:"chart_spec"`
	Explanation string         `json:"explanation"`
	RowsScanned int            `json:"rows_scanned"`
	ExecTimeMS  float64        `json:"exec_time_ms"`
}

// ChartSpec tells the presentation layer how to render the result.
type ChartSpec struct {
	Type  string `json:"type"`
	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`
	Title string `json:"title"`
}

// Forecaster is the external forecasting collaborator consumed by the
// forecast intent: it returns a historical table, a forecast table, and an
// explanation, or an error value (never a panic).
type Forecaster interface {
	ForecastMonthly(t *dataset.Table, roles dataset.RoleMap, months int) (historical, forecast *dataset.Table, explanation string, err error)
}

// Execute runs a plan against a dataset. The original table is never
// mutated; every branch works on the filtered defensive copy.
func Execute(plan planner.Plan, t *dataset.Table, roles dataset.RoleMap, opts ...Option) *Result {
	start := time.Now()
	cfg := applyOptions(opts)

	r := &run{
		plan:   plan,
		full:   t,
		roles:  roles,
		agg:    plan.Aggregation,
		k:      plan.K,
		amount: roles.Col(dataset.RoleAmount),
		fc:     cfg.forecaster,
	}
	if r.agg == "" {
		r.agg = "sum"
	}
	if r.k < 1 {
		r.k = planner.DefaultK
	}

	r.resolveMetric(t)

	filtered, skipped := dataset.Apply(t, plan.Filters)
	r.filtered = filtered

	table, explanation, viz := r.dispatch()
	if table == nil {
		table = dataset.New(nil, nil)
	}
	if viz == "" {
		viz = plan.Visualization
	}
	if viz == "" {
		viz = "table"
	}

	if desc := filterDescription(plan.Filters, skipped); desc != "" {
		explanation = desc + "\n\n" + explanation
	}

	elapsed := math.Round(float64(time.Since(start).Microseconds())/100) / 10

	chart := ChartSpec{Type: viz, Title: plan.Query}
	cols := table.Columns()
	if len(cols) >= 1 {
		chart.X = cols[0]
	}
	if len(cols) >= 2 {
		chart.Y = cols[len(cols)-1]
	}

	return &Result{
		Table:       table,
		Chart:       chart,
		Explanation: explanation,
		RowsScanned: filtered.NumRows(),
		ExecTimeMS:  elapsed,
	}
}

// run carries one execution's resolved inputs through the branch functions.
type run struct {
	plan     planner.Plan
	full     *dataset.Table
	filtered *dataset.Table
	roles    dataset.RoleMap
	agg      string
	k        int

	useCount bool
	metric   string // physical metric column, valid when !useCount
	display  string // human name for the metric
	amount   string // amount-role column, may be ""
	fc       Forecaster
}

// resolveMetric maps the plan's metric column onto a physical column, or
// falls back to row counting when nothing resolves.
func (r *run) resolveMetric(t *dataset.Table) {
	metric := r.plan.MetricColumn
	switch {
	case metric == "" || metric == planner.CountColumn:
		r.useCount = true
		r.display = "Transaction Count"
	case t.HasColumn(metric):
		r.metric = metric
		r.display = metric
	default:
		if matched, ok := dataset.MatchColumn(t.Columns(), metric); ok {
			r.metric = matched
			r.display = matched
		} else {
			r.useCount = true
			r.display = "Transaction Count"
		}
	}
}

// dispatch routes to the branch for the plan's intent. The fallback handles
// general plus any intent without a dedicated branch (anomaly detection runs
// through its external pipeline, so its query answers degrade to a grouped
// overview here).
func (r *run) dispatch() (*dataset.Table, string, string) {
	switch r.plan.Intent {
	case planner.IntentTotalVolume, planner.IntentTotalValue, planner.IntentAverageValue:
		return r.totals()
	case planner.IntentTrendAnalysis, planner.IntentMonthOverMonth, planner.IntentPeakAnalysis:
		return r.trend()
	case planner.IntentTopK, planner.IntentBottomK:
		return r.rank()
	case planner.IntentDistribution:
		return r.distribution()
	case planner.IntentFraud:
		return r.fraud()
	case planner.IntentFailureAnalysis:
		return r.failure()
	case planner.IntentComparison:
		return r.comparison()
	case planner.IntentDataQuality:
		return r.dataQuality()
	case planner.IntentConcentration:
		return r.concentration()
	case planner.IntentExplanation:
		return r.explainSelf()
	case planner.IntentHistogram:
		return r.histogram()
	case planner.IntentForecast:
		return r.forecast()
	case planner.IntentScenario:
		return r.scenario()
	default:
		return r.general()
	}
}

// filterDescription summarizes applied filters for the explanation, noting
// any that were skipped because their column is missing.
func filterDescription(filters, skipped []dataset.Filter) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.Describe()
	}
	desc := "Filters applied: " + strings.Join(parts, ", ")
	if len(skipped) > 0 {
		desc += fmt.Sprintf(" (%d skipped: column not in dataset)", len(skipped))
	}
	return desc
}
