package planner

import (
	"regexp"
	"strings"
)

// ============================================================================
// INTENT CLASSIFIER — Ordered pattern scoring
// ============================================================================
// Each intent carries a pattern list; the score is how many of its patterns
// match the query. Highest score wins and TIES BREAK BY POSITION IN THIS
// LIST: first declared wins. Ties are common (a "show monthly trend" query
// also hits peak/top patterns), so the ordering is part of the contract.
// Do not reorder casually.
// ============================================================================

// Intent is the discrete analytic operation a query maps to.
type Intent string

const (
	IntentTotalVolume      Intent = "total_volume"
	IntentTotalValue       Intent = "total_value"
	IntentAverageValue     Intent = "average_value"
	IntentTrendAnalysis    Intent = "trend_analysis"
	IntentMonthOverMonth   Intent = "month_over_month"
	IntentTopK             Intent = "top_k"
	IntentBottomK          Intent = "bottom_k"
	IntentComparison       Intent = "comparison"
	IntentDistribution     Intent = "distribution"
	IntentAnomalyDetection Intent = "anomaly_detection"
	IntentDataQuality      Intent = "data_quality"
	IntentConcentration    Intent = "concentration"
	IntentFraud            Intent = "fraud"
	IntentFailureAnalysis  Intent = "failure_analysis"
	IntentPeakAnalysis     Intent = "peak_analysis"
	IntentExplanation      Intent = "explanation"
	IntentHistogram        Intent = "histogram"
	IntentForecast         Intent = "forecast"
	IntentScenario         Intent = "scenario"
	IntentGeneral          Intent = "general"
)

type intentEntry struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func entry(intent Intent, patterns ...string) intentEntry {
	e := intentEntry{intent: intent}
	for _, p := range patterns {
		e.patterns = append(e.patterns, regexp.MustCompile(p))
	}
	return e
}

// intentTable is the ordered priority list. Position is load-bearing.
var intentTable = []intentEntry{
	// total_value precedes total_volume: "total transaction value" hits one
	// pattern of each, and the tie must land on value.
	entry(IntentTotalValue,
		`\b(total|overall|sum|aggregate)\b.*\b(value|amount|revenue|money|inr|rupee)\b`,
		`\btotal\s+amount\b`,
		`\bsum\s+of\b.*\b(amount|value)\b`,
	),
	entry(IntentTotalVolume,
		`\b(total|overall|all)\b.*\b(transactions?|count|volume|number)\b`,
		`\b(how many)\b.*\b(transactions?)\b`,
		`\btotal\s+(number|count)\b`,
	),
	entry(IntentAverageValue,
		`\b(average|avg|mean)\b.*\b(value|amount|transaction|size)\b`,
		`\baverage\s+transaction\b`,
	),
	entry(IntentTrendAnalysis,
		`\btrend\b`,
		`\b(monthly|weekly|daily)\b.*\b(trend|pattern|movement)\b`,
		`\bover\s+time\b`,
		`\btime\s+series\b`,
		`\bgrowth\s+(over|trend)\b`,
		`\bshow\b.*\bmonth\b`,
	),
	entry(IntentMonthOverMonth,
		`\bmonth[\s\-]over[\s\-]month\b`,
		`\bmom\b`,
		`\bmonthly\s+growth\b`,
		`\bgrowth\s+rate\b.*\bmonth\b`,
	),
	entry(IntentTopK,
		`\btop\b\s*\d*`,
		`\bhighest\b`,
		`\blargest\b`,
		`\bbiggest\b`,
		`\bmost\b`,
		`\bleading\b`,
		`\bbest\b`,
		`\bmaximum\b`,
	),
	entry(IntentBottomK,
		`\bbottom\b\s*\d*`,
		`\blowest\b`,
		`\bsmallest\b`,
		`\bleast\b`,
		`\bworst\b`,
		`\bminimum\b`,
		`\bfewest\b`,
	),
	entry(IntentComparison,
		`\bcompare\b`,
		`\bvs\b`,
		`\bversus\b`,
		`\bdifference\b.*\bbetween\b`,
		`\bcomparison\b`,
	),
	entry(IntentDistribution,
		`\bdistribution\b`,
		`\bbreakdown\b`,
		`\bspread\b`,
		`\bshare\b`,
		`\bproportion\b`,
		`\bpercentage\b.*\bby\b`,
		`\bcomposition\b`,
	),
	entry(IntentAnomalyDetection,
		`\banom`,
		`\boutlier`,
		`\bunusual\b`,
		`\bspike\b`,
		`\bsudden\b`,
		`\babnormal\b`,
		`\birregular\b`,
		`\bsuspicious\b`,
	),
	entry(IntentDataQuality,
		`\bmissing\b`,
		`\bnull\b`,
		`\bduplicate\b`,
		`\bquality\b`,
		`\binconsisten`,
		`\bclean\b`,
		`\bdata\s+issue\b`,
	),
	entry(IntentConcentration,
		`\bconcentrat`,
		`\bdominan`,
		`\bmarket\s+share\b`,
		`\bherfindahl\b`,
		`\bgini\b`,
		`\brisk\s+index\b`,
	),
	entry(IntentFraud,
		`\bfraud\b`,
		`\bfraudulent\b`,
		`\bsuspicious\b.*\btransaction\b`,
		`\bfraud\s+rate\b`,
		`\bfraud\s+flag\b`,
	),
	entry(IntentFailureAnalysis,
		`\bfail`,
		`\bfailure\b`,
		`\bfailed\b`,
		`\bsuccess\s+rate\b`,
		`\btransaction\s+status\b`,
	),
	entry(IntentPeakAnalysis,
		`\bpeak\b`,
		`\bbusiest\b`,
		`\bhighest\s+activity\b`,
		`\bwhen\b.*\bmost\b`,
		`\bpeak\s+(hour|day|month|time)\b`,
	),
	entry(IntentExplanation,
		`\bexplain\b`,
		`\bwhy\b`,
		`\bhow\b.*\bcomputed\b`,
		`\breason\b`,
		`\bcause\b`,
	),
	entry(IntentHistogram,
		`\bhistogram\b`,
		`\bfrequency\s+distribution\b`,
		`\bvalue\s+distribution\b`,
		`\bbucket\b`,
		`\bbin\b`,
	),
	entry(IntentForecast,
		// Listed twice: a bare "forecast" scores 2 and outranks earlier
		// single-pattern intents ("forecast the trend" is a forecast).
		`\bforecast\b`,
		`\bforecast\b`,
		`\bpredict\b`,
		`\bprojection\b`,
		`\bnext\s+\d*\s*month\b`,
		`\bfuture\b`,
		`\bestimate\s+next\b`,
		`\bwhat.*will\b`,
	),
	entry(IntentScenario,
		`\bwhat\s+if\b`,
		`\bscenario\b`,
		`\bsimulat`,
		`\bimpact\s+of\b`,
		`\bhypothetical\b`,
	),
}

// ClassifyIntent maps a raw query to exactly one intent.
// Never fails: unmatched input returns IntentGeneral.
func ClassifyIntent(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))

	best := IntentGeneral
	bestScore := 0
	for _, e := range intentTable {
		score := 0
		for _, p := range e.patterns {
			if p.MatchString(q) {
				score++
			}
		}
		// Strictly greater: earlier entries win ties.
		if score > bestScore {
			best = e.intent
			bestScore = score
		}
	}
	return best
}
