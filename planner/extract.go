package planner

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// ENTITY EXTRACTOR — Query string → plan ingredients
// ============================================================================
// Five independent total functions: aggregation, top-k, group-by, filters,
// metric column, plus comparison-entity extraction. None of them fail —
// every one has a documented default.
// ============================================================================

// CountColumn is the sentinel metric meaning "count rows, not a column".
const CountColumn = "__count__"

// DefaultK is the top/bottom row count when the query names none.
const DefaultK = 10

// defaultFilterYear anchors month-name date ranges with no explicit year.
const defaultFilterYear = 2024

// ── Aggregation ─────────────────────────────────────────────────────────────

type aggEntry struct {
	agg      string
	keywords []string
}

// Ordered: the first aggregation with a keyword present wins.
var aggTable = []aggEntry{
	{"sum", []string{"sum", "total", "aggregate", "combined", "overall"}},
	{"mean", []string{"average", "avg", "mean"}},
	{"count", []string{"count", "number", "how many", "volume"}},
	{"max", []string{"max", "maximum", "highest", "largest", "biggest", "peak"}},
	{"min", []string{"min", "minimum", "lowest", "smallest"}},
	{"std", []string{"std", "standard deviation", "volatility", "deviation"}},
	{"median", []string{"median", "middle"}},
}

// ExtractAggregation picks the aggregation function. Default "sum".
func ExtractAggregation(query string) string {
	q := strings.ToLower(query)
	for _, e := range aggTable {
		for _, kw := range e.keywords {
			if strings.Contains(q, kw) {
				return e.agg
			}
		}
	}
	return "sum"
}

// ── Top-K ───────────────────────────────────────────────────────────────────

var topKPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btop\s*(\d+)`),
	regexp.MustCompile(`\bbottom\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s*(?:largest|biggest|highest|lowest|smallest)`),
}

// ExtractTopK finds the K in "top N" style phrases. Default DefaultK.
func ExtractTopK(query string) int {
	q := strings.ToLower(query)
	for _, p := range topKPatterns {
		if m := p.FindStringSubmatch(q); m != nil {
			if k, err := strconv.Atoi(m[1]); err == nil && k >= 1 {
				return k
			}
		}
	}
	return DefaultK
}

// ── Group-by ────────────────────────────────────────────────────────────────

type groupEntry struct {
	key      string
	patterns []*regexp.Regexp
}

func group(key string, patterns ...string) groupEntry {
	e := groupEntry{key: key}
	for _, p := range patterns {
		e.patterns = append(e.patterns, regexp.MustCompile(p))
	}
	return e
}

// Ordered pattern table: the first entry with a matching pattern resolves.
// Patterns are unanchored, so a bare word matches anywhere in the query.
var groupTable = []groupEntry{
	group("month", `month`),
	group("quarter", `quarter`, `q1`, `q2`, `q3`, `q4`),
	// The derived week bucket needs the bare word: "weekend" and "weekday"
	// must fall through to the physical columns below.
	group("week", `weekly`, `\bweek\b`),
	group("state", `state`, `region`),
	group("category", `category`, `merchant`),
	group("bank", `bank`),
	group("transaction_type", `type`, `p2p`, `p2m`),
	group("day_of_week", `\bday\b`, `weekday`, `daily`, `day of week`),
	group("hour", `hour`, `time of day`),
	group("age", `\bage\b`, `demographic`),
	group("device", `device`, `android`, `ios`, `web`),
	group("network", `network`, `4g`, `5g`, `wifi`),
	group("weekend", `weekend`),
}

// ExtractGroupBy resolves the grouping key for a query.
// Temporal keys resolve to derived bucket names (materialized at execution
// from the date role); the rest resolve through the role map or to well
// known physical column names. Returns "" when nothing resolves — the
// dispatcher must treat a missing group-by gracefully, never as an error.
func ExtractGroupBy(query string, roles dataset.RoleMap) string {
	q := strings.ToLower(query)
	for _, e := range groupTable {
		for _, p := range e.patterns {
			if !p.MatchString(q) {
				continue
			}
			if col := resolveGroupKey(e.key, roles); col != "" {
				return col
			}
			// Keyword matched but the required role is absent: keep
			// scanning later entries rather than failing.
			break
		}
	}
	return ""
}

func resolveGroupKey(key string, roles dataset.RoleMap) string {
	switch key {
	case "month", "quarter", "week":
		if roles.Has(dataset.RoleDate) {
			return key
		}
	case "state":
		return roles.Col(dataset.RoleRegion)
	case "category":
		return roles.Col(dataset.RoleCategory)
	case "bank":
		if c := roles.Col(dataset.RoleSenderBank); c != "" {
			return c
		}
		if c := roles.Col(dataset.RoleBank); c != "" {
			return c
		}
		return "sender_bank"
	case "transaction_type":
		return roles.Col(dataset.RoleTransactionType)
	case "day_of_week":
		return "day_of_week"
	case "hour":
		return "hour_of_day"
	case "age":
		return "sender_age_group"
	case "device":
		return "device_type"
	case "network":
		return "network_type"
	case "weekend":
		return "is_weekend"
	}
	return ""
}

// ── Filters ─────────────────────────────────────────────────────────────────

var knownTransactionTypes = []string{"P2P", "P2M", "Bill Payment", "Recharge"}

var knownStates = []string{
	"delhi", "maharashtra", "karnataka", "tamil nadu", "uttar pradesh",
	"gujarat", "rajasthan", "telangana", "andhra pradesh", "west bengal",
}

var knownCategories = []string{
	"food", "shopping", "grocery", "fuel", "utilities", "entertainment",
	"healthcare", "education", "transport", "other",
}

var (
	aboveRe     = regexp.MustCompile(`(?:above|over|greater than|more than|>)\s*(?:₹|rs\.?|inr)?\s*([\d,]+)`)
	belowRe     = regexp.MustCompile(`(?:below|under|less than|<)\s*(?:₹|rs\.?|inr)?\s*([\d,]+)`)
	dateRangeRe = regexp.MustCompile(`(?:between|from)\s+(\w+)\s*(?:to|and|-)\s*(\w+)`)
	yearRe      = regexp.MustCompile(`(20\d{2})`)
)

var monthNames = map[string]time.Month{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ExtractFilters detects filter predicates in the query. All detected
// filters are additive — the executor AND-combines them. Columns come from
// the role map first, falling back to the fuzzy resolver over the dataset's
// column names, so a filter is only emitted when a target column exists.
func ExtractFilters(query string, roles dataset.RoleMap, columns []string) []dataset.Filter {
	q := strings.ToLower(query)
	var filters []dataset.Filter

	resolve := func(role, term string) string {
		if c := roles.Col(role); c != "" {
			return c
		}
		if c, ok := dataset.MatchColumn(columns, term); ok {
			return c
		}
		return ""
	}

	// Status
	hasSuccess := strings.Contains(q, "success")
	hasFail := strings.Contains(q, "fail")
	if hasSuccess != hasFail {
		if col := resolve(dataset.RoleStatus, "status"); col != "" {
			val := "SUCCESS"
			if hasFail {
				val = "FAILED"
			}
			filters = append(filters, dataset.Filter{Column: col, Op: "==", Value: val})
		}
	}

	// Fraud flag
	if strings.Contains(q, "fraud") && !strings.Contains(q, "non-fraud") {
		if col := resolve(dataset.RoleFraud, "fraud"); col != "" {
			filters = append(filters, dataset.Filter{Column: col, Op: "==", Value: 1})
		}
	}

	// Transaction type
	for _, tt := range knownTransactionTypes {
		if strings.Contains(q, strings.ToLower(tt)) {
			if col := resolve(dataset.RoleTransactionType, "transaction type"); col != "" {
				filters = append(filters, dataset.Filter{Column: col, Op: "==", Value: tt})
			}
			break
		}
	}

	// Known state names
	for _, state := range knownStates {
		if strings.Contains(q, state) {
			if col := resolve(dataset.RoleRegion, "state"); col != "" {
				filters = append(filters, dataset.Filter{Column: col, Op: "==", Value: titleCase(state)})
			}
		}
	}

	// Known spend categories
	for _, cat := range knownCategories {
		if strings.Contains(q, cat) {
			if col := resolve(dataset.RoleCategory, "category"); col != "" {
				filters = append(filters, dataset.Filter{Column: col, Op: "==", Value: titleCase(cat)})
			}
			break
		}
	}

	// Amount thresholds: currency symbols and thousand separators stripped.
	if m := aboveRe.FindStringSubmatch(q); m != nil {
		if val, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			if col := resolve(dataset.RoleAmount, "amount"); col != "" {
				filters = append(filters, dataset.Filter{Column: col, Op: ">", Value: val})
			}
		}
	}
	if m := belowRe.FindStringSubmatch(q); m != nil {
		if val, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			if col := resolve(dataset.RoleAmount, "amount"); col != "" {
				filters = append(filters, dataset.Filter{Column: col, Op: "<", Value: val})
			}
		}
	}

	// Month-name date range, default year 2024 unless the query names one.
	if m := dateRangeRe.FindStringSubmatch(q); m != nil {
		startMonth, okStart := monthNames[m[1]]
		endMonth, okEnd := monthNames[m[2]]
		if okStart && okEnd {
			year := defaultFilterYear
			if ym := yearRe.FindStringSubmatch(q); ym != nil {
				year, _ = strconv.Atoi(ym[1])
			}
			if col := resolve(dataset.RoleDate, "date"); col != "" {
				start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
				end := time.Date(year, endMonth, 1, 0, 0, 0, 0, time.UTC).
					AddDate(0, 1, -1) // last day of the end month
				filters = append(filters,
					dataset.Filter{Column: col, Op: ">=", Value: start},
					dataset.Filter{Column: col, Op: "<=", Value: end},
				)
			}
		}
	}

	return filters
}

// ── Metric column ───────────────────────────────────────────────────────────

var valueKeywords = []string{"amount", "value", "revenue", "money", "inr", "rupee", "spent", "spending"}
var countKeywords = []string{"count", "volume", "number", "transactions", "how many"}

// ExtractMetricColumn decides what to aggregate: the amount column for
// value-flavored queries, the CountColumn sentinel for count-flavored ones,
// defaulting to amount when present else CountColumn.
func ExtractMetricColumn(query string, roles dataset.RoleMap) string {
	q := strings.ToLower(query)
	for _, kw := range valueKeywords {
		if strings.Contains(q, kw) {
			return roles.Col(dataset.RoleAmount)
		}
	}
	for _, kw := range countKeywords {
		if strings.Contains(q, kw) {
			return CountColumn
		}
	}
	if c := roles.Col(dataset.RoleAmount); c != "" {
		return c
	}
	return CountColumn
}

// ── Comparison entities ─────────────────────────────────────────────────────

var comparePatterns = []*regexp.Regexp{
	regexp.MustCompile(`compare\s+(.+?)\s+(?:vs|versus|and|with)\s+(.+?)(?:\s|$)`),
	regexp.MustCompile(`(?:difference|comparison)\s+between\s+(.+?)\s+and\s+(.+?)(?:\s|$)`),
	regexp.MustCompile(`(.+?)\s+vs\.?\s+(.+?)(?:\s|$)`),
}

// ExtractCompareEntities pulls the two compared entities out of a
// comparison-flavored query. The entities are returned verbatim (lowercase,
// trimmed) — resolution against actual column values happens at execution.
func ExtractCompareEntities(query string) (string, string) {
	q := strings.ToLower(query)
	for _, p := range comparePatterns {
		if m := p.FindStringSubmatch(q); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
	}
	return "", ""
}

// titleCase capitalizes each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
