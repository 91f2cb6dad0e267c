package profiler

import (
	"strings"

	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// PROFILER — Semantic role inference
// ============================================================================
// Inspects column names and types and binds semantic roles (amount, date,
// region, ...) to physical columns. The engine treats the result as
// read-only; re-profiling happens only when the dataset is replaced.
// ============================================================================

// DetectRoles infers the role map for a table.
func DetectRoles(t *dataset.Table) dataset.RoleMap {
	roles := dataset.RoleMap{}
	cols := t.Columns()

	// Date: first date-typed column wins.
	for _, c := range cols {
		if t.ColType(c) == dataset.ColDate {
			roles[dataset.RoleDate] = c
			break
		}
	}

	// Amount: keyword match on numeric columns, else the numeric column with
	// the largest mean that is not an id or flag.
	numeric := numericColumns(t)
	for _, c := range numeric {
		if containsAny(c, "amount", "value", "price", "cost", "revenue", "inr", "rupee") {
			roles[dataset.RoleAmount] = c
			break
		}
	}
	if !roles.Has(dataset.RoleAmount) {
		best, bestMean := "", 0.0
		for _, c := range numeric {
			if containsAny(c, "id", "flag", "weekend", "hour", "day") {
				continue
			}
			if m := columnMean(t, c); best == "" || m > bestMean {
				best, bestMean = c, m
			}
		}
		if best != "" {
			roles[dataset.RoleAmount] = best
		}
	}

	categorical := textColumns(t)
	for _, c := range categorical {
		if !roles.Has(dataset.RoleRegion) && containsAny(c, "state", "region", "province", "city", "location") {
			roles[dataset.RoleRegion] = c
		}
	}
	for _, c := range categorical {
		if roles.Has(dataset.RoleCategory) {
			break
		}
		if containsAny(c, "category", "merchant", "type") {
			lc := strings.ToLower(c)
			// "transaction type" is its own role, not the spend category
			if !strings.Contains(lc, "transaction") || !strings.Contains(lc, "type") {
				roles[dataset.RoleCategory] = c
			}
		}
	}
	for _, c := range categorical {
		lc := strings.ToLower(c)
		if strings.Contains(lc, "transaction") && strings.Contains(lc, "type") {
			roles[dataset.RoleTransactionType] = c
			break
		}
	}
	for _, c := range categorical {
		lc := strings.ToLower(c)
		if !strings.Contains(lc, "bank") {
			continue
		}
		switch {
		case strings.Contains(lc, "sender"):
			roles[dataset.RoleSenderBank] = c
		case strings.Contains(lc, "receiver"):
			roles[dataset.RoleReceiverBank] = c
		default:
			if !roles.Has(dataset.RoleBank) {
				roles[dataset.RoleBank] = c
			}
		}
	}
	for _, c := range categorical {
		if containsAny(c, "status") {
			roles[dataset.RoleStatus] = c
			break
		}
	}
	for _, c := range append(numeric, categorical...) {
		if containsAny(c, "fraud") {
			roles[dataset.RoleFraud] = c
			break
		}
	}

	return roles
}

func numericColumns(t *dataset.Table) []string {
	var out []string
	for _, c := range t.Columns() {
		if t.ColType(c) == dataset.ColNumber {
			out = append(out, c)
		}
	}
	return out
}

func textColumns(t *dataset.Table) []string {
	var out []string
	for _, c := range t.Columns() {
		if t.ColType(c) == dataset.ColText {
			out = append(out, c)
		}
	}
	return out
}

func columnMean(t *dataset.Table, col string) float64 {
	sum, n := 0.0, 0
	for _, v := range t.Column(col) {
		if !v.IsNull() {
			sum += v.Float()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func containsAny(col string, keywords ...string) bool {
	lc := strings.ToLower(col)
	for _, kw := range keywords {
		if strings.Contains(lc, kw) {
			return true
		}
	}
	return false
}
