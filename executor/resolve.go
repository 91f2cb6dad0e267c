package executor

import (
	"github.com/finlens-org/finlens/dataset"
)

// ============================================================================
// GROUP RESOLUTION — Plan group-by key → physical column
// ============================================================================
// Temporal buckets (month/quarter/week) are materialized here as a derived
// label column built from the date role. Named columns pass through; near
// misses go through the fuzzy resolver; anything else reports ok=false and
// the calling branch degrades to raw-row output.
// ============================================================================

// resolveGroup returns a table carrying the group column plus its name.
// The input table is never mutated: bucket materialization returns a new
// table with the derived column appended.
func resolveGroup(t *dataset.Table, groupBy string, roles dataset.RoleMap) (*dataset.Table, string, bool) {
	if groupBy == "" {
		return t, "", false
	}

	if dataset.IsBucket(groupBy) {
		dateCol := roles.Col(dataset.RoleDate)
		if dateCol == "" || !t.HasColumn(dateCol) {
			return t, groupBy, false
		}
		dates := t.Column(dateCol)
		labels := make([]dataset.Value, len(dates))
		for i, d := range dates {
			if d.IsNull() {
				labels[i] = dataset.Null()
			} else {
				labels[i] = dataset.Str(dataset.BucketLabel(groupBy, d.Time))
			}
		}
		return t.WithColumn(groupBy, dataset.ColText, labels), groupBy, true
	}

	if t.HasColumn(groupBy) {
		return t, groupBy, true
	}
	if matched, ok := dataset.MatchColumn(t.Columns(), groupBy); ok {
		return t, matched, true
	}
	return t, groupBy, false
}
