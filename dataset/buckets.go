package dataset

import (
	"fmt"
	"time"
)

// ============================================================================
// TEMPORAL BUCKETS — Derived group-by labels from the date role
// ============================================================================

// Derived temporal group-by names the planner may emit.
const (
	BucketMonth   = "month"
	BucketQuarter = "quarter"
	BucketWeek    = "week"
)

// IsBucket reports whether name is a derived temporal bucket.
func IsBucket(name string) bool {
	return name == BucketMonth || name == BucketQuarter || name == BucketWeek
}

// MonthLabel renders a month bucket, e.g. "2024-03". Sorts lexically.
func MonthLabel(t time.Time) string { return t.Format("2006-01") }

// QuarterLabel renders a quarter bucket, e.g. "2024Q1".
func QuarterLabel(t time.Time) string {
	return fmt.Sprintf("%dQ%d", t.Year(), (int(t.Month())-1)/3+1)
}

// WeekLabel renders a week bucket as the ISO week's Monday, e.g. "2024-01-01".
func WeekLabel(t time.Time) string {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // Sunday belongs to the preceding Monday-started week
	}
	return t.AddDate(0, 0, 1-wd).Format("2006-01-02")
}

// BucketLabel renders the named bucket for a timestamp.
func BucketLabel(bucket string, t time.Time) string {
	switch bucket {
	case BucketQuarter:
		return QuarterLabel(t)
	case BucketWeek:
		return WeekLabel(t)
	default:
		return MonthLabel(t)
	}
}
