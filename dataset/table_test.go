package dataset

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// ============================================================================
// TABLE TESTS
// ============================================================================

func sampleTable() *Table {
	t := New(
		[]string{"state", "amount", "date"},
		[]ColType{ColText, ColNumber, ColDate},
	)
	t.AppendRow(Str("Delhi"), Num(500), Date(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	t.AppendRow(Str("Maharashtra"), Num(400), Date(time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)))
	t.AppendRow(Str("Karnataka"), Num(300), Date(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)))
	t.AppendRow(Str("Goa"), Num(50), Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	return t
}

func TestSortByStable(t *testing.T) {
	tbl := New([]string{"name", "score"}, []ColType{ColText, ColNumber})
	tbl.AppendRow(Str("a"), Num(10))
	tbl.AppendRow(Str("b"), Num(20))
	tbl.AppendRow(Str("c"), Num(20))
	tbl.AppendRow(Str("d"), Num(5))

	tbl.SortBy("score", true)

	// Ties keep first-appearance order: b before c.
	got := []string{}
	for i := 0; i < tbl.NumRows(); i++ {
		got = append(got, tbl.Value(i, "name").Str)
	}
	want := "b,c,a,d"
	if strings.Join(got, ",") != want {
		t.Errorf("stable sort order = %v, want %s", got, want)
	}
}

func TestHeadCopies(t *testing.T) {
	tbl := sampleTable()
	head := tbl.Head(2)
	if head.NumRows() != 2 {
		t.Fatalf("Head(2) rows = %d, want 2", head.NumRows())
	}
	head.SortBy("amount", false)
	if tbl.Value(0, "state").Str != "Delhi" {
		t.Error("Head must copy rows; mutation leaked into the source table")
	}
}

func TestWithColumn(t *testing.T) {
	tbl := sampleTable()
	flags := []Value{Num(1), Num(0), Num(1), Num(0)}
	out := tbl.WithColumn("flag", ColNumber, flags)

	if out.NumCols() != 4 {
		t.Fatalf("NumCols = %d, want 4", out.NumCols())
	}
	if tbl.NumCols() != 3 {
		t.Error("WithColumn must not mutate the receiver")
	}
	if out.Value(2, "flag").Num != 1 {
		t.Errorf("flag[2] = %v, want 1", out.Value(2, "flag").Num)
	}
}

func TestDuplicateRows(t *testing.T) {
	tbl := New([]string{"a", "b"}, []ColType{ColText, ColNumber})
	tbl.AppendRow(Str("x"), Num(1))
	tbl.AppendRow(Str("x"), Num(1))
	tbl.AppendRow(Str("y"), Num(2))
	tbl.AppendRow(Str("x"), Num(1))

	if got := tbl.DuplicateRows(); got != 2 {
		t.Errorf("DuplicateRows = %d, want 2", got)
	}
}

func TestTableJSON(t *testing.T) {
	tbl := New([]string{"name", "value"}, []ColType{ColText, ColNumber})
	tbl.AppendRow(Str("a"), Num(1.5))
	tbl.AppendRow(Str("b"), Null())

	b, err := json.Marshal(tbl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Columns []string                 `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(out.Rows))
	}
	if out.Rows[0]["value"] != 1.5 {
		t.Errorf("rows[0].value = %v, want 1.5", out.Rows[0]["value"])
	}
	if out.Rows[1]["value"] != nil {
		t.Errorf("null cell must serialize as JSON null, got %v", out.Rows[1]["value"])
	}
}

func TestFilterApply(t *testing.T) {
	tbl := sampleTable()

	filtered, skipped := Apply(tbl, []Filter{{Column: "amount", Op: ">", Value: 100.0}})
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v, want none", skipped)
	}
	if filtered.NumRows() != 3 {
		t.Errorf("rows after amount > 100 = %d, want 3", filtered.NumRows())
	}

	// Text equality is case-insensitive.
	filtered, _ = Apply(tbl, []Filter{{Column: "state", Op: "==", Value: "delhi"}})
	if filtered.NumRows() != 1 {
		t.Errorf("rows after state == delhi = %d, want 1", filtered.NumRows())
	}

	// Missing column and unknown op are skipped no-ops, not failures.
	filtered, skipped = Apply(tbl, []Filter{
		{Column: "nope", Op: "==", Value: "x"},
		{Column: "amount", Op: "~=", Value: 1.0},
	})
	if filtered.NumRows() != tbl.NumRows() {
		t.Errorf("skipped filters must not drop rows: %d != %d", filtered.NumRows(), tbl.NumRows())
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %d filters, want 2", len(skipped))
	}

	// Empty filter list keeps every row.
	filtered, _ = Apply(tbl, nil)
	if filtered.NumRows() != tbl.NumRows() {
		t.Errorf("empty filters scanned %d rows, want %d", filtered.NumRows(), tbl.NumRows())
	}
}

func TestFilterDefensiveCopy(t *testing.T) {
	tbl := sampleTable()
	filtered, _ := Apply(tbl, nil)
	filtered.SortBy("amount", false)
	if tbl.Value(0, "state").Str != "Delhi" {
		t.Error("Apply must defensively copy; sort leaked into source")
	}
}

func TestBucketLabels(t *testing.T) {
	d := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC) // a Sunday

	if got := MonthLabel(d); got != "2024-03" {
		t.Errorf("MonthLabel = %s, want 2024-03", got)
	}
	if got := QuarterLabel(d); got != "2024Q1" {
		t.Errorf("QuarterLabel = %s, want 2024Q1", got)
	}
	// Sunday belongs to the week starting the preceding Monday.
	if got := WeekLabel(d); got != "2024-03-11" {
		t.Errorf("WeekLabel = %s, want 2024-03-11", got)
	}
}

func TestMatchColumn(t *testing.T) {
	cols := []string{"transaction_id", "amount (INR)", "sender_state", "merchant_category"}

	cases := []struct {
		term string
		want string
		ok   bool
	}{
		{"sender_state", "sender_state", true},     // exact
		{"amount", "amount (INR)", true},           // substring
		{"category merchant", "merchant_category", true}, // token overlap
		{"zzz", "", false},
	}
	for _, c := range cases {
		got, ok := MatchColumn(cols, c.term)
		if ok != c.ok || got != c.want {
			t.Errorf("MatchColumn(%q) = (%q, %v), want (%q, %v)", c.term, got, ok, c.want, c.ok)
		}
	}
}
